package notifications

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/pagination"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, ddl := range statements {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard})
}

func emitEvent(t *testing.T, conn *gorm.DB, event outbox.DomainEvent) {
	t.Helper()

	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	}))
}

func TestDrainFansOutToCounterparty(t *testing.T) {
	conn := setupNotificationsTestDB(t)
	repo := NewRepository(conn)
	consumer, err := NewConsumer(outbox.NewRepository(conn), repo, db.FromGorm(conn), testLogger())
	require.NoError(t, err)

	buyerID := uuid.New()
	sellerID := uuid.New()
	quoteID := uuid.New()
	emitEvent(t, conn, outbox.DomainEvent{
		EventType:     enums.EventQuoteAccepted,
		AggregateType: enums.AggregateQuote,
		AggregateID:   quoteID,
		Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.UserRoleBuyer.String()},
		Data: map[string]any{
			"buyer_id":  buyerID.String(),
			"seller_id": sellerID.String(),
		},
		Version: 1,
	})

	published, err := consumer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	var rows []models.Notification
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, sellerID, rows[0].UserID)
	assert.Equal(t, enums.EventQuoteAccepted, rows[0].EventType)
	require.NotNil(t, rows[0].Link)
	assert.Equal(t, "/quotes/"+quoteID.String(), *rows[0].Link)

	// Already published; nothing left to drain.
	published, err = consumer.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, published)
}

func TestDrainNotifiesBothPartiesOnRefund(t *testing.T) {
	conn := setupNotificationsTestDB(t)
	repo := NewRepository(conn)
	consumer, err := NewConsumer(outbox.NewRepository(conn), repo, db.FromGorm(conn), testLogger())
	require.NoError(t, err)

	buyerID := uuid.New()
	sellerID := uuid.New()
	adminID := uuid.New()
	emitEvent(t, conn, outbox.DomainEvent{
		EventType:     enums.EventReturnRefunded,
		AggregateType: enums.AggregateReturnRequest,
		AggregateID:   uuid.New(),
		Actor:         &outbox.ActorRef{UserID: adminID, Role: enums.UserRoleAdmin.String()},
		Data: map[string]any{
			"buyer_id":  buyerID.String(),
			"seller_id": sellerID.String(),
		},
		Version: 1,
	})

	published, err := consumer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	var rows []models.Notification
	require.NoError(t, conn.Order("user_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	recipients := map[uuid.UUID]bool{rows[0].UserID: true, rows[1].UserID: true}
	assert.True(t, recipients[buyerID])
	assert.True(t, recipients[sellerID])
}

func TestDrainSkipsTheActor(t *testing.T) {
	conn := setupNotificationsTestDB(t)
	repo := NewRepository(conn)
	consumer, err := NewConsumer(outbox.NewRepository(conn), repo, db.FromGorm(conn), testLogger())
	require.NoError(t, err)

	sellerID := uuid.New()
	// Seller-sent quote: the buyer hears about it, the seller does not.
	emitEvent(t, conn, outbox.DomainEvent{
		EventType:     enums.EventQuoteSent,
		AggregateType: enums.AggregateQuote,
		AggregateID:   uuid.New(),
		Actor:         &outbox.ActorRef{UserID: sellerID, Role: enums.UserRoleSeller.String()},
		Data:          map[string]any{"seller_id": sellerID.String()},
		Version:       1,
	})

	published, err := consumer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListForUserPaginates(t *testing.T) {
	conn := setupNotificationsTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, testLogger())
	require.NoError(t, err)

	userID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, conn.Create(&models.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			EventType: enums.EventQuoteSent,
			Title:     fmt.Sprintf("Quote %d", i),
			Message:   "A quote arrived.",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	page, err := svc.ListForUser(context.Background(), userID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.NotEmpty(t, page.NextCursor)
	assert.Equal(t, "Quote 4", page.Items[0].Title)

	rest, err := svc.ListForUser(context.Background(), userID, pagination.Params{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 2)
	assert.Empty(t, rest.NextCursor)
	assert.Equal(t, "Quote 1", rest.Items[0].Title)
}

func TestMarkReadEnforcesOwnership(t *testing.T) {
	conn := setupNotificationsTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, testLogger())
	require.NoError(t, err)

	userID := uuid.New()
	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: enums.EventQuoteSent,
		Title:     "Quote received",
		Message:   "A quote arrived.",
	}
	require.NoError(t, conn.Create(notification).Error)

	err = svc.MarkRead(context.Background(), notification.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.MarkRead(context.Background(), notification.ID, userID))

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
