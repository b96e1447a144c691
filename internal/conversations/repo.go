package conversations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
)

// Repository exposes the conversation surface the gating engines need:
// existence, participant identity, and creation (for design copies).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	Create(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a conversation repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *repository) Create(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error) {
	if conversation.ID == uuid.Nil {
		conversation.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, err
	}
	return conversation, nil
}
