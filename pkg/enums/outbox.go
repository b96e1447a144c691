package enums

import "fmt"

// OutboxEventType enumerates the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventQuoteRequested       OutboxEventType = "quote.requested"
	EventQuoteSent            OutboxEventType = "quote.sent"
	EventQuoteAccepted        OutboxEventType = "quote.accepted"
	EventQuoteRejected        OutboxEventType = "quote.rejected"
	EventQuoteExpired         OutboxEventType = "quote.expired"
	EventDesignSubmitted      OutboxEventType = "design.submitted"
	EventDesignApproved       OutboxEventType = "design.approved"
	EventDesignRejected       OutboxEventType = "design.rejected"
	EventDesignChangesAsked   OutboxEventType = "design.changes_requested"
	EventDesignResubmitted    OutboxEventType = "design.resubmitted"
	EventReturnOpened         OutboxEventType = "return.opened"
	EventReturnSellerDecided  OutboxEventType = "return.seller_decided"
	EventReturnAdminResolved  OutboxEventType = "return.admin_resolved"
	EventReturnRefunded       OutboxEventType = "return.refunded"
	EventReturnReminder       OutboxEventType = "return.reminder"
	EventTransactionReleased  OutboxEventType = "transaction.released"
)

var validOutboxEventTypes = []OutboxEventType{
	EventQuoteRequested,
	EventQuoteSent,
	EventQuoteAccepted,
	EventQuoteRejected,
	EventQuoteExpired,
	EventDesignSubmitted,
	EventDesignApproved,
	EventDesignRejected,
	EventDesignChangesAsked,
	EventDesignResubmitted,
	EventReturnOpened,
	EventReturnSellerDecided,
	EventReturnAdminResolved,
	EventReturnRefunded,
	EventReturnReminder,
	EventTransactionReleased,
}

// String implements fmt.Stringer.
func (t OutboxEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateQuote          OutboxAggregateType = "quote"
	AggregateDesignApproval OutboxAggregateType = "design_approval"
	AggregateReturnRequest  OutboxAggregateType = "return_request"
	AggregateTransaction    OutboxAggregateType = "transaction"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateQuote,
	AggregateDesignApproval,
	AggregateReturnRequest,
	AggregateTransaction,
}

// String implements fmt.Stringer.
func (t OutboxAggregateType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (t OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
