package enums

import "fmt"

// QuoteStatus captures the lifecycle of a custom-price quote.
type QuoteStatus string

const (
	QuoteStatusRequested  QuoteStatus = "requested"
	QuoteStatusSent       QuoteStatus = "sent"
	// QuoteStatusPending is a legacy alias of "sent" still present in
	// historic rows; treat it exactly like sent everywhere.
	QuoteStatusPending    QuoteStatus = "pending"
	QuoteStatusAccepted   QuoteStatus = "accepted"
	QuoteStatusRejected   QuoteStatus = "rejected"
	QuoteStatusExpired    QuoteStatus = "expired"
	QuoteStatusSuperseded QuoteStatus = "superseded"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusRequested,
	QuoteStatusSent,
	QuoteStatusPending,
	QuoteStatusAccepted,
	QuoteStatusRejected,
	QuoteStatusExpired,
	QuoteStatusSuperseded,
}

// ActiveQuoteStatuses are the statuses that count toward the
// single-active-quote-per-conversation invariant.
var ActiveQuoteStatuses = []QuoteStatus{
	QuoteStatusSent,
	QuoteStatusPending,
	QuoteStatusAccepted,
}

// String implements fmt.Stringer.
func (s QuoteStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known QuoteStatus.
func (s QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the quote still occupies its conversation.
func (s QuoteStatus) IsActive() bool {
	for _, candidate := range ActiveQuoteStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsAcceptable reports whether a buyer may accept a quote in this status.
func (s QuoteStatus) IsAcceptable() bool {
	return s == QuoteStatusSent || s == QuoteStatusPending
}

// IsTerminal reports whether no further transitions are allowed.
func (s QuoteStatus) IsTerminal() bool {
	switch s {
	case QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired, QuoteStatusSuperseded:
		return true
	default:
		return false
	}
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}
