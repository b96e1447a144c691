package enums

import "fmt"

// DesignApprovalStatus captures the review lifecycle of buyer-submitted design files.
type DesignApprovalStatus string

const (
	DesignApprovalStatusPending          DesignApprovalStatus = "pending"
	DesignApprovalStatusApproved         DesignApprovalStatus = "approved"
	DesignApprovalStatusRejected         DesignApprovalStatus = "rejected"
	DesignApprovalStatusChangesRequested DesignApprovalStatus = "changes_requested"
	DesignApprovalStatusResubmitted      DesignApprovalStatus = "resubmitted"
	DesignApprovalStatusSuperseded       DesignApprovalStatus = "superseded"
)

var validDesignApprovalStatuses = []DesignApprovalStatus{
	DesignApprovalStatusPending,
	DesignApprovalStatusApproved,
	DesignApprovalStatusRejected,
	DesignApprovalStatusChangesRequested,
	DesignApprovalStatusResubmitted,
	DesignApprovalStatusSuperseded,
}

// String implements fmt.Stringer.
func (s DesignApprovalStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DesignApprovalStatus.
func (s DesignApprovalStatus) IsValid() bool {
	for _, candidate := range validDesignApprovalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// AwaitingReview reports whether the seller still owes a decision.
func (s DesignApprovalStatus) AwaitingReview() bool {
	return s == DesignApprovalStatusPending || s == DesignApprovalStatusResubmitted
}

// ParseDesignApprovalStatus converts raw input into a DesignApprovalStatus.
func ParseDesignApprovalStatus(value string) (DesignApprovalStatus, error) {
	for _, candidate := range validDesignApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid design approval status %q", value)
}

// DesignContext scopes a design approval to a catalog listing or a custom quote.
type DesignContext string

const (
	DesignContextProduct DesignContext = "product"
	DesignContextQuote   DesignContext = "quote"
)

var validDesignContexts = []DesignContext{
	DesignContextProduct,
	DesignContextQuote,
}

// String implements fmt.Stringer.
func (c DesignContext) String() string {
	return string(c)
}

// IsValid reports whether the value is a known DesignContext.
func (c DesignContext) IsValid() bool {
	for _, candidate := range validDesignContexts {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseDesignContext converts raw input into a DesignContext.
func ParseDesignContext(value string) (DesignContext, error) {
	for _, candidate := range validDesignContexts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid design context %q", value)
}
