package enums

import "fmt"

// ReturnRequestStatus captures the return/refund workflow for an order or booking.
type ReturnRequestStatus string

const (
	ReturnRequestStatusUnderReview    ReturnRequestStatus = "under_review"
	ReturnRequestStatusSellerApproved ReturnRequestStatus = "seller_approved"
	ReturnRequestStatusSellerRejected ReturnRequestStatus = "seller_rejected"
	ReturnRequestStatusAdminApproved  ReturnRequestStatus = "admin_approved"
	ReturnRequestStatusAdminRejected  ReturnRequestStatus = "admin_rejected"
	ReturnRequestStatusRefunded       ReturnRequestStatus = "refunded"
	ReturnRequestStatusCompleted      ReturnRequestStatus = "completed"
)

var validReturnRequestStatuses = []ReturnRequestStatus{
	ReturnRequestStatusUnderReview,
	ReturnRequestStatusSellerApproved,
	ReturnRequestStatusSellerRejected,
	ReturnRequestStatusAdminApproved,
	ReturnRequestStatusAdminRejected,
	ReturnRequestStatusRefunded,
	ReturnRequestStatusCompleted,
}

// String implements fmt.Stringer.
func (s ReturnRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReturnRequestStatus.
func (s ReturnRequestStatus) IsValid() bool {
	for _, candidate := range validReturnRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Refundable reports whether refund processing may start from this status.
func (s ReturnRequestStatus) Refundable() bool {
	return s == ReturnRequestStatusSellerApproved || s == ReturnRequestStatusAdminApproved
}

// ParseReturnRequestStatus converts raw input into a ReturnRequestStatus.
func ParseReturnRequestStatus(value string) (ReturnRequestStatus, error) {
	for _, candidate := range validReturnRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return request status %q", value)
}
