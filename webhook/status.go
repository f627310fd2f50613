package webhook

import "fmt"

/* DeliveryStatus follows the lifecycle:
 * Pending -> Delivered | Retrying | Exhausted
 * Retrying -> Delivered | Retrying | Exhausted
 * Manual retry moves Exhausted or Retrying back to Pending.
 */
type DeliveryStatus int

const (
	Pending DeliveryStatus = iota + 1
	Delivered
	Retrying
	Exhausted
)

// String returns the string representation of the status
func (s DeliveryStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Delivered:
		return "delivered"
	case Retrying:
		return "retrying"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// NewDeliveryStatus creates a DeliveryStatus from a string
func NewDeliveryStatus(str string) DeliveryStatus {
	switch str {
	case "pending":
		return Pending
	case "delivered":
		return Delivered
	case "retrying":
		return Retrying
	case "exhausted":
		return Exhausted
	default:
		return Pending
	}
}

// Validate checks if the status is valid
func (s DeliveryStatus) Validate() error {
	if s < Pending || s > Exhausted {
		return fmt.Errorf("invalid delivery status: %d", s)
	}
	return nil
}

// IsTerminal returns true if no further automatic attempts will be made.
// An Exhausted delivery can still leave the terminal state via manual retry.
func (s DeliveryStatus) IsTerminal() bool {
	return s == Delivered || s == Exhausted
}

// Attemptable reports whether a worker may run an attempt for a delivery
// in this status.
func (s DeliveryStatus) Attemptable() bool {
	return s == Pending || s == Retrying
}
