package usecase

import (
	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/apperror"
)

var bookingTransitions = map[entity.BookingStatus][]entity.BookingStatus{
	entity.BookingStatusPending:  {entity.BookingStatusApproved, entity.BookingStatusDeclined},
	entity.BookingStatusApproved: {entity.BookingStatusCancelled, entity.BookingStatusCompleted},
}

// canTransition reports whether a booking in status from may move to to.
// Statuses missing from the table are terminal.
func canTransition(from, to entity.BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func isTerminal(status entity.BookingStatus) bool {
	return len(bookingTransitions[status]) == 0
}

func checkTransition(booking *entity.Booking, to entity.BookingStatus) error {
	if canTransition(booking.Status, to) {
		return nil
	}
	if isTerminal(booking.Status) {
		return apperror.NewInvalidTransitionError("booking %s is %s and can no longer change", booking.BookingReference, booking.Status)
	}
	return apperror.NewInvalidTransitionError("booking %s cannot move from %s to %s", booking.BookingReference, booking.Status, to)
}
