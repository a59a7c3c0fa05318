package domain

type TransitionEvent string

const (
	EventConfirm  TransitionEvent = "confirm"
	EventCheckIn  TransitionEvent = "check_in"
	EventCheckOut TransitionEvent = "check_out"
	EventCancel   TransitionEvent = "cancel"
)

// transitions maps current status -> target status -> event. Anything absent
// from the table is an invalid transition and must fail, never no-op.
var transitions = map[BookingStatus]map[BookingStatus]TransitionEvent{
	BookingStatusPending: {
		BookingStatusConfirmed: EventConfirm,
		BookingStatusCancelled: EventCancel,
	},
	BookingStatusConfirmed: {
		BookingStatusCheckedIn: EventCheckIn,
		BookingStatusCancelled: EventCancel,
	},
	BookingStatusCheckedIn: {
		BookingStatusCheckedOut: EventCheckOut,
	},
}

// Transition resolves the event for moving a booking from one status to
// another, or ErrInvalidTransition when the state machine forbids it.
func Transition(from, to BookingStatus) (TransitionEvent, error) {
	if event, ok := transitions[from][to]; ok {
		return event, nil
	}
	return "", ErrInvalidTransition
}
