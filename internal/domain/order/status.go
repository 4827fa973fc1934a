package order

// Status is the canonical order state. It is the single source of truth;
// everything the shopkeeper, warehouse, or courier sees is a presentation
// label resolved from this value (see labels.go).
type Status string

const (
	StatusCreated     Status = "created"
	StatusConfirmed   Status = "confirmed"
	StatusAssigned    Status = "assigned"
	StatusAtWarehouse Status = "at_warehouse"
	StatusPickedUp    Status = "picked_up"
	StatusInTransit   Status = "in_transit"
	StatusDelivered   Status = "delivered"
	StatusCancelled   Status = "cancelled"
)

// sequence is the happy path through the lifecycle. Cancellation branches off
// from any non-terminal state and is not part of the sequence.
var sequence = []Status{
	StatusCreated,
	StatusConfirmed,
	StatusAssigned,
	StatusAtWarehouse,
	StatusPickedUp,
	StatusInTransit,
	StatusDelivered,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	for _, st := range sequence {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next returns the immediate successor of s on the happy path, or false when
// s is terminal or off the sequence.
func (s Status) Next() (Status, bool) {
	for i, st := range sequence[:len(sequence)-1] {
		if st == s {
			return sequence[i+1], true
		}
	}
	return "", false
}

// courierGated lists the targets a courier drives; each requires the order to
// already carry a courier assignment.
func courierGated(target Status) bool {
	switch target {
	case StatusAtWarehouse, StatusPickedUp, StatusInTransit, StatusDelivered:
		return true
	}
	return false
}

// CheckTransition validates moving an order from current to target and carries
// no side effects. The rules:
//
//   - target must be the immediate successor of current, or cancelled;
//   - terminal states absorb everything, including cancellation;
//   - courier-driven targets require an assignment;
//   - assigned is only reachable through a claim, which supplies the courier.
func CheckTransition(current, target Status, hasCourier bool) *TransitionError {
	if !target.Valid() {
		return newTransitionError(KindInvalidTransition, current, target)
	}
	if current.Terminal() {
		return newTransitionError(KindAlreadyTerminal, current, target)
	}
	if target == current {
		return newTransitionError(KindNoChange, current, target)
	}
	if target == StatusCancelled {
		return nil
	}

	next, ok := current.Next()
	if !ok || next != target {
		return newTransitionError(KindInvalidTransition, current, target)
	}
	if courierGated(target) && !hasCourier {
		return newTransitionError(KindMissingCourier, current, target)
	}
	if target == StatusAssigned && !hasCourier {
		return newTransitionError(KindMissingCourier, current, target)
	}
	return nil
}
