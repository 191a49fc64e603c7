package domain

// Status is one value of the fixed order lifecycle. Orders always move
// forward through the stages one step at a time; StatusComplete is terminal.
type Status string

const (
	StatusReceived Status = "Order Received"
	StatusAccepted Status = "Order Accepted"
	StatusCooking  Status = "Cooking"
	StatusOnItsWay Status = "On Its Way"
	StatusComplete Status = "Order Complete"
)

// stages in advancement order.
var stages = []Status{
	StatusReceived,
	StatusAccepted,
	StatusCooking,
	StatusOnItsWay,
	StatusComplete,
}

// descriptions shown to customers. Display only, never used for logic.
var descriptions = map[Status]string{
	StatusReceived: "Your order has been received.",
	StatusAccepted: "Your order has been accepted.",
	StatusCooking:  "We are preparing your meal.",
	StatusOnItsWay: "Your order is out for delivery.",
	StatusComplete: "Enjoy your meal!",
}

// Stages returns the lifecycle values in advancement order.
func Stages() []Status {
	out := make([]Status, len(stages))
	copy(out, stages)
	return out
}

// Valid reports whether s is a recognized lifecycle value.
func (s Status) Valid() bool {
	for _, stage := range stages {
		if stage == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is the final lifecycle value.
func (s Status) IsTerminal() bool {
	return s == StatusComplete
}

// Describe returns the human-readable description for s. Unrecognized
// values fall back to the raw status string.
func (s Status) Describe() string {
	if desc, ok := descriptions[s]; ok {
		return desc
	}
	return string(s)
}

// NextStatus returns the successor of current in the fixed stage order.
// ok is false when current is terminal. Unrecognized values return
// ErrUnknownStatus instead of defaulting.
func NextStatus(current Status) (next Status, ok bool, err error) {
	for i, stage := range stages {
		if stage != current {
			continue
		}
		if i == len(stages)-1 {
			return "", false, nil
		}
		return stages[i+1], true, nil
	}
	return "", false, ErrUnknownStatus
}
