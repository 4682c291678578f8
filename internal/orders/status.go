package orders

// Status is an open string: UpdateStatus persists whatever the caller
// sends, verbatim, with no transition checks. The wrapper exists so a
// stricter state machine can be layered in later without changing the
// stored representation.
type Status string

const StatusPending Status = "pending"

func (s Status) String() string { return string(s) }
