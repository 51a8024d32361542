package types

// EventKind is the classification of an inbound webhook delivery
type EventKind string

const (
	EventKindLead         EventKind = "lead"
	EventKindMessage      EventKind = "message"
	EventKindUnclassified EventKind = "unclassified"
)

// IsValid checks if the event kind is valid
func (k EventKind) IsValid() bool {
	switch k {
	case EventKindLead,
		EventKindMessage,
		EventKindUnclassified:
		return true
	default:
		return false
	}
}

// Normalize returns the kind, treating empty as EventKindUnclassified
func (k EventKind) Normalize() EventKind {
	if k == "" {
		return EventKindUnclassified
	}
	return k
}

func (k EventKind) String() string {
	return string(k)
}
