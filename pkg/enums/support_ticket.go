package enums

import "fmt"

// TicketSubject classifies what a support ticket asks for.
type TicketSubject string

const (
	TicketSubjectRefill TicketSubject = "Refill"
	TicketSubjectCancel TicketSubject = "Cancel"
	TicketSubjectOther  TicketSubject = "Other"
)

var validTicketSubjects = []TicketSubject{
	TicketSubjectRefill,
	TicketSubjectCancel,
	TicketSubjectOther,
}

// String implements fmt.Stringer.
func (s TicketSubject) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TicketSubject.
func (s TicketSubject) IsValid() bool {
	for _, candidate := range validTicketSubjects {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTicketSubject converts raw input into a TicketSubject.
func ParseTicketSubject(value string) (TicketSubject, error) {
	for _, candidate := range validTicketSubjects {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket subject %q", value)
}

// TicketStatus tracks the handling state of a support ticket.
type TicketStatus string

const (
	TicketStatusPending TicketStatus = "Pending"
	TicketStatusReplied TicketStatus = "Replied"
	TicketStatusClosed  TicketStatus = "Closed"
)

// String implements fmt.Stringer.
func (s TicketStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TicketStatus.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusPending, TicketStatusReplied, TicketStatusClosed:
		return true
	}
	return false
}
