package model

type RosterErrorKind string

const (
	RosterErrorInvalidDate       RosterErrorKind = "INVALID_DATE"
	RosterErrorDuplicateUsername RosterErrorKind = "DUPLICATE_USERNAME"
)

type RosterError struct {
	Kind     RosterErrorKind `json:"kind"`
	Row      int             `json:"row"`
	Username string          `json:"username"`
	RawValue string          `json:"raw_value,omitempty"`
}

type RosterErrors []RosterError

func (e *RosterErrors) Add(kind RosterErrorKind, row int, username, rawValue string) {
	*e = append(*e, RosterError{
		Kind:     kind,
		Row:      row,
		Username: username,
		RawValue: rawValue,
	})
}

func (e RosterErrors) Any() bool {
	return len(e) > 0
}

func (e RosterErrors) Count() int {
	return len(e)
}
