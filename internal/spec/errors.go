package spec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAPIType     = errors.New("unknown api type")
	ErrUnknownEnvironment = errors.New("unknown environment")
)

// Duplicate is an operation dropped because an earlier route already produced its ID.
type Duplicate struct {
	OperationID string
	// Kept and Dropped are "METHOD /path".
	Kept    string
	Dropped string
}

// DuplicateOperationError reports operation ID collisions between distinct routes.
// The document is still assembled; the first operation of each ID is kept.
type DuplicateOperationError struct {
	Duplicates []Duplicate
}

func (e *DuplicateOperationError) Error() string {
	parts := make([]string, len(e.Duplicates))
	for i, d := range e.Duplicates {
		parts[i] = fmt.Sprintf("%s (%s, dropped %s)", d.OperationID, d.Kept, d.Dropped)
	}
	return "duplicate operation ids: " + strings.Join(parts, "; ")
}
