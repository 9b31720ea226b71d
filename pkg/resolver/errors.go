package resolver

import (
	"errors"
	"fmt"

	"github.com/morezero/lvc-bridge/pkg/configdoc"
	"github.com/morezero/lvc-bridge/pkg/endpoint"
)

// Reason classifies a resolution failure.
type Reason string

const (
	ReasonMissing           Reason = "MISSING_FIELD"
	ReasonWrongType         Reason = "WRONG_TYPE"
	ReasonEmpty             Reason = "EMPTY_FIELD"
	ReasonUnknownPermission Reason = "UNKNOWN_PERMISSION"
	ReasonInvalidPath       Reason = "INVALID_PATH"
	ReasonCollision         Reason = "PATH_COLLISION"
)

// ResolutionError is a structured resolution failure naming the dotted
// document path that was expected.
type ResolutionError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// fieldFailure converts a document read error into a ResolutionError.
func fieldFailure(err error) error {
	var fe *configdoc.FieldError
	if !errors.As(err, &fe) {
		return err
	}
	reason := ReasonMissing
	switch fe.Problem {
	case configdoc.ProblemWrongType:
		reason = ReasonWrongType
	case configdoc.ProblemEmpty:
		reason = ReasonEmpty
	}
	return &ResolutionError{Path: fe.Path, Reason: reason, Err: fe}
}

func setFailure(err error) error {
	var ce *endpoint.CollisionError
	if errors.As(err, &ce) {
		return &ResolutionError{Path: ce.Path, Reason: ReasonCollision, Err: err}
	}
	return &ResolutionError{Path: "", Reason: ReasonInvalidPath, Err: err}
}
