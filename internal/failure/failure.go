// Package failure defines the tagged errors that travel from the repository
// layers up to the HTTP surface.
//
// An Error carries a Kind, a user-facing Summary and Detail, and the underlying
// cause. It knows nothing about transports; callers map a Kind to whatever
// representation they need.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Repository is the zero value; untagged errors are infrastructure
	// failures whose detail never reaches the client.
	Repository Kind = iota
	Validation
	Permission
	Configuration
	Rollback
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Permission:
		return "permission"
	case Configuration:
		return "configuration"
	case Rollback:
		return "rollback"
	default:
		return "repository"
	}
}

// Error is a classified failure. Summary and Detail are safe to show to the
// submitter only for the Validation and Permission kinds.
type Error struct {
	Kind    Kind
	Summary string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	message := e.Summary
	if e.Detail != "" {
		message = fmt.Sprintf("%s (%s)", message, e.Detail)
	}

	if e.Err != nil {
		if message == "" {
			return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("%s error: %s: %v", e.Kind, message, e.Err)
	}

	return fmt.Sprintf("%s error: %s", e.Kind, message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidation reports malformed, missing or oversized request input.
func NewValidation(summary, detail string) *Error {
	return &Error{Kind: Validation, Summary: summary, Detail: detail}
}

// NewPermission reports a request made by an identity that may not perform it.
func NewPermission(summary, detail string) *Error {
	return &Error{Kind: Permission, Summary: summary, Detail: detail}
}

// NewConfiguration reports a setting missing from the serving environment.
func NewConfiguration(err error) *Error {
	return &Error{Kind: Configuration, Err: err}
}

// NewRepository reports a failed version-control or disk operation.
func NewRepository(err error) *Error {
	return &Error{Kind: Repository, Err: err}
}

// NewRollback reports that restoring the recovery point failed after original
// had already aborted the transaction. Both causes stay reachable through
// errors.Is and errors.As.
func NewRollback(original, cause error) *Error {
	return &Error{
		Kind:    Rollback,
		Summary: "failed to restore the working copy to its recovery point",
		Err:     errors.Join(original, cause),
	}
}

// KindOf returns the kind of the outermost tagged error in the chain of err.
// Errors that carry no tag are reported as Repository failures.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}

	return Repository
}

// As returns the outermost tagged error in the chain of err, if any.
func As(err error) (*Error, bool) {
	var tagged *Error
	ok := errors.As(err, &tagged)
	return tagged, ok
}
