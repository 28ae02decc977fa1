package elecweb

import (
	"errors"
	"fmt"
)

var (
	ErrTokenMissing             = errors.New("form state token missing")
	ErrOptionNotFound           = errors.New("option not found")
	ErrNavigationLinkNotFound   = errors.New("usage info link not found")
	ErrTransport                = errors.New("transport failure")
	ErrUnexpectedStatus         = errors.New("unexpected status")
	ErrSetupRequired            = errors.New("first-use setup required")
	ErrSetupRequiredExceeded    = errors.New("first-use setup requested again after completion")
	ErrNonTerminatingPagination = errors.New("pagination did not terminate")
	ErrUnrecognizedPage         = errors.New("unrecognized page")
)

// StepError attaches the navigation step (and the label it was resolving, if any) to
// a failure.
type StepError struct {
	Step  string
	Label string
	Err   error
}

func (e *StepError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("elecweb: %s: %s", e.Step, e.Err)
	}
	return fmt.Sprintf("elecweb: %s %q: %s", e.Step, e.Label, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method string
	Url    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %s returned %d", ErrUnexpectedStatus, e.Method, e.Url, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// OptionError is returned when a label matches none of the options of a control.
type OptionError struct {
	Control string
	Label   string
	// Closest is the available label most similar to Label, it is only a hint for
	// whoever reads the error and is never used for matching.
	Closest string
}

func (e *OptionError) Error() string {
	msg := fmt.Sprintf("%s: %q in %s", ErrOptionNotFound, e.Label, e.Control)
	if e.Closest != "" {
		msg += fmt.Sprintf(" (closest: %q)", e.Closest)
	}
	return msg
}

func (e *OptionError) Is(target error) bool {
	return target == ErrOptionNotFound
}

func stepError(step, label string, err error) error {
	var existing *StepError
	if errors.As(err, &existing) {
		return err
	}
	return &StepError{Step: step, Label: label, Err: err}
}
