package models

import (
	"errors"
	"fmt"
)

// Error kinds, one per failure surface of the prediction pipeline. Callers
// match with errors.Is against these sentinels rather than inspecting strings.
var (
	// ErrValidation marks malformed or out-of-range input. The caller can
	// recover by resubmitting corrected data.
	ErrValidation = errors.New("validation error")
	// ErrCleaning marks an unexpected failure inside the cleaning stage.
	ErrCleaning = errors.New("cleaning error")
	// ErrPrediction marks a model-stage failure, including a missing artifact.
	ErrPrediction = errors.New("prediction error")
	// ErrStorage marks a persistence-layer failure.
	ErrStorage = errors.New("storage error")
	// ErrPipeline marks a failure communicating with the execution engine.
	ErrPipeline = errors.New("pipeline error")
)

// Error carries a failure kind, a human-readable message and the underlying
// cause. Both the kind and the cause stay reachable through errors.Is/As.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return e.Kind.Error()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Kind.Error(), e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind.Error(), e.Msg, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind error, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
