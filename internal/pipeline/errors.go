package pipeline

import (
	"runtime/debug"

	"github.com/user/markhub/internal/db"
)

// Kind classifies a stage failure.
type Kind string

const (
	KindFetch      Kind = "FetchError"
	KindExtraction Kind = "ExtractionError"
	KindGeneration Kind = "GenerationError"
)

// StageError is the tagged failure value every pipeline stage produces.
// The stack is captured at construction time, so callers get it as plain
// data instead of digging through runtime state.
type StageError struct {
	Stage   db.JobType
	Kind    Kind
	Message string
	Stack   string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func newStageError(stage db.JobType, kind Kind, message string, err error) *StageError {
	return &StageError{
		Stage:   stage,
		Kind:    kind,
		Message: message,
		Stack:   string(debug.Stack()),
		Err:     err,
	}
}
