package contact

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned before any external call when a request lacks
	// required input.
	ErrValidation = errors.New("validation failed")

	ErrNormalization = errors.New("could not normalize contact data via AI")
	ErrSummarization = errors.New("could not summarize notes via AI")

	// ErrEnrichmentLookup is reserved: lookups degrade to partial or not-found
	// profiles instead of failing.
	ErrEnrichmentLookup = errors.New("enrichment lookup failed")

	ErrDestinationSave = errors.New("destination save failed")
)

// Stage names one step of the enrichment chain.
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageEnrich    Stage = "enrich"
	StageSummarize Stage = "summarize"
)

func (s Stage) sentinel() error {
	switch s {
	case StageNormalize:
		return ErrNormalization
	case StageEnrich:
		return ErrEnrichmentLookup
	case StageSummarize:
		return ErrSummarization
	default:
		return nil
	}
}

// StageError reports which stage of the chain failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return "stage error"
	}
	msg := string(e.Stage)
	if s := e.Stage.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel of the failed stage.
func (e *StageError) Is(target error) bool {
	if e == nil {
		return false
	}
	s := e.Stage.sentinel()
	return s != nil && target == s
}

// Validationf returns an ErrValidation with context.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
