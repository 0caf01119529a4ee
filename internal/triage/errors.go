package triage

import (
	"errors"
	"fmt"
)

// FailureKind classifies faults absorbed by the fail-open envelope.
type FailureKind string

const (
	FailureNormalization   FailureKind = "normalization"
	FailureUpstream        FailureKind = "upstream"
	FailureGovernanceWrite FailureKind = "governance_write"
)

var (
	ErrInvalidJSON         = errors.New("model output is not valid JSON")
	ErrNotAnObject         = errors.New("model output is not a JSON object")
	ErrMissingAnalysis     = errors.New("model output has neither classification nor sentiment")
	ErrUnsupportedProvider = errors.New("unsupported tracker provider")
)

// AnalysisError carries the stage at which an analysis run failed.
type AnalysisError struct {
	Kind  FailureKind
	Stage string
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s failure at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func newAnalysisError(kind FailureKind, stage string, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Stage: stage, Err: err}
}
