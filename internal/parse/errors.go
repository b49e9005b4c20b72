package parse

import (
	"errors"
	"fmt"
	"strings"

	"contentpilot/internal/types"
)

// ValidationError means the stage payload could not be recovered. Reason
// never contains backend text.
type ValidationError struct {
	Stage  types.Stage
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: %s", e.Stage, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(stage types.Stage, err error, format string, args ...any) error {
	return &ValidationError{Stage: stage, Reason: fmt.Sprintf(format, args...), Err: err}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DefectPolicy decides what happens to a brief that fails its invariants.
type DefectPolicy string

const (
	// DefectDrop removes the brief, records a warning and continues.
	DefectDrop DefectPolicy = "drop"
	// DefectFail fails the whole stage.
	DefectFail DefectPolicy = "fail"
)

// ParseDefectPolicy accepts "drop" or "fail"; empty means drop.
func ParseDefectPolicy(s string) (DefectPolicy, error) {
	switch DefectPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DefectDrop:
		return DefectDrop, nil
	case DefectFail:
		return DefectFail, nil
	}
	return "", fmt.Errorf("parse: unknown defect policy %q (want drop or fail)", s)
}

// Policy tunes how per-item defects are handled.
type Policy struct {
	Defects           DefectPolicy
	DemoteEmptyViable bool
	MaxBriefsPerItem  int
}

func DefaultPolicy() Policy {
	return Policy{Defects: DefectDrop, DemoteEmptyViable: true, MaxBriefsPerItem: 3}
}

func (p Policy) withDefaults() Policy {
	if p.Defects == "" {
		p.Defects = DefectDrop
	}
	if p.MaxBriefsPerItem <= 0 {
		p.MaxBriefsPerItem = 3
	}
	return p
}
