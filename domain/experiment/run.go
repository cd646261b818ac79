package experiment

import (
	"encoding/json"
	"strings"
	"time"

	"goabtest/domain/core"
	"goabtest/internal/errors"
)

// RunKind distinguishes stored planning runs from stored analysis runs
type RunKind string

const (
	RunKindPlan     RunKind = "plan"
	RunKindAnalysis RunKind = "analysis"
)

// ParseRunKind accepts "plan" or "analysis"; the empty string means any kind
func ParseRunKind(s string) (RunKind, error) {
	switch k := RunKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", RunKindPlan, RunKindAnalysis:
		return k, nil
	default:
		return "", errors.UnsupportedValue("kind", s, string(RunKindPlan), string(RunKindAnalysis))
	}
}

// Run is a persisted planning or analysis outcome.
// Payload holds the JSON-encoded result; Report holds the rendered Markdown summary.
type Run struct {
	ID          core.RunID      `json:"id" db:"id"`
	Kind        RunKind         `json:"kind" db:"kind"`
	Parameters  ParameterSet    `json:"parameters" db:"-"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	Report      string          `json:"-" db:"report"`
	DatasetHash core.Hash       `json:"dataset_hash,omitempty" db:"dataset_hash"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// NewRun stamps a fresh ID and creation time on an encoded payload
func NewRun(kind RunKind, params ParameterSet, payload any) (*Run, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode run payload")
	}
	return &Run{
		ID:         core.NewRunID(),
		Kind:       kind,
		Parameters: params,
		Payload:    data,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
