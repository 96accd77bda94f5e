// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PassState is a step of the sync orchestrator's state machine.
type PassState string

const (
	StateLoading    PassState = "loading"
	StateReaping    PassState = "reaping"
	StateDiffing    PassState = "diffing"
	StateConverting PassState = "converting"
	StatePersisting PassState = "persisting"
	StatePublishing PassState = "publishing"
	StateDone       PassState = "done"
	StateFailed     PassState = "failed"
)

// Action names what a pass did (or decided) for one source.
type Action string

const (
	ActionNew       Action = "new"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionOrphaned  Action = "orphaned"
	ActionRepaired  Action = "repaired"
	ActionFailed    Action = "failed"
)

// SourceEvent records the outcome of a pass for a single source.
type SourceEvent struct {
	Source string `json:"source" yaml:"source"`
	Action Action `json:"action" yaml:"action"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// PassSummary reports the outcome of one orchestrator pass.
type PassSummary struct {
	// ID uniquely identifies the pass in logs and history.
	ID string `json:"id" yaml:"id"`

	// State is the last state reached: done, failed, or the state in which
	// a non-fatal write error stopped the pass.
	State PassState `json:"state" yaml:"state"`

	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`

	New       int `json:"new" yaml:"new"`
	Updated   int `json:"updated" yaml:"updated"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Orphaned  int `json:"orphaned" yaml:"orphaned"`
	Repaired  int `json:"repaired" yaml:"repaired"`
	Failed    int `json:"failed" yaml:"failed"`

	// Tracked is the number of records in the persisted manifest.
	Tracked int `json:"tracked" yaml:"tracked"`

	// Events lists every non-unchanged decision made during the pass.
	Events []SourceEvent `json:"events,omitempty" yaml:"events,omitempty"`

	// Error holds the message of the error that ended the pass, if any.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Converted returns the number of successful conversions.
func (s PassSummary) Converted() int {
	return s.New + s.Updated + s.Repaired
}

// Changed reports whether the pass altered artifacts or the manifest, or
// had failures worth reporting.
func (s PassSummary) Changed() bool {
	return s.Converted() > 0 || s.Orphaned > 0 || s.Failed > 0
}

// HasFailures reports whether any conversion failed.
func (s PassSummary) HasFailures() bool {
	return s.Failed > 0
}
