package constants

// RunStatus is the canonical status for rows in runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusPending    RunStatus = "pending"    // created, waiting for a worker
	RunStatusProcessing RunStatus = "processing" // in progress
	RunStatusCompleted  RunStatus = "completed"  // terminal success
	RunStatusFailed     RunStatus = "failed"     // terminal failure
)

func (s RunStatus) String() string {
	return string(s)
}

// Terminal reports whether the status marks the end of a run's lifecycle.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Known reports whether the status is one of the documented lifecycle values.
// The store accepts any caller-supplied status; this exists for callers that
// want to gate on well-formed values before writing.
func (s RunStatus) Known() bool {
	switch s {
	case RunStatusPending, RunStatusProcessing, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}
