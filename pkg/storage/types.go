package storage

import "time"

// Run kinds.
const (
	KindSnippets  = "snippets"
	KindApprovals = "approvals"
)

// Counts are the per-run totals. Commands map their own outcome names onto
// these columns: a confirmed snippet or an updated approval is Succeeded, an
// approval already matching the Hub is Unchanged, and so on.
type Counts struct {
	Succeeded  int
	Unchanged  int
	Failed     int
	Skipped    int
	Unresolved int
}

// Run is one invocation of a reconciliation command.
type Run struct {
	ID         int64
	Kind       string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress or if it crashed
	Counts
}

// Outcome captures what happened to a single item of a run.
type Outcome struct {
	RunID   int64
	Key     string // snippet path or component:version
	Outcome string
	Detail  string
}

// KindStats aggregates every finished run of one kind.
type KindStats struct {
	Kind string
	Runs int
	Counts
}
