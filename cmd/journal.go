package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/protexsync/internal/utils"
	"github.com/sw33tLie/protexsync/pkg/approvals"
	"github.com/sw33tLie/protexsync/pkg/snippets"
	"github.com/sw33tLie/protexsync/pkg/storage"
)

// journal is an open run in the local SQLite journal. A nil *journal is a
// run without --db and all its methods are no-ops.
type journal struct {
	db    *storage.DB
	lock  *utils.JournalLock
	runID int64
}

// startJournal opens the journal and starts a run when --db is set.
func startJournal(ctx context.Context, cmd *cobra.Command, kind, target string) (*journal, error) {
	useDB, _ := cmd.Flags().GetBool("db")
	if !useDB {
		return nil, nil
	}
	dbPath, _ := cmd.Flags().GetString("dbpath")
	absPath, err := utils.GetAbsDBPath(dbPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, err
	}

	lock, err := utils.NewJournalLock(absPath)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}

	db, err := storage.Open(absPath)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening journal %s: %w", absPath, err)
	}
	runID, err := db.StartRun(ctx, kind, target)
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, err
	}
	utils.Log.Debugf("Journal run %d started in %s", runID, absPath)
	return &journal{db: db, lock: lock, runID: runID}, nil
}

// finish stores the outcomes and counters and releases the journal.
func (j *journal) finish(ctx context.Context, counts storage.Counts, outcomes []storage.Outcome) error {
	if j == nil {
		return nil
	}
	defer j.lock.Unlock()
	defer j.db.Close()

	if err := j.db.RecordOutcomes(ctx, j.runID, outcomes); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if err := j.db.FinishRun(ctx, j.runID, counts); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// abort releases the journal without finishing the run.
func (j *journal) abort() {
	if j == nil {
		return
	}
	j.db.Close()
	j.lock.Unlock()
}

func snippetCounts(s snippets.Summary) storage.Counts {
	return storage.Counts{
		Succeeded:  s.Confirmed,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		Unresolved: s.Unresolved,
	}
}

func snippetOutcomes(s snippets.Summary) []storage.Outcome {
	out := make([]storage.Outcome, 0, len(s.Items))
	for _, it := range s.Items {
		detail := string(it.Resolution)
		if it.Err != nil {
			detail = it.Err.Error()
		}
		out = append(out, storage.Outcome{Key: it.Path, Outcome: string(it.Outcome), Detail: detail})
	}
	return out
}

func approvalCounts(r *approvals.Report) storage.Counts {
	return storage.Counts{
		Succeeded:  len(r.Updated),
		Unchanged:  len(r.Equivalent),
		Failed:     len(r.Failed),
		Skipped:    len(r.Skipped),
		Unresolved: len(r.Conflicts),
	}
}

func approvalOutcomes(r *approvals.Report) []storage.Outcome {
	var out []storage.Outcome
	add := func(records []approvals.Record, result string) {
		for _, rec := range records {
			out = append(out, storage.Outcome{Key: rec.Key(), Outcome: result, Detail: string(rec.ApprovalStatus)})
		}
	}
	add(r.Updated, "updated")
	add(r.Equivalent, "equivalent")
	add(r.Failed, "failed")
	add(r.Conflicts, "conflict")
	for _, s := range r.Skipped {
		out = append(out, storage.Outcome{Key: fmt.Sprintf("line %d", s.Line), Outcome: "skipped", Detail: s.Err.Error()})
	}
	return out
}
