package approvals

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/sw33tLie/protexsync/internal/utils"
	"github.com/sw33tLie/protexsync/pkg/hub"
)

// Catalog is what the importer needs from the Hub client.
type Catalog interface {
	FindProtexComponent(ctx context.Context, componentID, releaseID string) (*hub.ComponentRef, error)
	GetApprovalStatus(ctx context.Context, detailsURL string) (status string, raw string, err error)
	SetApprovalStatus(ctx context.Context, detailsURL, raw, status string) error
}

type Result string

const (
	ResultUpdated Result = "Updated"
	ResultEqual   Result = "Equal"
	ResultFailed  Result = "Failed"
)

// Report collects the records of a run by outcome.
type Report struct {
	Updated    []Record
	Equivalent []Record
	Failed     []Record
	Conflicts  []Record
	Skipped    []SkippedRow
}

const (
	SUFFIX_UPDATED    = "-updated.csv"
	SUFFIX_FAILED     = "-failed.csv"
	SUFFIX_EQUIVALENT = "-equivalent.csv"
	SUFFIX_CONFLICTS  = "-conflicts.csv"
	SUFFIX_SKIPPED    = "-skipped.csv"
)

func (r *Report) add(rec Record, res Result) {
	switch res {
	case ResultUpdated:
		r.Updated = append(r.Updated, rec)
	case ResultEqual:
		r.Equivalent = append(r.Equivalent, rec)
	default:
		r.Failed = append(r.Failed, rec)
	}
}

type Importer struct {
	exportFile string
	catalog    Catalog
}

func NewImporter(exportFile string, catalog Catalog) *Importer {
	return &Importer{exportFile: exportFile, catalog: catalog}
}

// Import pushes the reconciled approval status of every component in the
// export to the Hub and writes the report files. When ctx is cancelled the
// reports cover the components handled so far and ctx's error is returned
// alongside the partial report.
func (im *Importer) Import(ctx context.Context) (*Report, error) {
	return im.run(ctx, false)
}

// ResetToUnreviewed sets every Hub component referenced by the export back to
// UNREVIEWED.
func (im *Importer) ResetToUnreviewed(ctx context.Context) (*Report, error) {
	return im.run(ctx, true)
}

func (im *Importer) run(ctx context.Context, reset bool) (*Report, error) {
	records, skipped, err := ReadExport(im.exportFile)
	if err != nil {
		return nil, err
	}
	report := &Report{Skipped: skipped}

	// An interrupted run still reports the updates it already applied.
	var interrupted error
	for _, g := range GroupByComponent(records) {
		if interrupted = ctx.Err(); interrupted != nil {
			utils.Log.Warnf("Interrupted, %s and later components were not processed", g.Key)
			break
		}

		if reset {
			// Rows sharing a name and version can still point at different
			// Hub components, so every distinct component is reset.
			seen := make(map[string]bool)
			for _, rec := range g.Records {
				ref := rec.ComponentID + "#" + rec.HubReleaseID()
				if seen[ref] {
					continue
				}
				seen[ref] = true
				report.add(rec, im.apply(ctx, rec, HubUnreviewed))
			}
			continue
		}

		winner, err := Reconcile(g.Key, g.Records)
		if err != nil {
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				utils.Log.Warn(conflict.Error())
				report.Conflicts = append(report.Conflicts, conflict.Records...)
				continue
			}
			return report, err
		}
		report.add(winner, im.apply(ctx, winner, winner.ApprovalStatus.HubStatus()))
	}

	if err := im.writeReports(report); err != nil {
		return report, err
	}
	return report, interrupted
}

// apply sets the Hub approval status of the record's component to target if
// it differs from the current one.
func (im *Importer) apply(ctx context.Context, rec Record, target HubStatus) Result {
	log := utils.Log.WithFields(logrus.Fields{
		"component":    rec.Key(),
		"component_id": rec.ComponentID,
		"release_id":   rec.ReleaseID,
	})

	ref, err := im.catalog.FindProtexComponent(ctx, rec.ComponentID, rec.HubReleaseID())
	if err != nil {
		if hub.IsNotFound(err) {
			log.Warn("Could not locate Hub component or component version for Protex component")
		} else {
			log.WithError(err).Error("Looking up Hub component failed")
		}
		return ResultFailed
	}

	current, raw, err := im.catalog.GetApprovalStatus(ctx, ref.DetailsURL())
	if err != nil {
		log.WithError(err).Error("Reading Hub approval status failed")
		return ResultFailed
	}

	if HubStatus(current) == target {
		log.Debugf("Approval status already %s", current)
		return ResultEqual
	}

	if err := im.catalog.SetApprovalStatus(ctx, ref.DetailsURL(), raw, string(target)); err != nil {
		log.WithError(err).Error("Failed to update approval status")
		return ResultFailed
	}
	log.Infof("Updated approval status from %s to %s", current, target)
	return ResultUpdated
}

func (im *Importer) writeReports(r *Report) error {
	utils.Log.Infof("Updated %d components or component versions", len(r.Updated))
	if err := WriteReport(utils.ReportPath(im.exportFile, SUFFIX_UPDATED), recordRows(r.Updated)); err != nil {
		return err
	}

	if len(r.Equivalent) > 0 {
		utils.Log.Infof("Did not update %d components because their approval status already matches the Hub", len(r.Equivalent))
		if err := WriteReport(utils.ReportPath(im.exportFile, SUFFIX_EQUIVALENT), recordRows(r.Equivalent)); err != nil {
			return err
		}
	}
	if len(r.Failed) > 0 {
		utils.Log.Infof("Failed to update %d components or component versions", len(r.Failed))
		if err := WriteReport(utils.ReportPath(im.exportFile, SUFFIX_FAILED), recordRows(r.Failed)); err != nil {
			return err
		}
	}
	if len(r.Conflicts) > 0 {
		utils.Log.Infof("%d export rows have conflicting approvals and were not imported", len(r.Conflicts))
		if err := WriteReport(utils.ReportPath(im.exportFile, SUFFIX_CONFLICTS), recordRows(r.Conflicts)); err != nil {
			return err
		}
	}
	if len(r.Skipped) > 0 {
		utils.Log.Infof("Skipped %d malformed export rows", len(r.Skipped))
		if err := WriteReport(utils.ReportPath(im.exportFile, SUFFIX_SKIPPED), skippedRows(r.Skipped)); err != nil {
			return err
		}
	}
	return nil
}
