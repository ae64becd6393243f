package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/protexsync/pkg/approvals"
	"github.com/sw33tLie/protexsync/pkg/storage"
)

// approvalsCmd implements: protexsync approvals <export_file>
var approvalsCmd = &cobra.Command{
	Use:   "approvals <export_file>",
	Short: "Import Code Center approval status into Hub components",
	Long: `Reads a pipe-delimited Code Center approval export and sets the approval
status of the matching Hub components or component versions. Components
approved in one project and rejected in another are not imported and are
written to <export>-conflicts.csv instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exportFile := args[0]
		reset, _ := cmd.Flags().GetBool("reset_approval_status")

		ctx := cmd.Context()
		client, err := newHubClient(ctx, cmd)
		if err != nil {
			return err
		}

		jr, err := startJournal(ctx, cmd, storage.KindApprovals, exportFile)
		if err != nil {
			return err
		}

		importer := approvals.NewImporter(exportFile, client)
		var report *approvals.Report
		if reset {
			report, err = importer.ResetToUnreviewed(ctx)
		} else {
			report, err = importer.Import(ctx)
		}
		if report == nil {
			jr.abort()
			return err
		}

		// Record partial runs too: their Hub updates have already happened.
		if ferr := jr.finish(context.WithoutCancel(ctx), approvalCounts(report), approvalOutcomes(report)); ferr != nil && err == nil {
			err = ferr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(approvalsCmd)

	approvalsCmd.Flags().BoolP("reset_approval_status", "r", false, "Set every component in the export back to UNREVIEWED")
}
