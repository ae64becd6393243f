package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/protexsync/internal/utils"
	"github.com/sw33tLie/protexsync/pkg/bom"
	"github.com/sw33tLie/protexsync/pkg/snippets"
	"github.com/sw33tLie/protexsync/pkg/storage"
)

// snippetsCmd implements: protexsync snippets <project> <version>
var snippetsCmd = &cobra.Command{
	Use:   "snippets <project> <version>",
	Short: "Confirm Hub snippet matches that agree with the Protex BOM",
	Long: `Reads the components declared in the Protex BOM import version of a project
and confirms the snippet matches of the target version whose files belong to
those components. Matches pointing at a different component are switched to
an alternate candidate, or optionally confirmed as-is or overridden.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectName, versionName := args[0], args[1]
		importName, _ := cmd.Flags().GetString("protex_import_version")
		useBestMatch, _ := cmd.Flags().GetBool("use_best_match")
		override, _ := cmd.Flags().GetBool("override_snippet_component")

		ctx := cmd.Context()
		client, err := newHubClient(ctx, cmd)
		if err != nil {
			return err
		}

		project, err := client.LookupProject(ctx, projectName)
		if err != nil {
			return fmt.Errorf("could not find project %s: %w", projectName, err)
		}
		version, err := client.LookupVersion(ctx, project, versionName)
		if err != nil {
			return fmt.Errorf("could not find version %s of project %s: %w", versionName, projectName, err)
		}
		importVersion, err := client.LookupVersion(ctx, project, importName)
		if err != nil {
			return fmt.Errorf("could not find Protex import version %s of project %s: %w", importName, projectName, err)
		}

		jr, err := startJournal(ctx, cmd, storage.KindSnippets, projectName+"/"+versionName)
		if err != nil {
			return err
		}

		matches, err := client.ListSnippetMatches(ctx, project.ID, version.ID)
		if err != nil {
			jr.abort()
			return fmt.Errorf("listing snippet matches: %w", err)
		}
		index := snippets.IndexSnippets(matches)
		utils.Log.Infof("Found %d snippet matches in %s/%s", len(index), projectName, versionName)

		components, err := client.ListComponents(ctx, importVersion)
		if err != nil {
			jr.abort()
			return fmt.Errorf("listing components of %s: %w", importName, err)
		}

		engine := snippets.NewEngine(client, snippets.Options{
			ProjectID:         project.ID,
			VersionID:         version.ID,
			UseBestMatch:      useBestMatch,
			OverrideComponent: override,
		})

		var total snippets.Summary
		for _, comp := range components {
			log := utils.Log.WithFields(logrus.Fields{"component": comp.Label()})

			paths, err := client.ListFilePaths(ctx, project.ID, importVersion.ID, comp.ID, comp.VersionID)
			if err != nil {
				log.WithError(err).Error("Listing matched files failed")
				continue
			}

			summary, err := engine.Reconcile(ctx, snippets.Associate(comp, paths, index))
			total.Add(summary)
			if err != nil {
				jr.abort()
				return fmt.Errorf("reconciling %s: %w", comp.Label(), err)
			}
			refreshIndex(index, summary)
		}

		utils.Log.Infof("Confirmed: %d snippets (%d switched, %d overridden), failed: %d, already reviewed: %d, unresolved: %d",
			total.Confirmed, total.Switched, total.Overridden, total.Failed, total.Skipped, total.Unresolved)

		return jr.finish(ctx, snippetCounts(total), snippetOutcomes(total))
	},
}

// refreshIndex copies the post-run state of every processed snippet back into
// the index, so a path shared by several declared components is confirmed
// only once and a later pass never sends a pre-switch entry.
func refreshIndex(index map[string]bom.SnippetMatch, s snippets.Summary) {
	for _, it := range s.Items {
		if _, ok := index[it.Path]; !ok || it.Snippet.Path == "" {
			continue
		}
		index[it.Path] = it.Snippet
	}
}

func init() {
	rootCmd.AddCommand(snippetsCmd)

	snippetsCmd.Flags().String("protex_import_version", "protex_bom_import", "Name of the version holding the Protex BOM import")
	snippetsCmd.Flags().Bool("use_best_match", false, "Confirm Hub's own match when no alternate candidate agrees with the BOM")
	snippetsCmd.Flags().Bool("override_snippet_component", false, "Replace the snippet's component with the declared one when nothing better applies")
}
