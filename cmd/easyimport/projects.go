package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/steveyegge/easyimport/internal/importer"
	"github.com/steveyegge/easyimport/internal/redmine"
	"github.com/steveyegge/easyimport/internal/telemetry"
	"github.com/steveyegge/easyimport/internal/ui"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects an outline can refer to",
	Long: `List the projects visible with the configured API key.

Project lines in an outline are matched against these names,
case-insensitively; the first match in this order wins.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(resolveConfigPath())
		retry, err := cfg.RetryMaxElapsed()
		if err != nil {
			FatalError("import.retry_max_elapsed: %v", err)
		}
		client := redmine.NewClient(cfg.API.URL, cfg.API.Key).WithRetryMaxElapsed(retry)

		idx, err := importer.ListProjects(commandContext(), telemetry.WrapTracker(client))
		if err != nil {
			FatalErrorWithHint(err.Error(), "Check api_url and api_key with 'easyimport config show'")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		byName, _ := cmd.Flags().GetBool("sort")
		if err := printProjects(cmd.OutOrStdout(), idx, asJSON, byName); err != nil {
			FatalError("%v", err)
		}
	},
}

func init() {
	projectsCmd.Flags().Bool("json", false, "Output in JSON format")
	projectsCmd.Flags().Bool("sort", false, "Sort by name instead of match order")
	rootCmd.AddCommand(projectsCmd)
}

type projectRow struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func printProjects(w io.Writer, idx importer.ProjectIndex, asJSON, byName bool) error {
	rows := make([]projectRow, 0, idx.Len())
	for _, id := range idx.IDs {
		rows = append(rows, projectRow{ID: id, Name: idx.Names[id]})
	}
	if byName {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	}

	if asJSON {
		return writeJSON(w, rows)
	}

	fmt.Fprintf(w, "%s\n", ui.RenderCategory(fmt.Sprintf("projects (%d)", len(rows))))
	for _, r := range rows {
		fmt.Fprintf(w, "  %s  %s\n", ui.RenderMuted(fmt.Sprintf("%6d", r.ID)), r.Name)
	}
	if idx.Truncated {
		fmt.Fprintf(w, "%s only the first %d of %d projects were returned\n",
			ui.RenderWarn(ui.IconWarn), idx.Len(), idx.Total)
	}
	return nil
}
