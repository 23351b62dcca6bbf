package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/ruleblocks/internal/core/db"
	"github.com/solatis/ruleblocks/internal/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded validation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleSet, _ := cmd.Flags().GetString("rule-set")
		limit, _ := cmd.Flags().GetInt("limit")

		store, closer, err := requireStore()
		if err != nil {
			return err
		}
		defer closer.Close()

		runs, err := store.ListRuns(cmd.Context(), ruleSet, limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tRULE SET\tOK\tERRORS\tCREATED AT")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%s\n", r.ID, r.RuleSet, r.OK, r.ErrorCount, r.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := types.ParseRunID(args[0])
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", args[0], err)
		}

		store, closer, err := requireStore()
		if err != nil {
			return err
		}
		defer closer.Close()

		report, err := store.GetRun(cmd.Context(), id)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	runsListCmd.Flags().String("rule-set", "", "only list runs of this rule set")
	runsListCmd.Flags().Int("limit", db.DefaultListLimit, "maximum runs to list")
}

// requireStore opens the migrated run store or fails when none is configured.
func requireStore() (*db.Store, io.Closer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.DBURL == "" {
		return nil, nil, fmt.Errorf("--db-url or RB_STORE_DB_URL required")
	}
	return openStore(cfg)
}
