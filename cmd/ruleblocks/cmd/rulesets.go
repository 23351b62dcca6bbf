package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rulesetsCmd = &cobra.Command{
	Use:   "rulesets",
	Short: "List registered rule sets with their fingerprints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := defaultRegistry(cfg)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFINGERPRINT\tDESCRIPTION")
		for _, e := range reg.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Fingerprint, e.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(rulesetsCmd)
}
