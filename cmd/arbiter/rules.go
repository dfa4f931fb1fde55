package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the rule catalog",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules with their versions and tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(echoEvaluator)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		if _, err := a.manager.LoadAll(ctx); err != nil {
			return fmt.Errorf("load rules: %w", err)
		}

		snap := a.manager.Snapshot()
		ids := make([]string, 0, len(snap.Rules))
		for id := range snap.Rules {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RULE\tVERSION\tENABLED\tTAGS")
		for _, id := range ids {
			meta := snap.Rules[id]
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
				id, meta.Version, meta.Enabled, strings.Join(meta.Tags, ","))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
}
