package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"quorum-hq/arbiter/pkg/executor"
	"quorum-hq/arbiter/pkg/rules"
)

var execFlags struct {
	ruleIDs []string
	tags    []string
	all     bool
	mode    string
	input   string
}

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Evaluate rules once and print the results",
	Long: `Evaluate a set of rules against a JSON input document and print the
per-rule results as JSON.

Exactly one of --rule, --tags, or --all selects the rule set.

Examples:
  # Evaluate one rule
  arbiter exec --rule pricing/volume --input '{"amount": 250}'

  # Evaluate all rules tagged pricing or beta, concurrently
  arbiter exec --tags pricing,beta --mode parallel

  # Evaluate the whole catalog in bounded batches
  arbiter exec --all --mode batched`,
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().StringSliceVar(&execFlags.ruleIDs, "rule", nil, "rule IDs to evaluate")
	execCmd.Flags().StringSliceVar(&execFlags.tags, "tags", nil, "select rules carrying any of these tags")
	execCmd.Flags().BoolVar(&execFlags.all, "all", false, "evaluate every rule in the catalog")
	execCmd.Flags().StringVar(&execFlags.mode, "mode", "", "dispatch mode: sequential, parallel, or batched")
	execCmd.Flags().StringVar(&execFlags.input, "input", "{}", "JSON input document")
}

func runExec(cmd *cobra.Command, args []string) error {
	var input rules.Input
	if err := json.Unmarshal([]byte(execFlags.input), &input); err != nil {
		return fmt.Errorf("--input is not valid JSON: %w", err)
	}

	a, err := buildApp(echoEvaluator)
	if err != nil {
		return err
	}
	defer a.close()

	sel := executor.Selector{
		RuleIDs: execFlags.ruleIDs,
		Tags:    execFlags.tags,
		All:     execFlags.all,
		Mode:    executor.Mode(execFlags.mode),
	}

	res, err := a.coordinator.ExecuteMany(context.Background(), sel, input)
	if err != nil {
		return err
	}

	printResult(res)
	if res.Failed() > 0 {
		return fmt.Errorf("%d rule(s) failed", res.Failed())
	}
	return nil
}

// printResult writes per-rule outcomes as indented JSON.
func printResult(res *executor.Result) {
	type ruleOutcome struct {
		Record     map[string]any `json:"record,omitempty"`
		Error      string         `json:"error,omitempty"`
		DurationMS int64          `json:"duration_ms"`
	}

	outcomes := make(map[string]ruleOutcome, res.Succeeded()+res.Failed())
	for id, out := range res.Results {
		outcomes[id] = ruleOutcome{Record: out.Record, DurationMS: out.Duration.Milliseconds()}
	}
	for id, err := range res.Errors {
		outcomes[id] = ruleOutcome{Error: err.Error()}
	}

	ids := make([]string, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, id := range ids {
		fmt.Printf("%s:\n", id)
		_ = enc.Encode(outcomes[id])
	}
	fmt.Printf("succeeded=%d failed=%d duration=%s\n",
		res.Succeeded(), res.Failed(), res.Duration.Round(time.Millisecond))
}
