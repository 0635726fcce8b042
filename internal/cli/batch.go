package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"clerk/internal/onboarding"
	"clerk/internal/platform/config"
	"clerk/internal/reconcile"
)

func newBatchCommand(e *env) *cobra.Command {
	var (
		dir        string
		labelsPath string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate every stored snapshot and score the decisions",
		Long: `Batch evaluates every snapshot in the configured store. Expected
decisions come from --labels, a JSON object of client id to "Accept" or
"Reject"; without it numeric ids whose value mod 1000 is at most 500 are
expected to be accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir != "" {
				e.cfg.Store.Backend = config.BackendDir
				e.cfg.Store.Dir = dir
			}
			labels := onboarding.ModuloLabeler()
			if labelsPath != "" {
				loaded, err := loadLabels(labelsPath)
				if err != nil {
					return err
				}
				labels = onboarding.MapLabeler(loaded)
			}

			a, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Service.EvaluateBatch(cmd.Context(), labels)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary, verbose)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "read snapshots from this folder instead of the configured store")
	cmd.Flags().StringVar(&labelsPath, "labels", "", "JSON file of expected decisions by client id")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every decision")
	return cmd
}

func loadLabels(path string) (map[string]reconcile.Decision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	labels := make(map[string]reconcile.Decision, len(raw))
	for id, v := range raw {
		d, err := reconcile.ParseDecision(v)
		if err != nil {
			return nil, fmt.Errorf("label for %s: %w", id, err)
		}
		labels[id] = d
	}
	return labels, nil
}

func printSummary(w io.Writer, s *onboarding.BatchSummary, verbose bool) {
	if verbose {
		for _, r := range s.Results {
			fmt.Fprintf(w, "%s\t%s\t%.2f\n", r.ClientID, r.Decision, r.Report.ConsistencyPercentage)
		}
	}
	fmt.Fprintf(w, "evaluated: %d\n", len(s.Results))
	fmt.Fprintf(w, "labeled: %d\n", s.Labeled)
	fmt.Fprintf(w, "correct: %d\n", s.Correct)
	fmt.Fprintf(w, "false positives: %d\n", len(s.FalsePositives))
	for _, m := range s.FalsePositives {
		fmt.Fprintf(w, "  %s expected %s\n", m.ClientID, m.Expected)
	}
	fmt.Fprintf(w, "false negatives: %d\n", len(s.FalseNegatives))
	for _, m := range s.FalseNegatives {
		fmt.Fprintf(w, "  %s expected %s\n", m.ClientID, m.Expected)
	}
	fmt.Fprintf(w, "accuracy: %.2f%%\n", s.Accuracy())
}
