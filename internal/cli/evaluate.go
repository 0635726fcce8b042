package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"clerk/internal/intake"
	"clerk/internal/onboarding/handler"
	"clerk/internal/platform/config"
)

func newEvaluateCommand(e *env) *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:   "evaluate [snapshot.json|-]",
		Short: "Evaluate one client snapshot and print the report",
		Long: `Evaluate reads a flat JSON object of field values from a file, or from
stdin when the argument is "-" or missing, and prints the reconciliation
report with the decision.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) == 1 {
				name = args[0]
			}
			data, err := readInput(cmd.InOrStdin(), name)
			if err != nil {
				return err
			}
			record, err := intake.ParseRecord(data)
			if err != nil {
				return err
			}
			if clientID == "" {
				clientID = "stdin"
				if name != "-" {
					clientID = intake.ClientIDFromName(name)
				}
			}

			// The snapshot comes from the argument, not a store.
			e.cfg.Store.Backend = config.BackendMemory
			a, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Service.Evaluate(cmd.Context(), clientID, record)
			if err != nil {
				return err
			}
			out, err := handler.FromResult(result)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", "", "client id, derived from the file name by default")
	return cmd
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
