package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kozaktomas/face-gate/internal/match"
	"github.com/kozaktomas/face-gate/internal/signature"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize FILE",
	Short: "Identify a signature file against the registered faces",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecognize(cmd *cobra.Command, args []string) (err error) {
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, s.Close()) }()

	engine, err := match.NewEngine(s, cfg.Recognition.Threshold)
	if err != nil {
		return err
	}
	result, err := engine.Recognize(cmd.Context(), signature.FromBytes(data))
	if err != nil {
		return fmt.Errorf("failed to recognize: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(out, result.Label)
	if result.Compared == 0 {
		fmt.Fprintf(out, "  No comparable signatures (%d skipped)\n", result.Skipped)
		return nil
	}
	fmt.Fprintf(out, "  Nearest:   %s\n", result.Nearest)
	fmt.Fprintf(out, "  Distance:  %.2f (threshold %.0f)\n", result.Distance, engine.Threshold())
	fmt.Fprintf(out, "  Compared:  %d, skipped %d\n", result.Compared, result.Skipped)
	return nil
}
