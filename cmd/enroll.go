package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kozaktomas/face-gate/internal/signature"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll FILE",
	Short: "Register a signature file",
	Long: `Register the raw signature stored in FILE, as a sensor would.

With --name the label is armed first. Without it the next free automatic
name is used.

Example:
  face-gate enroll --name alice alice.face
  face-gate enroll capture.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Label to register the signature under")
}

func runEnroll(cmd *cobra.Command, args []string) (err error) {
	name := mustGetString(cmd, "name")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}

	coordinator, closeStore, err := openCoordinator(cmd)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore()) }()

	ctx := cmd.Context()
	if name != "" {
		if _, err := coordinator.Arm(ctx, name); err != nil {
			return fmt.Errorf("failed to arm %q: %w", name, err)
		}
	}

	label, err := coordinator.Enroll(ctx, signature.FromBytes(data))
	if err != nil {
		return fmt.Errorf("failed to enroll: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%d bytes)\n", label, len(data))
	return nil
}
