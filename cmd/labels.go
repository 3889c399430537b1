package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kozaktomas/face-gate/internal/enroll"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List and manage registered faces",
	Long:  `List every registered face label. Use subcommands to delete or rename faces.`,
	RunE:  runLabelsList,
}

var labelsDeleteCmd = &cobra.Command{
	Use:   "delete [name...]",
	Short: "Delete registered faces by label",
	Long: `Delete one or more registered faces.

Example:
  face-gate labels delete user0
  face-gate labels delete user0 user1 --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLabelsDelete,
}

var labelsRenameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a registered face",
	Args:  cobra.ExactArgs(2),
	RunE:  runLabelsRename,
}

func init() {
	rootCmd.AddCommand(labelsCmd)
	labelsCmd.AddCommand(labelsDeleteCmd)
	labelsCmd.AddCommand(labelsRenameCmd)

	labelsDeleteCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

// openCoordinator opens the configured store and wraps it in a coordinator.
// The returned close function releases the store.
func openCoordinator(cmd *cobra.Command) (*enroll.Coordinator, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return enroll.New(s, enroll.WithAutoNamePrefix(cfg.Enrollment.AutoNamePrefix)), s.Close, nil
}

func runLabelsList(cmd *cobra.Command, args []string) (err error) {
	coordinator, closeStore, err := openCoordinator(cmd)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore()) }()

	labels, err := coordinator.ListLabels(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(labels) == 0 {
		fmt.Fprintln(out, "No faces registered.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tLABEL")
	fmt.Fprintln(w, "-\t-----")
	for i, label := range labels {
		fmt.Fprintf(w, "%d\t%s\n", i+1, label)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal: %d faces\n", len(labels))
	return nil
}

func runLabelsDelete(cmd *cobra.Command, args []string) (err error) {
	skipConfirm := mustGetBool(cmd, "yes")
	out := cmd.OutOrStdout()

	coordinator, closeStore, err := openCoordinator(cmd)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore()) }()

	fmt.Fprintln(out, "Faces to delete:")
	for _, name := range args {
		fmt.Fprintf(out, "  - %s\n", name)
	}

	if !skipConfirm {
		fmt.Fprintf(out, "\nDelete %d face(s)? [y/N]: ", len(args))
		reader := bufio.NewReader(cmd.InOrStdin())
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	var deleted int
	var errs error
	for _, name := range args {
		if derr := coordinator.DeleteLabel(cmd.Context(), name); derr != nil {
			errs = multierr.Append(errs, derr)
			continue
		}
		deleted++
	}

	fmt.Fprintf(out, "Deleted %d face(s).\n", deleted)
	return errs
}

func runLabelsRename(cmd *cobra.Command, args []string) (err error) {
	coordinator, closeStore, err := openCoordinator(cmd)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore()) }()

	if err := coordinator.RenameLabel(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename face: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s.\n", args[0], args[1])
	return nil
}
