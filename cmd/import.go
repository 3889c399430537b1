package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kozaktomas/face-gate/internal/logger"
	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Copy signature files from a directory into the configured store",
	Long: `Import every signature file from DIR into the configured store. The file
name without its extension becomes the label. Labels that are already
registered are skipped, so the command can be re-run safely.

Example:
  STORE_BACKEND=postgres face-gate import ./registered_faces`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("ext", ".face", "Extension of the signature files to import")
	importCmd.Flags().Bool("quiet", false, "Hide the progress bar")
}

// importSummary counts the outcome of an import run.
type importSummary struct {
	Imported int
	Skipped  int
	Failed   int
}

// importFiles lists the files in dir carrying ext, sorted by name.
func importFiles(dir, ext string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// importSignatures copies every file into dst. Per-file failures are
// collected and returned together after all files were attempted.
func importSignatures(ctx context.Context, dst store.Store, files []string, ext string, bar *progressbar.ProgressBar) (importSummary, error) {
	var summary importSummary
	var errs error

	for _, path := range files {
		label := store.NormalizeLabel(strings.TrimSuffix(filepath.Base(path), ext))
		err := importOne(ctx, dst, path, label)
		switch {
		case errors.Is(err, errSkipExisting):
			summary.Skipped++
		case err != nil:
			summary.Failed++
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
		default:
			summary.Imported++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return summary, errs
}

var errSkipExisting = errors.New("label already registered")

func importOne(ctx context.Context, dst store.Store, path, label string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sig := signature.FromBytes(data)
	if err := sig.Validate(); err != nil {
		return err
	}
	exists, err := dst.Exists(ctx, label)
	if err != nil {
		return err
	}
	if exists {
		logger.DebugKV(ctx, "skipping registered label", "label", label)
		return errSkipExisting
	}
	return dst.Create(ctx, label, sig)
}

func runImport(cmd *cobra.Command, args []string) (err error) {
	ext := mustGetString(cmd, "ext")
	quiet := mustGetBool(cmd, "quiet")
	out := cmd.OutOrStdout()

	files, err := importFiles(args[0], ext)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No %s files found in %s\n", ext, args[0])
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dst, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dst.Close()) }()

	var barWriter io.Writer = os.Stderr
	if quiet {
		barWriter = io.Discard
	}
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(barWriter),
		progressbar.OptionSetDescription("Importing faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	summary, importErr := importSignatures(cmd.Context(), dst, files, ext, bar)
	_ = bar.Finish()

	fmt.Fprintf(out, "\nImported %d, skipped %d, failed %d\n", summary.Imported, summary.Skipped, summary.Failed)
	for _, e := range multierr.Errors(importErr) {
		fmt.Fprintf(out, "  - %v\n", e)
	}
	if importErr != nil {
		return fmt.Errorf("%d file(s) failed to import", summary.Failed)
	}
	return nil
}
