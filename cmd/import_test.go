package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store/mock"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func TestImportSignatures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alice.face", []byte{1, 2, 3})
	writeFile(t, dir, "bob.face", []byte{4, 5, 6})
	writeFile(t, dir, "empty.face", nil)
	writeFile(t, dir, "notes.txt", []byte("ignored"))

	dst := mock.NewMockStore()
	dst.AddEntry("bob", signature.Signature{9})

	files, err := importFiles(dir, ".face")
	require.NoError(t, err)
	require.Len(t, files, 3)

	summary, err := importSignatures(context.Background(), dst, files, ".face", nil)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.ErrorIs(t, err, signature.ErrEmpty)
	require.Equal(t, importSummary{Imported: 1, Skipped: 1, Failed: 1}, summary)

	got, ok := dst.Get("alice")
	require.True(t, ok)
	require.Equal(t, signature.Signature{1, 2, 3}, got)

	kept, _ := dst.Get("bob")
	require.Equal(t, signature.Signature{9}, kept)
}

func TestImportSignatures_AllSucceed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "user0.face", []byte{1})
	writeFile(t, dir, "user1.face", []byte{2})

	dst := mock.NewMockStore()
	files, err := importFiles(dir, ".face")
	require.NoError(t, err)

	summary, err := importSignatures(context.Background(), dst, files, ".face", nil)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Imported)

	labels, err := dst.Labels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"user0", "user1"}, labels)
}
