package enroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-gate/internal/events"
	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store"
	"github.com/kozaktomas/face-gate/internal/store/filestore"
	"github.com/kozaktomas/face-gate/internal/store/mock"
)

var (
	sigA = signature.Signature{1, 1, 1}
	sigB = signature.Signature{10, 10, 10}
)

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, ev := range r.events {
		types[i] = ev.Type
	}
	return types
}

// TestEnroll_ArmedThenAuto verifies the armed label is consumed once and the
// next enrollment falls back to auto-naming.
func TestEnroll_ArmedThenAuto(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := mock.NewMockStore()
	c := New(s)

	label, err := c.Arm(ctx, "Alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", label)

	pending, ok := c.Armed()
	require.True(t, ok)
	require.Equal(t, "Alice", pending)

	label, err = c.Enroll(ctx, sigA)
	require.NoError(t, err)
	require.Equal(t, "Alice", label)

	_, ok = c.Armed()
	require.False(t, ok)

	label, err = c.Enroll(ctx, sigB)
	require.NoError(t, err)
	require.Equal(t, "user0", label)

	stored, ok := s.Get("Alice")
	require.True(t, ok)
	require.Equal(t, sigA, stored)
}

// TestEnroll_AutoNameScansFromZero checks the auto-name scan restarts at 0 and
// returns the first free candidate.
func TestEnroll_AutoNameScansFromZero(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := mock.NewMockStore()
	s.AddEntry("user0", sigA)
	s.AddEntry("user1", sigA)
	c := New(s)

	label, err := c.Enroll(ctx, sigB)
	require.NoError(t, err)
	require.Equal(t, "user2", label)

	require.NoError(t, c.DeleteLabel(ctx, "user1"))

	label, err = c.Enroll(ctx, sigB)
	require.NoError(t, err)
	require.Equal(t, "user1", label)

	label, err = c.Enroll(ctx, sigB)
	require.NoError(t, err)
	require.Equal(t, "user3", label)
}

func TestEnroll_CustomPrefix(t *testing.T) {
	t.Parallel()
	c := New(mock.NewMockStore(), WithAutoNamePrefix("guest"))

	label, err := c.Enroll(context.Background(), sigA)
	require.NoError(t, err)
	require.Equal(t, "guest0", label)
}

func TestEnroll_EmptySignature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := mock.NewMockStore()
	c := New(s)
	_, err := c.Arm(ctx, "Alice")
	require.NoError(t, err)

	_, err = c.Enroll(ctx, signature.Signature{})
	require.ErrorIs(t, err, signature.ErrEmpty)

	// Validation happens before consumption.
	pending, ok := c.Armed()
	require.True(t, ok)
	require.Equal(t, "Alice", pending)
}

// TestEnroll_FailedWriteDoesNotRestoreSlot pins consume-before-validate.
func TestEnroll_FailedWriteDoesNotRestoreSlot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := mock.NewMockStore()
	c := New(s)
	_, err := c.Arm(ctx, "Alice")
	require.NoError(t, err)

	s.CreateError = store.Fail("write", "Alice", io.ErrShortWrite)
	_, err = c.Enroll(ctx, sigA)
	require.ErrorIs(t, err, store.ErrStorageFailure)

	_, ok := c.Armed()
	require.False(t, ok)

	_, found := s.Get("Alice")
	require.False(t, found)
}

// TestEnroll_DuplicateAfterArm covers a label taken between Arm and Enroll.
func TestEnroll_DuplicateAfterArm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := mock.NewMockStore()
	c := New(s)
	_, err := c.Arm(ctx, "Alice")
	require.NoError(t, err)

	s.AddEntry("Alice", sigB)

	_, err = c.Enroll(ctx, sigA)
	require.ErrorIs(t, err, ErrDuplicateLabel)

	stored, _ := s.Get("Alice")
	require.Equal(t, sigB, stored, "existing entry must not be overwritten")

	_, ok := c.Armed()
	require.False(t, ok)
}

// TestEnroll_CreateConflictMapsToDuplicate covers a backend that only detects
// the conflict at insert time.
func TestEnroll_CreateConflictMapsToDuplicate(t *testing.T) {
	t.Parallel()
	s := mock.NewMockStore()
	s.CreateError = fmt.Errorf("%w: %q", store.ErrAlreadyExists, "user0")
	c := New(s)

	_, err := c.Enroll(context.Background(), sigA)
	require.ErrorIs(t, err, ErrDuplicateLabel)
}

func TestEnroll_ExistsFailureIsStorageFailure(t *testing.T) {
	t.Parallel()
	s := mock.NewMockStore()
	s.ExistsError = store.Fail("stat", "user0", io.EOF)
	c := New(s)

	_, err := c.Enroll(context.Background(), sigA)
	require.ErrorIs(t, err, store.ErrStorageFailure)
}

func TestArm_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := mock.NewMockStore()
	s.AddEntry("Bob", sigA)
	c := New(s)

	_, err := c.Arm(ctx, "")
	require.ErrorIs(t, err, ErrEmptyLabel)
	_, err = c.Arm(ctx, "   ")
	require.ErrorIs(t, err, ErrEmptyLabel)

	_, err = c.Arm(ctx, "Bob")
	require.ErrorIs(t, err, ErrDuplicateLabel)

	_, ok := c.Armed()
	require.False(t, ok, "failed arm must leave the slot untouched")
}

func TestArm_LastWriterWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := New(mock.NewMockStore())

	_, err := c.Arm(ctx, "Alice")
	require.NoError(t, err)
	_, err = c.Arm(ctx, "Carol")
	require.NoError(t, err)

	label, err := c.Enroll(ctx, sigA)
	require.NoError(t, err)
	require.Equal(t, "Carol", label)
}

func TestArm_NormalizesToNFC(t *testing.T) {
	t.Parallel()
	c := New(mock.NewMockStore())

	label, err := c.Arm(context.Background(), "Jose\u0301")
	require.NoError(t, err)
	require.Equal(t, "Jos\u00e9", label)
}

func TestArm_InvalidLabelFromBackend(t *testing.T) {
	t.Parallel()
	fs, err := filestore.New(t.TempDir(), "")
	require.NoError(t, err)
	c := New(fs)

	_, err = c.Arm(context.Background(), "../etc/passwd")
	require.ErrorIs(t, err, store.ErrInvalidLabel)
}

func TestDisarm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rec := &recorder{}
	c := New(mock.NewMockStore(), WithPublisher(rec))

	_, ok := c.Disarm(ctx)
	require.False(t, ok)

	_, err := c.Arm(ctx, "Alice")
	require.NoError(t, err)
	label, ok := c.Disarm(ctx)
	require.True(t, ok)
	require.Equal(t, "Alice", label)

	label, err = c.Enroll(ctx, sigA)
	require.NoError(t, err)
	require.Equal(t, "user0", label)

	require.Equal(t, []string{events.TypeArmed, events.TypeDisarmed, events.TypeEnrolled}, rec.types())
}

func TestListLabels_ReflectsDeletesAndRenames(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := mock.NewMockStore()
	for _, label := range []string{"dave", "alice", "carol", "bob"} {
		s.AddEntry(label, sigA)
	}
	c := New(s)

	require.NoError(t, c.DeleteLabel(ctx, "carol"))
	require.NoError(t, c.RenameLabel(ctx, "alice", "zed"))
	require.NoError(t, c.DeleteLabel(ctx, "bob"))

	labels, err := c.ListLabels(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"dave", "zed"}, labels)
}

func TestDeleteLabel_NotFound(t *testing.T) {
	t.Parallel()
	c := New(mock.NewMockStore())

	err := c.DeleteLabel(context.Background(), "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenameLabel_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := mock.NewMockStore()
	s.AddEntry("Bob", sigA)
	s.AddEntry("Carol", sigB)
	c := New(s)

	require.ErrorIs(t, c.RenameLabel(ctx, "Bob", ""), ErrEmptyName)
	require.ErrorIs(t, c.RenameLabel(ctx, "Bob", "Bob"), ErrSameName)
	require.ErrorIs(t, c.RenameLabel(ctx, "Nobody", "Dan"), store.ErrNotFound)
	require.ErrorIs(t, c.RenameLabel(ctx, "Bob", "Carol"), store.ErrAlreadyExists)

	s.RenameError = store.Fail("rename", "Bob", io.ErrClosedPipe)
	require.ErrorIs(t, c.RenameLabel(ctx, "Bob", "Dan"), store.ErrStorageFailure)

	labels, err := c.ListLabels(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Bob", "Carol"}, labels, "failed renames must not change the store")
}

func TestListLabels_StorageFailure(t *testing.T) {
	t.Parallel()
	s := mock.NewMockStore()
	s.LabelsError = store.Fail("list", "", errors.New("disk gone"))
	c := New(s)

	_, err := c.ListLabels(context.Background())
	require.ErrorIs(t, err, store.ErrStorageFailure)
}

// TestEnroll_ConcurrentConsumesOnce ensures only one of many concurrent
// enrollments receives the armed label and all labels are distinct.
func TestEnroll_ConcurrentConsumesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs, err := filestore.New(t.TempDir(), "")
	require.NoError(t, err)
	c := New(fs)
	_, err = c.Arm(ctx, "Alice")
	require.NoError(t, err)

	const workers = 16
	labels := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			label, err := c.Enroll(ctx, sigA)
			if err == nil {
				labels <- label
			}
		}()
	}
	wg.Wait()
	close(labels)

	seen := make(map[string]bool)
	alice := 0
	for label := range labels {
		require.False(t, seen[label], "label %q assigned twice", label)
		seen[label] = true
		if label == "Alice" {
			alice++
		}
	}
	require.Len(t, seen, workers)
	require.Equal(t, 1, alice)
}

func TestEnroll_PublishesOutcome(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rec := &recorder{}
	s := mock.NewMockStore()
	c := New(s, WithPublisher(rec))

	_, err := c.Enroll(ctx, sigA)
	require.NoError(t, err)

	s.CreateError = store.Fail("write", "user1", io.ErrShortWrite)
	_, err = c.Enroll(ctx, sigA)
	require.Error(t, err)

	require.Equal(t, []string{events.TypeEnrolled, events.TypeEnrollFailed}, rec.types())
}
