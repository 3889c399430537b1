// Package enroll implements the enrollment handshake: an administrator arms
// a single pending label, and the next signature submitted by a sensor is
// stored under it. Without a pending label the signature is stored under the
// first free auto-generated name (user0, user1, ...).
package enroll

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/kozaktomas/face-gate/internal/events"
	"github.com/kozaktomas/face-gate/internal/logger"
	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store"
)

// DefaultAutoNamePrefix is used for signatures enrolled without arming.
const DefaultAutoNamePrefix = "user"

var (
	ErrEmptyLabel     = errors.New("label must not be empty")
	ErrDuplicateLabel = errors.New("a face is already registered with this label")
	ErrEmptyName      = errors.New("new name must not be empty")
	ErrSameName       = errors.New("new name is the same as the current name")
)

// Coordinator owns the arming slot and serialises every store mutation that
// goes through it, so check-then-act sequences cannot interleave.
type Coordinator struct {
	store     store.Store
	publisher events.Publisher
	prefix    string

	mu      sync.Mutex
	armed   string
	isArmed bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPublisher sends notifications to p.
func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithAutoNamePrefix overrides the "user" prefix of auto-generated labels.
func WithAutoNamePrefix(prefix string) Option {
	return func(c *Coordinator) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// New creates an unarmed coordinator backed by s.
func New(s store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     s,
		publisher: events.Discard{},
		prefix:    DefaultAutoNamePrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Arm sets the label the next enrolled signature will be stored under.
// A pending label is silently replaced.
func (c *Coordinator) Arm(ctx context.Context, label string) (string, error) {
	label = store.NormalizeLabel(label)
	if store.IsBlank(label) {
		return "", ErrEmptyLabel
	}

	c.mu.Lock()
	exists, err := c.store.Exists(ctx, label)
	if err != nil {
		c.mu.Unlock()
		return "", fmt.Errorf("check label %q: %w", label, err)
	}
	if exists {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}
	previous, wasArmed := c.armed, c.isArmed
	c.armed, c.isArmed = label, true
	c.mu.Unlock()

	if wasArmed && previous != label {
		logger.WarnKV(ctx, "pending registration replaced", "previous", previous, "label", label)
	}
	logger.InfoKV(ctx, "registration armed", "label", label)
	c.publisher.Publish(events.Event{
		Type:    events.TypeArmed,
		Label:   label,
		Message: fmt.Sprintf("Ready to register '%s'. Use the camera to enroll the face.", label),
	})
	return label, nil
}

// Armed returns the pending label, if any.
func (c *Coordinator) Armed() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed, c.isArmed
}

// Disarm clears the pending label and returns what was pending.
func (c *Coordinator) Disarm(ctx context.Context) (string, bool) {
	c.mu.Lock()
	label, ok := c.consume()
	c.mu.Unlock()

	if ok {
		logger.InfoKV(ctx, "registration disarmed", "label", label)
		c.publisher.Publish(events.Event{
			Type:    events.TypeDisarmed,
			Label:   label,
			Message: fmt.Sprintf("Registration of '%s' cancelled.", label),
		})
	}
	return label, ok
}

// consume reads and clears the arming slot. Must be called with mu held.
func (c *Coordinator) consume() (string, bool) {
	label, ok := c.armed, c.isArmed
	c.armed, c.isArmed = "", false
	return label, ok
}

// nextAutoName returns the first prefixN label with no stored entry,
// scanning from 0 on every call. Must be called with mu held.
func (c *Coordinator) nextAutoName(ctx context.Context) (string, error) {
	for i := 0; ; i++ {
		candidate := c.prefix + strconv.Itoa(i)
		exists, err := c.store.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check label %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// Enroll stores sig under the pending label, or under an auto-generated label
// when nothing is armed, and returns the label used.
//
// The arming slot is consumed before the duplicate and storage checks run:
// a failed enrollment does not restore it and the administrator must re-arm.
func (c *Coordinator) Enroll(ctx context.Context, sig signature.Signature) (string, error) {
	if err := sig.Validate(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	label, armed := c.consume()
	if !armed {
		logger.WarnKV(ctx, "no registration armed, generating label")
		var err error
		if label, err = c.nextAutoName(ctx); err != nil {
			return "", err
		}
		logger.InfoKV(ctx, "generated label", "label", label)
	}

	if err := c.persist(ctx, label, sig); err != nil {
		logger.ErrorKV(ctx, "enrollment failed", "label", label, "armed", armed, "error", err)
		c.publisher.Publish(events.Event{
			Type:    events.TypeEnrollFailed,
			Label:   label,
			Message: fmt.Sprintf("Could not register '%s': %v", label, err),
		})
		return "", err
	}

	logger.InfoKV(ctx, "signature enrolled", "label", label, "bytes", sig.Len(), "armed", armed)
	c.publisher.Publish(events.Event{
		Type:    events.TypeEnrolled,
		Label:   label,
		Message: fmt.Sprintf("Face '%s' registered successfully!", label),
	})
	return label, nil
}

// persist runs the duplicate guard and the write. Must be called with mu held.
func (c *Coordinator) persist(ctx context.Context, label string, sig signature.Signature) error {
	exists, err := c.store.Exists(ctx, label)
	if err != nil {
		return fmt.Errorf("check label %q: %w", label, err)
	}
	if exists {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}

	if err := c.store.Create(ctx, label, sig); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
		return fmt.Errorf("save signature %q: %w", label, err)
	}
	return nil
}

// ListLabels returns every enrolled label sorted ascending.
func (c *Coordinator) ListLabels(ctx context.Context) ([]string, error) {
	labels, err := c.store.Labels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

// DeleteLabel removes an enrolled signature.
func (c *Coordinator) DeleteLabel(ctx context.Context, label string) error {
	c.mu.Lock()
	err := c.store.Delete(ctx, label)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete %q: %w", label, err)
	}

	logger.InfoKV(ctx, "face deleted", "label", label)
	c.publisher.Publish(events.Event{
		Type:    events.TypeDeleted,
		Label:   label,
		Message: fmt.Sprintf("Face '%s' deleted successfully.", label),
	})
	return nil
}

// RenameLabel moves an enrolled signature to a new label.
func (c *Coordinator) RenameLabel(ctx context.Context, oldLabel, newLabel string) error {
	newLabel = store.NormalizeLabel(newLabel)
	if store.IsBlank(newLabel) {
		return ErrEmptyName
	}
	if newLabel == oldLabel {
		return ErrSameName
	}

	c.mu.Lock()
	err := c.rename(ctx, oldLabel, newLabel)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "face renamed", "old", oldLabel, "new", newLabel)
	c.publisher.Publish(events.Event{
		Type:     events.TypeRenamed,
		Label:    oldLabel,
		NewLabel: newLabel,
		Message:  fmt.Sprintf("Face '%s' renamed to '%s' successfully!", oldLabel, newLabel),
	})
	return nil
}

// rename must be called with mu held.
func (c *Coordinator) rename(ctx context.Context, oldLabel, newLabel string) error {
	found, err := c.store.Exists(ctx, oldLabel)
	if err != nil {
		return fmt.Errorf("check label %q: %w", oldLabel, err)
	}
	if !found {
		return fmt.Errorf("rename: %w: %q", store.ErrNotFound, oldLabel)
	}
	taken, err := c.store.Exists(ctx, newLabel)
	if err != nil {
		return fmt.Errorf("check label %q: %w", newLabel, err)
	}
	if taken {
		return fmt.Errorf("rename: %w: %q", store.ErrAlreadyExists, newLabel)
	}
	if err := c.store.Rename(ctx, oldLabel, newLabel); err != nil {
		return fmt.Errorf("rename %q: %w", oldLabel, err)
	}
	return nil
}
