// Package match identifies a query signature by linear nearest-neighbour
// search over every stored signature.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/face-gate/internal/logger"
	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store"
)

const (
	// Unknown is reported when no stored signature is close enough.
	Unknown = "Unknown"

	// DefaultThreshold is the maximum accepted L2 distance.
	DefaultThreshold = 4500
)

// Result describes the outcome of a recognition.
type Result struct {
	// Label is the matched label, or Unknown.
	Label string `json:"label"`
	// Nearest is the closest label even when it was rejected; empty if nothing was comparable.
	Nearest string `json:"nearest,omitempty"`
	// Distance to Nearest; +Inf when nothing was comparable.
	Distance float64 `json:"distance"`
	Matched  bool    `json:"matched"`
	Compared int     `json:"compared"`
	Skipped  int     `json:"skipped"`
}

// MarshalJSON encodes an infinite distance as null.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := struct {
		plain
		Distance *float64 `json:"distance"`
	}{plain: plain(r)}
	if !math.IsInf(r.Distance, 0) {
		out.Distance = &r.Distance
	}
	return json.Marshal(out)
}

// Engine matches queries against a store.
type Engine struct {
	reader    store.Reader
	threshold float64
}

// NewEngine creates an engine that accepts matches strictly below threshold.
func NewEngine(reader store.Reader, threshold float64) (*Engine, error) {
	if reader == nil {
		return nil, errors.New("store reader is required")
	}
	if threshold <= 0 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("threshold must be positive, got %v", threshold)
	}
	return &Engine{reader: reader, threshold: threshold}, nil
}

// Threshold returns the configured acceptance threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Recognize returns the stored label closest to query when its distance is
// below the threshold, else Unknown. Entries of a different length are
// skipped. Entries are scanned in label order, so on equal distance the
// lexicographically smallest label wins.
func (e *Engine) Recognize(ctx context.Context, query signature.Signature) (Result, error) {
	if err := query.Validate(); err != nil {
		return Result{}, err
	}

	entries, err := e.reader.Entries(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read stored signatures: %w", err)
	}
	// Backends already return label order; sorting again keeps the tie-break
	// independent of the backend.
	store.SortEntries(entries)

	result := Result{Label: Unknown, Distance: math.Inf(1)}
	for _, entry := range entries {
		if !query.Comparable(entry.Signature) {
			logger.DebugKV(ctx, "skipping signature with incompatible length",
				"label", entry.Label, "stored", entry.Signature.Len(), "query", query.Len())
			result.Skipped++
			continue
		}
		result.Compared++

		if d := signature.Distance(query, entry.Signature); d < result.Distance {
			result.Distance = d
			result.Nearest = entry.Label
		}
	}

	if result.Distance < e.threshold {
		result.Label = result.Nearest
		result.Matched = true
		logger.InfoKV(ctx, "face recognized", "label", result.Label, "distance", result.Distance)
	} else {
		logger.InfoKV(ctx, "face unknown", "nearest", result.Nearest, "distance", result.Distance,
			"threshold", e.threshold, "compared", result.Compared, "skipped", result.Skipped)
	}
	return result, nil
}
