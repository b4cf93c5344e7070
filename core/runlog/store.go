// Package runlog keeps a history of planning runs so results can be compared
// across parameter changes.
package runlog

import (
	"context"
	"time"

	"github.com/eric2969/OR2025-Final/core/model"
)

// RunRecord captures one planning or sweep run.
type RunRecord struct {
	RunID     string        `json:"run_id"`
	Timestamp time.Time     `json:"timestamp"`
	Command   string        `json:"command"`
	Strategy  string        `json:"strategy"`
	Input     string        `json:"input"`
	Area      string        `json:"area,omitempty"`
	Stations  int           `json:"stations"`
	Periods   int           `json:"periods"`
	Windows   int           `json:"windows"`
	Params    model.Params  `json:"params"`
	Summary   model.Summary `json:"summary"`
	OutputDir string        `json:"output_dir,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start    time.Time
	End      time.Time
	Strategy string
	RunID    string
	// Limit keeps only the most recent records when positive.
	Limit int
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

func (q Query) matches(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Strategy != "" && r.Strategy != q.Strategy {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	return true
}

// limit keeps the last n records of an oldest-first slice.
func (q Query) limit(recs []RunRecord) []RunRecord {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                     { return nil }
