package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/eric2969/OR2025-Final/core/logger"
	"github.com/eric2969/OR2025-Final/core/model"
)

// Report summarizes a PublishPlan call.
type Report struct {
	Sent    int
	Acked   int
	Unacked []string
}

// Orders groups the plan's transfers and hide events by period. Periods
// without any event are skipped.
func Orders(runID string, plan *model.Plan) []Order {
	byPeriod := make(map[int]*Order)
	get := func(idx int, label string) *Order {
		o, ok := byPeriod[idx]
		if !ok {
			o = &Order{RunID: runID, PeriodIndex: idx, Period: label}
			byPeriod[idx] = o
		}
		return o
	}
	for _, t := range plan.Transfers {
		o := get(t.Period, t.Label)
		o.Transfers = append(o.Transfers, t)
	}
	for _, h := range plan.Hides {
		o := get(h.Period, h.Label)
		o.Hides = append(o.Hides, h)
	}
	out := make([]Order, 0, len(byPeriod))
	for _, o := range byPeriod {
		out = append(out, *o)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].PeriodIndex < out[b].PeriodIndex })
	return out
}

// PublishPlan sends one order per active period in period order. When
// ackTimeout is positive each order waits for its acknowledgment; missing
// acknowledgments are reported, not treated as failures. A send error stops
// the run.
func PublishPlan(ctx context.Context, c Client, runID string, plan *model.Plan, ackTimeout time.Duration, log logger.Logger) (Report, error) {
	var rep Report
	if c == nil || plan == nil {
		return rep, errors.New("mqtt: nil parameter provided to PublishPlan")
	}
	for _, o := range Orders(runID, plan) {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		id, err := c.SendOrder(o)
		if err != nil {
			return rep, fmt.Errorf("publish period %s: %w", o.Period, err)
		}
		rep.Sent++
		if ackTimeout <= 0 {
			continue
		}
		ok, err := c.WaitForAck(id, ackTimeout)
		if err != nil || !ok {
			if err != nil && !errors.Is(err, ErrAckTimeout) {
				log.Warnf("ack for period %s: %v", o.Period, err)
			}
			rep.Unacked = append(rep.Unacked, o.Period)
			continue
		}
		rep.Acked++
	}
	log.Infof("published %d order(s), %d acknowledged", rep.Sent, rep.Acked)
	return rep, nil
}
