package rebalance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric2969/OR2025-Final/core/model"
	"github.com/eric2969/OR2025-Final/infra/logger"
)

func TestNewGreedy_Validation(t *testing.T) {
	_, err := NewGreedy(testParams(), false, nil, nil)
	assert.Error(t, err)

	bad := testParams()
	bad.MaxHideFraction = 2
	_, err = NewGreedy(bad, false, nil, logger.NopLogger{})
	assert.ErrorContains(t, err, "max_hide_fraction")
}

func TestGreedy_StopBudget(t *testing.T) {
	tbl := buildTable(t, labels(1),
		station{id: "S1", cap: 10, ret: []float64{5}},
		station{id: "S2", cap: 10, ret: []float64{3}},
		station{id: "S3", cap: 20, borrow: []float64{15}},
	)
	params := testParams()
	params.TruckCount = 1
	params.MaxVisitsPerTruck = 1

	plan, err := greedyPlanner(t, params, false).Plan(context.Background(), tbl, []int{10, 10, 0})
	require.NoError(t, err)

	require.Len(t, plan.Transfers, 1)
	assert.Equal(t, model.Transfer{
		Period: 0, Label: "08:00", From: 0, To: 2,
		FromID: "S1", FromName: "Station S1", ToID: "S3", ToName: "Station S3",
		Quantity: 5,
	}, plan.Transfers[0])

	require.Len(t, plan.Hides, 2)
	assert.Equal(t, "S2", plan.Hides[0].StationID)
	assert.Equal(t, 3, plan.Hides[0].Hidden)
	assert.Equal(t, "S3", plan.Hides[1].StationID)
	assert.Equal(t, 8, plan.Hides[1].Released)
	assert.Equal(t, []int{5, 7, 13}, plan.Final)
}

func TestGreedy_DispatchBudgetSplitsTransfers(t *testing.T) {
	tbl := buildTable(t, labels(1),
		station{id: "S1", cap: 20, ret: []float64{12}},
		station{id: "S2", cap: 20, borrow: []float64{4}},
		station{id: "S3", cap: 20, borrow: []float64{6}},
	)
	params := testParams()
	params.TruckCount = 1
	params.TruckCapacity = 8
	params.MaxHideFraction = 0

	plan, err := greedyPlanner(t, params, true).Plan(context.Background(), tbl, []int{20, 0, 0})
	require.NoError(t, err)

	// Largest shortage first, then the remaining budget.
	require.Len(t, plan.Transfers, 2)
	assert.Equal(t, "S2", plan.Transfers[0].ToID)
	assert.Equal(t, 2, plan.Transfers[0].Quantity)
	assert.Equal(t, "S3", plan.Transfers[1].ToID)
	assert.Equal(t, 6, plan.Transfers[1].Quantity)
	assert.Equal(t, 8, plan.Summary.Dispatched)
	assert.Empty(t, plan.Hides)

	v, err := Verify(tbl, plan, params)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestGreedy_FractionalDemandRoundsUp(t *testing.T) {
	assert.Equal(t, 3, unmet(7.2, 5))
	assert.Equal(t, 2, unmet(7, 5))
	assert.Equal(t, 0, unmet(4.5, 5))
	assert.Equal(t, []int{2, 0, 3}, byAmount([]int{4, 0, 7, 4}))
}

func TestGreedy_StrictLedgerHoldsOnMixedInstance(t *testing.T) {
	tbl := mixedInstance(t)
	params := mixedParams()

	plan, err := greedyPlanner(t, params, true).Plan(context.Background(), tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, model.QualityHeuristic, plan.Summary.Quality)
	assert.Equal(t, StrategyGreedy, plan.Strategy)
	assert.Zero(t, plan.Delay)
	assert.Zero(t, plan.Summary.LedgerDeficits)

	v, err := Verify(tbl, plan, params)
	require.NoError(t, err)
	assert.Empty(t, v)

	loose, err := greedyPlanner(t, params, false).Plan(context.Background(), tbl, nil)
	require.NoError(t, err)
	lv, err := Verify(tbl, loose, params)
	require.NoError(t, err)
	for _, violation := range lv {
		assert.Equal(t, ViolationLedger, violation.Kind, violation.String())
	}
	assert.Len(t, lv, loose.Summary.LedgerDeficits)
}

func TestGreedy_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &recordingSink{}
	g, err := NewGreedy(mixedParams(), false, sink, logger.NopLogger{})
	require.NoError(t, err)

	plan, err := g.Plan(ctx, mixedInstance(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, plan)
	assert.Equal(t, model.QualityPartial, plan.Summary.Quality)
	assert.Empty(t, plan.Transfers)
	require.Len(t, sink.runs, 1)
	assert.True(t, sink.runs[0].Failed)
}

func TestGreedy_RejectsBadInitial(t *testing.T) {
	_, err := greedyPlanner(t, mixedParams(), false).Plan(context.Background(), mixedInstance(t), []int{50, 0, 0})
	assert.Error(t, err)
}
