package rebalance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric2969/OR2025-Final/core/model"
)

// Single station, single period: the shortfall of 5 at rate 5 costs one
// unit of wait and nothing can be moved.
func TestScenarioA_SingleStationShortfall(t *testing.T) {
	tbl := buildTable(t, labels(1), station{id: "A", cap: 20, borrow: []float64{10}})
	params := testParams()

	for name, p := range map[string]Planner{
		"exact":  exactDriver(t, params, 12, nil),
		"greedy": greedyPlanner(t, params, true),
	} {
		t.Run(name, func(t *testing.T) {
			plan, err := p.Plan(context.Background(), tbl, []int{5})
			require.NoError(t, err)
			assert.Empty(t, plan.Transfers)
			assert.Empty(t, plan.Hides)
			assert.InDelta(t, 1.0, plan.Summary.WaitCost, 1e-9)
			assert.Equal(t, []int{5}, plan.Final)
		})
	}
}

// Two stations, one period: A overflows by 10, B is short by 10.
func TestScenarioB_SurplusCoversShortage(t *testing.T) {
	tbl := buildTable(t, labels(1),
		station{id: "A", cap: 20, ret: []float64{10}},
		station{id: "B", cap: 20, borrow: []float64{10}},
	)
	params := testParams()

	for name, p := range map[string]Planner{
		"exact":  exactDriver(t, params, 12, nil),
		"greedy": greedyPlanner(t, params, false),
	} {
		t.Run(name, func(t *testing.T) {
			plan, err := p.Plan(context.Background(), tbl, []int{20, 0})
			require.NoError(t, err)
			require.Len(t, plan.Transfers, 1)
			tr := plan.Transfers[0]
			assert.Equal(t, "A", tr.FromID)
			assert.Equal(t, "B", tr.ToID)
			assert.Equal(t, 10, tr.Quantity)
			assert.Empty(t, plan.Hides)
			assert.InDelta(t, 0.0, plan.Summary.WaitCost, 1e-9)
			assert.InDelta(t, 0.1, plan.Summary.DispatchCost, 1e-9)
			assert.Equal(t, []int{10, 10}, plan.Final)
		})
	}
}

// No dispatch budget: imbalance can only be absorbed by hiding.
func TestScenarioC_NoDispatchBudget(t *testing.T) {
	tbl := buildTable(t, labels(1),
		station{id: "A", cap: 20, ret: []float64{15}},
		station{id: "B", cap: 20, borrow: []float64{10}},
	)
	params := testParams()
	params.TruckCount = 0
	initial := []int{20, 0}

	t.Run("exact", func(t *testing.T) {
		plan, err := exactDriver(t, params, 12, nil).Plan(context.Background(), tbl, initial)
		require.NoError(t, err)
		assert.Empty(t, plan.Transfers)
		require.Len(t, plan.Hides, 1)
		assert.Equal(t, "A", plan.Hides[0].StationID)
		assert.Equal(t, 8, plan.Hides[0].Hidden)
		assert.Equal(t, 0, plan.Hides[0].Released)
		assert.InDelta(t, 3.4, plan.Summary.WaitCost, 1e-9)
		assert.Equal(t, 0, plan.Summary.LedgerDeficits)

		v, err := Verify(tbl, plan, params)
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("greedy", func(t *testing.T) {
		plan, err := greedyPlanner(t, params, false).Plan(context.Background(), tbl, initial)
		require.NoError(t, err)
		assert.Empty(t, plan.Transfers)
		require.Len(t, plan.Hides, 2)
		assert.Equal(t, model.HideEvent{Period: 0, Label: "08:00", Station: 0, StationID: "A", StationName: "Station A", Hidden: 8}, plan.Hides[0])
		assert.Equal(t, 8, plan.Hides[1].Released)
		assert.InDelta(t, 1.8, plan.Summary.WaitCost, 1e-9)
		assert.Equal(t, 1, plan.Summary.LedgerDeficits)

		v, err := Verify(tbl, plan, params)
		require.NoError(t, err)
		require.Len(t, v, 1)
		assert.Equal(t, ViolationLedger, v[0].Kind)
		assert.Equal(t, "B", v[0].Station)
	})

	t.Run("greedy strict ledger", func(t *testing.T) {
		plan, err := greedyPlanner(t, params, true).Plan(context.Background(), tbl, initial)
		require.NoError(t, err)
		require.Len(t, plan.Hides, 1)
		assert.Equal(t, 0, plan.Summary.LedgerDeficits)
		assert.InDelta(t, 3.4, plan.Summary.WaitCost, 1e-9)
	})
}

// With a delay of 2 the transfer leaving in period 0 lands in period 2.
func TestScenarioD_TransportDelay(t *testing.T) {
	tbl := buildTable(t, labels(3),
		station{id: "A", cap: 20},
		station{id: "B", cap: 20, borrow: []float64{0, 0, 10}},
	)
	params := testParams()
	params.TransportDelay = 2

	plan, err := exactDriver(t, params, 0, nil).Plan(context.Background(), tbl, []int{20, 0})
	require.NoError(t, err)
	require.Len(t, plan.Transfers, 1)
	assert.Equal(t, 0, plan.Transfers[0].Period)
	assert.Equal(t, 10, plan.Transfers[0].Quantity)
	assert.Equal(t, 2, plan.Delay)
	assert.Equal(t, StrategyFull, plan.Strategy)

	r, err := Evaluate(tbl, plan, params)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 10}, r.Inventory[0])
	assert.Equal(t, []int{0, 0, 10}, r.Inventory[1])
	assert.InDelta(t, 0.0, plan.Summary.WaitCost, 1e-9)
}
