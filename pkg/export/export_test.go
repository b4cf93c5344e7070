package export

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric2969/OR2025-Final/core/model"
	"github.com/eric2969/OR2025-Final/core/sensitivity"
)

func samplePlan() *model.Plan {
	return &model.Plan{
		Strategy: "batched",
		Delay:    2,
		Initial:  []int{20, 0},
		Final:    []int{10, 10},
		Transfers: []model.Transfer{{
			Period: 0, Label: "08:00", FromID: "A", FromName: "Main St", ToID: "B", ToName: "Park, North", Quantity: 10,
		}},
		Hides: []model.HideEvent{{Period: 1, Label: "08:30", StationID: "A", StationName: "Main St", Hidden: 3}},
		Windows: []model.WindowReport{{
			Index: 0, FirstTime: "08:00", LastTime: "08:30", Quality: model.QualityOptimal, Objective: 0.22, Nodes: 3,
		}},
		Summary: model.Summary{
			Objective: 0.22, DispatchCost: 0.1, HideCost: 0.12, Dispatched: 10, Hidden: 3,
			Runtime: 1500 * time.Millisecond, Quality: model.QualityOptimal,
		},
	}
}

func TestWriteTransfersCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransfersCSV(&buf, samplePlan().Transfers))
	want := "period,from_station_id,from_station_name,to_station_id,to_station_name,quantity\n" +
		"08:00,A,Main St,B,\"Park, North\",10\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteHidesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHidesCSV(&buf, samplePlan().Hides))
	want := "period,station_id,station_name,hidden_count,released_count\n08:30,A,Main St,3,0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSummary(t *testing.T) {
	var txt bytes.Buffer
	require.NoError(t, WriteSummaryText(&txt, samplePlan()))
	assert.Contains(t, txt.String(), "objective:       0.2200")
	assert.Contains(t, txt.String(), "quality:         optimal")
	assert.Contains(t, txt.String(), "08:00-08:30")

	var js bytes.Buffer
	require.NoError(t, WriteSummaryJSON(&js, samplePlan()))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &doc))
	assert.Equal(t, "batched", doc["strategy"])
	summary := doc["summary"].(map[string]any)
	assert.Equal(t, "optimal", summary["quality"])
	assert.EqualValues(t, 10, summary["dispatched"])
	assert.Len(t, doc["windows"], 1)
}

func TestWriteSweepCSV(t *testing.T) {
	res := &sensitivity.Result{
		ParamX: "truck_count",
		ParamY: "hide_cost",
		Points: []sensitivity.Point{
			{X: 1, Y: 0.5, Objective: 2.25, MeanWait: 0.1, Quality: model.QualityHeuristic},
			{X: 2, Y: 0.5, Objective: math.NaN(), MeanWait: math.NaN(), Err: "infeasible"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSweepCSV(&buf, res))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "truck_count,hide_cost,objective,mean_wait,quality,error", lines[0])
	assert.Equal(t, "1,0.5,2.25,0.1,heuristic,", lines[1])
	assert.Equal(t, "2,0.5,nan,nan,,infeasible", lines[2])
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteAll(dir, "batched_", samplePlan(), true)
	require.NoError(t, err)
	require.Len(t, paths, 5)
	for _, name := range []string{TransfersFile, HidesFile, SummaryTextFile, SummaryJSONFile, PlanFile} {
		assert.FileExists(t, filepath.Join(dir, "batched_"+name))
	}

	data, err := os.ReadFile(filepath.Join(dir, "batched_"+PlanFile))
	require.NoError(t, err)
	var plan model.Plan
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.Equal(t, []int{10, 10}, plan.Final)
	assert.Equal(t, "B", plan.Transfers[0].ToID)

	paths, err = WriteAll(t.TempDir(), "", samplePlan(), false)
	require.NoError(t, err)
	assert.Len(t, paths, 4)
}

func TestWriteSweepFile(t *testing.T) {
	res := &sensitivity.Result{ParamX: "truck_count", ParamY: "hide_cost"}
	path, err := WriteSweepFile(t.TempDir(), "x_", res)
	require.NoError(t, err)
	assert.Equal(t, "x_sweep_truck_count_hide_cost.csv", filepath.Base(path))
	assert.FileExists(t, path)
}
