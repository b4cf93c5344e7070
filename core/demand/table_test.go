package demand

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `station_id,station_name,area,period_label,capacity,borrow_demand,return_demand
500102,Xinyi Square,Xinyi,00:30,20,3,1
500101,City Hall,Xinyi,00:00,30,5,2
500102,Xinyi Square,Xinyi,00:00,20,4,0
500201,Datong Park,Datong,00:00,12,1,6
`

func TestReadCSVSortsStationsAndPeriods(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)

	require.Equal(t, 3, tbl.NumStations())
	assert.Equal(t, "500101", tbl.Stations[0].ID)
	assert.Equal(t, "500201", tbl.Stations[2].ID)
	assert.Equal(t, []string{"00:00", "00:30"}, tbl.Periods)

	i, ok := tbl.StationIndex("500102")
	require.True(t, ok)
	assert.Equal(t, 4.0, tbl.Borrow(i, 0))
	assert.Equal(t, 3.0, tbl.Borrow(i, 1))
	assert.Equal(t, 1.0, tbl.Return(i, 1))

	// City Hall has no 00:30 sample; missing entries default to zero.
	assert.Equal(t, 0.0, tbl.Borrow(0, 1))
	assert.Equal(t, 0.0, tbl.Return(0, 1))
	assert.Equal(t, 30, tbl.Capacity(0))
}

func TestReadCSVAreaFilter(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV), Options{Area: "Datong"})
	require.NoError(t, err)
	require.Equal(t, 1, tbl.NumStations())
	assert.Equal(t, "Datong Park", tbl.Stations[0].Name)

	_, err = ReadCSV(strings.NewReader(sampleCSV), Options{Area: "Beitou"})
	var ie *InputError
	assert.True(t, errors.As(err, &ie))
}

func TestReadCSVLegacyHeader(t *testing.T) {
	in := "\ufeffsno,sna,sarea,interval_time,total,demand_borrow,demand_return\nA1,Alpha,X,08:00,10,2,3\n"
	tbl, err := ReadCSV(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", tbl.Stations[0].Name)
	assert.Equal(t, 3.0, tbl.Return(0, 0))
}

func TestReadCSVInputErrors(t *testing.T) {
	head := "station_id,station_name,area,period_label,capacity,borrow_demand,return_demand\n"
	cases := []struct {
		name  string
		body  string
		field string
		opts  Options
	}{
		{"missing column", "station_id,period_label,capacity,borrow_demand\n", "return_demand", Options{}},
		{"bad capacity", head + "A,a,x,00:00,ten,1,1\n", "capacity", Options{}},
		{"fractional capacity", head + "A,a,x,00:00,10.5,1,1\n", "capacity", Options{}},
		{"zero capacity", head + "A,a,x,00:00,0,1,1\n", "capacity", Options{}},
		{"negative capacity", head + "A,a,x,00:00,-2,1,1\n", "capacity", Options{AllowZeroCapacity: true}},
		{"bad demand", head + "A,a,x,00:00,10,abc,1\n", "borrow_demand", Options{}},
		{"negative demand", head + "A,a,x,00:00,10,1,-1\n", "return_demand", Options{}},
		{"label width", head + "A,a,x,00:00,10,1,1\nA,a,x,9:30,10,1,1\n", "period_label", Options{}},
		{"capacity conflict", head + "A,a,x,00:00,10,1,1\nA,a,x,00:30,12,1,1\n", "capacity", Options{}},
		{"missing station", head + ",a,x,00:00,10,1,1\n", "station_id", Options{}},
		{"huge capacity", head + "A,a,x,00:00,1e30,1,1\n", "capacity", Options{}},
		{"capacity past int32", head + "A,a,x,00:00,2147483648,1,1\n", "capacity", Options{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(c.body), c.opts)
			var ie *InputError
			require.True(t, errors.As(err, &ie), "expected InputError, got %v", err)
			assert.Equal(t, c.field, ie.Field)
		})
	}
}

func TestStationsSortNumerically(t *testing.T) {
	in := "station_id,station_name,area,period_label,capacity,borrow_demand,return_demand\n" +
		"10,ten,x,00:00,10,1,1\n" +
		"K2,kiosk,x,00:00,10,1,1\n" +
		"9,nine,x,00:00,10,1,1\n" +
		"010,padded,x,00:00,10,1,1\n" +
		"2,two,x,00:00,10,1,1\n" +
		"K10,kiosk,x,00:00,10,1,1\n"
	tbl, err := ReadCSV(strings.NewReader(in), Options{})
	require.NoError(t, err)

	var ids []string
	for _, s := range tbl.Stations {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"2", "9", "010", "10", "K10", "K2"}, ids)
	i, ok := tbl.StationIndex("9")
	require.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestReadCSVDuplicateSample(t *testing.T) {
	in := "station_id,station_name,area,period_label,capacity,borrow_demand,return_demand\n" +
		"A,a,x,00:00,10,1,1\nA,a,x,00:00,10,2,2\n"
	_, err := ReadCSV(strings.NewReader(in), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "duplicate")
}

func TestZeroCapacityAllowed(t *testing.T) {
	in := "station_id,station_name,area,period_label,capacity,borrow_demand,return_demand\nA,a,x,00:00,0,1,1\n"
	tbl, err := ReadCSV(strings.NewReader(in), Options{AllowZeroCapacity: true})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Capacity(0))
}

func TestCheckInitial(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)
	assert.NoError(t, tbl.CheckInitial([]int{10, 5, 12}))
	assert.Error(t, tbl.CheckInitial([]int{10, 5}))
	assert.Error(t, tbl.CheckInitial([]int{31, 5, 12}))
	assert.Error(t, tbl.CheckInitial([]int{10, -1, 12}))
}
