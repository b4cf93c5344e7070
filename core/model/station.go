package model

import "math"

// Station is a fixed-capacity dock location.
type Station struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Area     string `json:"area,omitempty"`
	Capacity int    `json:"capacity"`
}

// InitialInventory returns floor(fill * C) for every station, clamped to [0, C].
func InitialInventory(stations []Station, fill float64) []int {
	out := make([]int, len(stations))
	for i, s := range stations {
		v := int(math.Floor(fill*float64(s.Capacity) + 1e-9))
		if v < 0 {
			v = 0
		}
		if v > s.Capacity {
			v = s.Capacity
		}
		out[i] = v
	}
	return out
}
