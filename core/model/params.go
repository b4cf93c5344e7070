package model

import (
	"errors"
	"fmt"
	"math"
)

// Params bundles the tunable weights and fleet limits shared by every solver.
type Params struct {
	// ServiceRate is μ, vehicles processed per minute.
	ServiceRate float64 `json:"service_rate"`
	// DispatchCost is α, the per-vehicle transfer weight.
	DispatchCost float64 `json:"dispatch_cost"`
	// HideCost is β, the per-vehicle hide/release weight.
	HideCost          float64 `json:"hide_cost"`
	TruckCapacity     int     `json:"truck_capacity"`
	TruckCount        int     `json:"truck_count"`
	MaxVisitsPerTruck int     `json:"max_visits_per_truck"`
	MaxHideFraction   float64 `json:"max_hide_fraction"`
	// TransportDelay is the number of periods between departure and arrival.
	TransportDelay int `json:"transport_delay"`
	// InitialFill sets B0 = floor(InitialFill * C) when no explicit vector is given.
	InitialFill float64 `json:"initial_fill"`
}

// DefaultParams mirrors the weights the planning team runs in production.
func DefaultParams() Params {
	return Params{
		ServiceRate:       6,
		DispatchCost:      1,
		HideCost:          0.04,
		TruckCapacity:     20,
		TruckCount:        30,
		MaxVisitsPerTruck: 3,
		MaxHideFraction:   0.4,
		TransportDelay:    2,
		InitialFill:       0.35,
	}
}

// DispatchBudget is the number of vehicles the fleet can move in one period.
func (p Params) DispatchBudget() int { return p.TruckCount * p.TruckCapacity }

// StopBudget is the number of station-to-station visits the fleet can make.
func (p Params) StopBudget() int { return p.TruckCount * p.MaxVisitsPerTruck }

// MaxHide returns how many vehicles a station of the given capacity may hide in one period.
func (p Params) MaxHide(capacity int) int {
	if capacity <= 0 || p.MaxHideFraction <= 0 {
		return 0
	}
	return int(math.Floor(p.MaxHideFraction*float64(capacity) + 1e-9))
}

// Validate rejects parameter bundles no solver can work with.
func (p Params) Validate() error {
	var errs []error
	if p.ServiceRate <= 0 {
		errs = append(errs, fmt.Errorf("service_rate must be positive, got %v", p.ServiceRate))
	}
	if p.DispatchCost < 0 {
		errs = append(errs, fmt.Errorf("dispatch_cost must be >= 0, got %v", p.DispatchCost))
	}
	if p.HideCost < 0 {
		errs = append(errs, fmt.Errorf("hide_cost must be >= 0, got %v", p.HideCost))
	}
	if p.TruckCapacity < 0 || p.TruckCount < 0 || p.MaxVisitsPerTruck < 0 {
		errs = append(errs, errors.New("truck_capacity, truck_count and max_visits_per_truck must be >= 0"))
	}
	if p.MaxHideFraction < 0 || p.MaxHideFraction > 1 {
		errs = append(errs, fmt.Errorf("max_hide_fraction must be in [0,1], got %v", p.MaxHideFraction))
	}
	if p.TransportDelay < 0 {
		errs = append(errs, fmt.Errorf("transport_delay must be >= 0, got %d", p.TransportDelay))
	}
	if p.InitialFill < 0 || p.InitialFill > 1 {
		errs = append(errs, fmt.Errorf("initial_fill must be in [0,1], got %v", p.InitialFill))
	}
	return errors.Join(errs...)
}
