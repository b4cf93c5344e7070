// Package mqtt describes how planned truck orders leave the planner. Each
// period with at least one transfer or hide event becomes one Order.
package mqtt

import (
	"errors"
	"time"

	"github.com/eric2969/OR2025-Final/core/model"
)

// ErrAckTimeout is returned when the depot does not acknowledge an order in time.
var ErrAckTimeout = errors.New("timeout waiting for ack")

// Order carries the work of one period to the depot.
type Order struct {
	CommandID   string            `json:"command_id"`
	RunID       string            `json:"run_id"`
	PeriodIndex int               `json:"period_index"`
	Period      string            `json:"period"`
	Transfers   []model.Transfer  `json:"transfers"`
	Hides       []model.HideEvent `json:"hides"`
	Timestamp   int64             `json:"timestamp"`
}

// Client represents an MQTT client capable of sending period orders and
// waiting for the depot to acknowledge them.
type Client interface {
	// SendOrder publishes the order and returns the command identifier used
	// to track the acknowledgment.
	SendOrder(order Order) (commandID string, err error)

	// WaitForAck waits for an acknowledgment for the provided command
	// identifier or until the timeout expires.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}
