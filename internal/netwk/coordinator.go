// Package netwk manages the radio link and the node's clock for one wake
// cycle: timeout-bound connection with failure classification, best-effort
// time synchronization, and teardown.
package netwk

import (
	"context"
	"log/slog"
	"time"
)

// Radio is the capability surface of the platform WiFi controller.
type Radio interface {
	// SetPersistence controls whether credentials are written to durable
	// storage by the platform. The node always disables this before
	// connecting: rewriting credentials on every wake would wear out the
	// storage across many daily cycles.
	SetPersistence(enabled bool) error
	Connect(ssid, password string) error
	Status() Status
	Disconnect() error
	PowerOff() error
}

// Coordinator drives the Radio and owns the node Clock.
type Coordinator struct {
	radio  Radio
	clock  *Clock
	query  TimeQuery
	logger *slog.Logger

	sleep        func(time.Duration)
	pollInterval time.Duration // connection status poll
	syncPoll     time.Duration // clock poll within one sync attempt
	syncBackoff  time.Duration // wait between failed sync attempts
}

func New(radio Radio, query TimeQuery, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		radio:        radio,
		clock:        NewClock(),
		query:        query,
		logger:       logger,
		sleep:        time.Sleep,
		pollInterval: 500 * time.Millisecond,
		syncPoll:     1 * time.Second,
		syncBackoff:  2 * time.Second,
	}
}

// Now returns the node wall-clock time.
func (c *Coordinator) Now() time.Time {
	return c.clock.Now()
}

// Synced reports whether the clock has been synchronized this cycle.
func (c *Coordinator) Synced() bool {
	return c.clock.Synced()
}

// Connect disables credential persistence, starts the association, and polls
// the radio until it reports connected or the timeout elapses. On timeout the
// last observed status is classified into a failure outcome.
func (c *Coordinator) Connect(ctx context.Context, ssid, password string, timeout time.Duration) Outcome {
	c.logger.Info("connecting", "ssid", ssid, "timeout", timeout)

	if err := c.radio.SetPersistence(false); err != nil {
		c.logger.Warn("could not disable credential persistence", "error", err)
	}

	if err := c.radio.Connect(ssid, password); err != nil {
		c.logger.Error("association start failed", "error", err)
		return classifyFailure(c.radio.Status())
	}

	last := StatusConnecting
	for waited := time.Duration(0); waited < timeout; waited += c.pollInterval {
		if ctx.Err() != nil {
			return GenericFailure
		}
		last = c.radio.Status()
		if last == StatusConnected {
			c.logger.Info("connected", "ssid", ssid)
			return Success
		}
		c.sleep(c.pollInterval)
	}

	// One final look so a connection that landed during the last sleep
	// still counts.
	last = c.radio.Status()
	if last == StatusConnected {
		c.logger.Info("connected", "ssid", ssid)
		return Success
	}

	outcome := classifyFailure(last)
	c.logger.Error("connection failed", "status", last.String(), "outcome", outcome.String())
	return outcome
}

// Disconnect tears the link down and powers the radio off to minimize
// sleep-state current draw.
func (c *Coordinator) Disconnect() {
	if err := c.radio.Disconnect(); err != nil {
		c.logger.Warn("disconnect failed", "error", err)
	}
	if err := c.radio.PowerOff(); err != nil {
		c.logger.Warn("radio power-off failed", "error", err)
	}
	c.logger.Info("radio disconnected and powered down")
}

// classifyFailure never reports Success: an attempt that did not confirm a
// connected state is a failure even if the status looks transiently healthy.
func classifyFailure(s Status) Outcome {
	if out := classify(s); out != Success {
		return out
	}
	return GenericFailure
}
