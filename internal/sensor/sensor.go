// Package sensor discovers the environmental sensor on the I2C bus and
// collects averaged sample batches from it.
package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// Candidate addresses for the BME280/BMP280 family.
	addrPrimary   uint16 = 0x76
	addrSecondary uint16 = 0x77

	probeRounds = 3
	warmupTime  = 2 * time.Second

	// Long waits are taken as short cooperative sub-sleeps so a hardware
	// watchdog never fires mid-wait.
	subSleep = 100 * time.Millisecond
)

// Device is the capability surface of an attached sensor.
type Device interface {
	Sense() (Reading, error)
	HasHumidity() bool
}

// Bus probes candidate addresses for a configured Device and supports a
// full-bus diagnostic scan.
type Bus interface {
	Probe(addr uint16) (Device, error)
	Scan() []uint16
}

// Acquirer owns sensor discovery and sample collection for one wake cycle.
type Acquirer struct {
	bus    Bus
	dev    Device
	logger *slog.Logger

	sleep     func(time.Duration)
	probeWait time.Duration
}

func New(bus Bus, logger *slog.Logger) *Acquirer {
	return &Acquirer{
		bus:       bus,
		logger:    logger,
		sleep:     time.Sleep,
		probeWait: 1 * time.Second,
	}
}

// Init probes the sensor at both candidate addresses, up to three rounds
// with backoff between rounds, then warms the sensor up and takes one test
// reading. On total discovery failure it runs a full bus scan for
// diagnostics before reporting the error.
func (a *Acquirer) Init(ctx context.Context) error {
	probe := func() error {
		for _, addr := range []uint16{addrPrimary, addrSecondary} {
			dev, err := a.bus.Probe(addr)
			if err == nil {
				a.logger.Info("sensor found", "addr", fmt.Sprintf("0x%02X", addr))
				a.dev = dev
				return nil
			}
			a.logger.Debug("sensor probe failed",
				"addr", fmt.Sprintf("0x%02X", addr),
				"error", err,
			)
		}
		return fmt.Errorf("no sensor at 0x%02X or 0x%02X", addrPrimary, addrSecondary)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(a.probeWait), probeRounds-1),
		ctx,
	)
	if err := backoff.Retry(probe, b); err != nil {
		a.scanBus()
		return fmt.Errorf("sensor discovery: %w", err)
	}

	// Let the measurement filter settle before trusting readings.
	a.wait(ctx, warmupTime)

	r, err := a.dev.Sense()
	if err != nil {
		a.dev = nil
		return fmt.Errorf("sensor test reading: %w", err)
	}
	if !finite(r.Temperature) || !finite(r.Pressure) {
		a.dev = nil
		return fmt.Errorf("sensor test reading invalid: temp=%v pressure=%v", r.Temperature, r.Pressure)
	}

	a.logger.Info("sensor initialized",
		"test_temp_c", r.Temperature,
		"test_pressure_hpa", r.Pressure,
		"humidity_capable", a.dev.HasHumidity(),
	)
	return nil
}

// Collect takes n sequential readings, accumulating only fully-valid ones.
// A reading is valid when every required field is a finite number; humidity
// is required only on humidity-capable devices.
func (a *Acquirer) Collect(ctx context.Context, n int, interval time.Duration) SampleBatch {
	batch := SampleBatch{Requested: n}
	withHumidity := a.HasHumidity()

	for i := 0; i < n; i++ {
		r, err := a.dev.Sense()
		switch {
		case err != nil:
			a.logger.Warn("reading failed", "n", i+1, "error", err)
		case !finite(r.Temperature) || !finite(r.Pressure) || (withHumidity && !finite(r.Humidity)):
			a.logger.Warn("reading invalid", "n", i+1)
		default:
			batch.add(r, withHumidity)
			a.logger.Debug("reading",
				"n", i+1,
				"temp_c", r.Temperature,
				"pressure_hpa", r.Pressure,
				"humidity_pct", r.Humidity,
			)
		}

		if i < n-1 {
			a.wait(ctx, interval)
		}
	}

	a.logger.Info("collection done", "valid", batch.Valid, "requested", batch.Requested)
	return batch
}

// HasHumidity reports the attached sensor variant's humidity capability.
// It is false until Init succeeds.
func (a *Acquirer) HasHumidity() bool {
	return a.dev != nil && a.dev.HasHumidity()
}

// scanBus reports every responding bus address, flagging the candidate
// sensor addresses. Diagnostic only; it never changes the failure outcome.
func (a *Acquirer) scanBus() {
	a.logger.Warn("running full bus scan for diagnostics")
	found := a.bus.Scan()
	for _, addr := range found {
		if addr == addrPrimary || addr == addrSecondary {
			a.logger.Warn("bus device found (candidate sensor address)",
				"addr", fmt.Sprintf("0x%02X", addr))
			continue
		}
		a.logger.Info("bus device found", "addr", fmt.Sprintf("0x%02X", addr))
	}
	if len(found) == 0 {
		a.logger.Warn("no bus devices found; check wiring and supply voltage")
	}
}

func (a *Acquirer) wait(ctx context.Context, d time.Duration) {
	for waited := time.Duration(0); waited < d; waited += subSleep {
		if ctx.Err() != nil {
			return
		}
		step := subSleep
		if remaining := d - waited; remaining < step {
			step = remaining
		}
		a.sleep(step)
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
