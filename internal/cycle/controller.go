// Package cycle orchestrates one complete wake cycle: signal, power trim,
// sample, connect, sync, upload, sleep. Every reachable path through the
// pipeline ends in the sleep transition; control never returns to an idle
// loop.
package cycle

import (
	"context"
	"log/slog"
	"time"

	"envnode/internal/blink"
	"envnode/internal/config"
	"envnode/internal/netwk"
	"envnode/internal/record"
	"envnode/internal/sensor"
	"envnode/internal/upload"
)

// Signaler plays a diagnostic light pattern to completion.
type Signaler interface {
	Signal(blink.Pattern)
}

// SensorAcquirer discovers the sensor and collects sample batches.
type SensorAcquirer interface {
	Init(ctx context.Context) error
	Collect(ctx context.Context, n int, interval time.Duration) sensor.SampleBatch
	HasHumidity() bool
}

// Network manages the radio link and the node clock.
type Network interface {
	Connect(ctx context.Context, ssid, password string, timeout time.Duration) netwk.Outcome
	SyncTime(ctx context.Context, server string, gmtOffset, dstOffset time.Duration) bool
	Synced() bool
	Now() time.Time
	Disconnect()
}

// Sleeper owns the power trim and the terminal sleep transition. Production
// implementations of Sleep do not return.
type Sleeper interface {
	Optimize()
	Sleep(d time.Duration)
}

// Mirror best-effort-publishes the built record as live telemetry.
type Mirror interface {
	Publish(rec record.Record, now time.Time) error
}

// Marker clears the in-flight cycle mark at sleep entry.
type Marker interface {
	Clear()
}

// Deps are the collaborators of one wake cycle. Mirror and Marker may be
// nil.
type Deps struct {
	Signaler Signaler
	Sensors  SensorAcquirer
	Network  Network
	Uploader upload.Uploader
	Mirror   Mirror
	Sleeper  Sleeper
	Marker   Marker
	Logger   *slog.Logger
}

// Controller runs the duty-cycle pipeline. All state is created fresh per
// wake and discarded at sleep entry; nothing survives across cycles.
type Controller struct {
	cfg config.Config
	d   Deps
}

func New(cfg config.Config, d Deps) *Controller {
	return &Controller{cfg: cfg, d: d}
}

// Run executes the pipeline once. With the production sleeper it does not
// return; with a test sleeper it returns after the sleep transition has been
// requested.
func (c *Controller) Run(ctx context.Context) {
	log := c.d.Logger

	c.d.Signaler.Signal(blink.Startup)
	c.d.Sleeper.Optimize()

	if err := c.d.Sensors.Init(ctx); err != nil {
		log.Error("sensor init failed; going to sleep", "error", err)
		c.d.Signaler.Signal(blink.SensorFailure)
		c.enterSleep()
		return
	}

	batch := c.d.Sensors.Collect(ctx, c.cfg.ReadingsPerCycle, c.cfg.ReadingInterval)

	c.d.Signaler.Signal(blink.Connecting)
	outcome := c.d.Network.Connect(ctx, c.cfg.WiFiSSID, c.cfg.WiFiPassword, c.cfg.WiFiTimeout)
	if outcome != netwk.Success {
		log.Error("connection failed; going to sleep", "outcome", outcome.String())
		switch outcome {
		case netwk.AuthFailed:
			c.d.Signaler.Signal(blink.AuthFailure)
		default:
			c.d.Signaler.Signal(blink.NoAccessPoint)
		}
		c.enterSleep()
		return
	}
	c.d.Signaler.Signal(blink.Connected)

	if !c.d.Network.SyncTime(ctx, c.cfg.NTPServer, c.cfg.GMTOffset, c.cfg.DSTOffset) {
		log.Warn("time sync failed; record will use the unsynchronized clock")
	}

	now := c.d.Network.Now()
	rec := record.Build(now, batch, c.d.Sensors.HasHumidity())
	filename := record.Filename(now, c.cfg.FilenameSuffix)

	log.Info("record built",
		"file", filename,
		"valid", rec.ValidCount,
		"temp_c", rec.AvgTemperature,
		"pressure_hpa", rec.AvgPressure,
	)

	if err := c.d.Uploader.Upload(ctx, c.cfg.FTPBasePath, filename, rec.CSVLine(), true); err != nil {
		// Non-fatal: this cycle's record is dropped, there is no retry
		// queue.
		log.Error("upload failed; record dropped", "error", err)
		c.d.Signaler.Signal(blink.UploadFailure)
	}

	if c.d.Mirror != nil {
		if err := c.d.Mirror.Publish(rec, now); err != nil {
			log.Warn("telemetry mirror failed", "error", err)
		}
	}

	c.d.Network.Disconnect()
	c.d.Signaler.Signal(blink.SleepEntry)
	c.enterSleep()
}

func (c *Controller) enterSleep() {
	if c.d.Marker != nil {
		c.d.Marker.Clear()
	}
	// With the production sleeper this call does not return.
	c.d.Sleeper.Sleep(c.cfg.SleepDuration)
}
