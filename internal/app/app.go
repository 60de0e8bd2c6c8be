package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"envnode/internal/blink"
	"envnode/internal/config"
	"envnode/internal/cycle"
	"envnode/internal/execx"
	"envnode/internal/netwk"
	"envnode/internal/power"
	"envnode/internal/record"
	"envnode/internal/sensor"
	"envnode/internal/upload"
)

// Run wires the platform implementations into the duty-cycle controller and
// executes exactly one wake cycle. With working hardware it does not return:
// the cycle ends in the sleep transition.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("wake cycle starting",
		"i2c_bus", cfg.I2CBus,
		"led_pin", cfg.StatusLEDPin,
		"humidity_capable", cfg.SensorHasHumidity,
		"suffix", cfg.FilenameSuffix,
	)

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return fmt.Errorf("i2c open: %w", err)
	}
	defer bus.Close()

	pin := gpioreg.ByName(cfg.StatusLEDPin)
	if pin == nil {
		return fmt.Errorf("status LED pin %q not found", cfg.StatusLEDPin)
	}

	marker := power.NewMarker(cfg.StateDir)
	if marker.Arm() {
		logger.Warn("previous cycle did not reach sleep entry; adding safety delay")
		time.Sleep(5 * time.Second)
	}

	runner := execx.NewOSRunner()
	radio := netwk.NewNMRadio(runner, cfg.WiFiInterface)

	uploader := upload.NewFTP(record.Header, logger)
	uploader.SetServer(cfg.FTPHost, cfg.FTPPort)
	uploader.SetCredentials(cfg.FTPUser, cfg.FTPPassword)

	deps := cycle.Deps{
		Signaler: blink.New(blink.GPIO(pin), nil),
		Sensors:  sensor.New(sensor.NewI2CBus(bus, cfg.SensorHasHumidity), logger),
		Network:  netwk.New(radio, netwk.NTPQuery, logger),
		Uploader: uploader,
		Sleeper:  power.NewRTCSleeper(runner, radio, logger),
		Marker:   marker,
		Logger:   logger,
	}
	if cfg.MirrorEnabled() {
		deps.Mirror = upload.NewMirror(cfg.MQTTBroker, cfg.MQTTPort, cfg.MQTTClientID, cfg.StationID, logger)
	}

	cycle.New(cfg, deps).Run(ctx)

	// Only reachable when the sleeper has been replaced (tests, dry runs).
	return nil
}
