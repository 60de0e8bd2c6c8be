package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// Oversampling and filter profile for continuous normal-mode operation.
var sensorOpts = bmxx80.Opts{
	Temperature: bmxx80.O2x,
	Pressure:    bmxx80.O16x,
	Humidity:    bmxx80.O1x,
	Filter:      bmxx80.F16,
}

// I2CBus probes BMx280 devices on a periph I2C bus.
type I2CBus struct {
	bus      i2c.Bus
	humidity bool
}

// NewI2CBus wraps an open periph bus. The humidity flag selects the attached
// sensor variant: BME280 (true) or BMP280 (false).
func NewI2CBus(bus i2c.Bus, humidity bool) *I2CBus {
	return &I2CBus{bus: bus, humidity: humidity}
}

func (b *I2CBus) Probe(addr uint16) (Device, error) {
	dev, err := bmxx80.NewI2C(b.bus, addr, &sensorOpts)
	if err != nil {
		return nil, fmt.Errorf("bmxx80 at 0x%02X: %w", addr, err)
	}
	return &bmxDevice{dev: dev, humidity: b.humidity}, nil
}

// Scan probes every valid 7-bit address and returns the responders.
func (b *I2CBus) Scan() []uint16 {
	var found []uint16
	buf := make([]byte, 1)
	for addr := uint16(0x01); addr <= 0x7E; addr++ {
		if err := b.bus.Tx(addr, nil, buf); err == nil {
			found = append(found, addr)
		}
	}
	return found
}

type bmxDevice struct {
	dev      *bmxx80.Dev
	humidity bool
}

func (d *bmxDevice) Sense() (Reading, error) {
	var env physic.Env
	if err := d.dev.Sense(&env); err != nil {
		return Reading{}, err
	}

	r := Reading{
		Temperature: env.Temperature.Celsius(),
		// Pressure is a nano-pascal fixed point value; convert to hPa.
		Pressure: float64(env.Pressure) / 10000000.0,
	}
	if d.humidity {
		// Humidity is fixed point at 0.00001 %rH precision.
		r.Humidity = float64(env.Humidity) / 100000.0
	}
	return r, nil
}

func (d *bmxDevice) HasHumidity() bool {
	return d.humidity
}
