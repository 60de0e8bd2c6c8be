package sensor

// Reading is a single measurement from the environmental sensor.
// Humidity is meaningful only when the device reports humidity capability.
type Reading struct {
	Temperature float64 // °C
	Pressure    float64 // hPa
	Humidity    float64 // %RH
}

// SampleBatch accumulates the fully-valid readings of one collection pass.
// Valid never exceeds Requested, and averages are 0.0 when no valid sample
// was collected.
type SampleBatch struct {
	Requested int
	Valid     int

	tempSum     float64
	pressureSum float64
	humiditySum float64
}

func (b *SampleBatch) add(r Reading, withHumidity bool) {
	b.tempSum += r.Temperature
	b.pressureSum += r.Pressure
	if withHumidity {
		b.humiditySum += r.Humidity
	}
	b.Valid++
}

func (b SampleBatch) AverageTemperature() float64 {
	if b.Valid == 0 {
		return 0.0
	}
	return b.tempSum / float64(b.Valid)
}

func (b SampleBatch) AveragePressure() float64 {
	if b.Valid == 0 {
		return 0.0
	}
	return b.pressureSum / float64(b.Valid)
}

func (b SampleBatch) AverageHumidity() float64 {
	if b.Valid == 0 {
		return 0.0
	}
	return b.humiditySum / float64(b.Valid)
}
