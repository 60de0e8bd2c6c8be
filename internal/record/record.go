// Package record builds the CSV line appended to the remote log and derives
// the per-day remote filename.
package record

import (
	"fmt"
	"time"

	"envnode/internal/sensor"
)

// HumiditySentinel fills the humidity field when the attached sensor variant
// cannot measure humidity, keeping every record at exactly five fields.
const HumiditySentinel = "N/A"

// Header is the first row written when a new remote file is created.
const Header = "Timestamp,Samples,Temperature (C),Pressure (hPa),Humidity (%)\r\n"

// Record is one cycle's averaged result. Humidity is nil on variants
// without humidity capability.
type Record struct {
	Timestamp      string
	ValidCount     int
	AvgTemperature float64
	AvgPressure    float64
	Humidity       *float64
}

// Build assembles the record for one cycle from the collected batch.
func Build(now time.Time, batch sensor.SampleBatch, hasHumidity bool) Record {
	rec := Record{
		Timestamp:      now.Format("02/01/2006 15:04"),
		ValidCount:     batch.Valid,
		AvgTemperature: batch.AverageTemperature(),
		AvgPressure:    batch.AveragePressure(),
	}
	if hasHumidity {
		h := batch.AverageHumidity()
		rec.Humidity = &h
	}
	return rec
}

// CSVLine renders the record as a five-field, CRLF-terminated CSV line.
func (r Record) CSVLine() string {
	humidity := HumiditySentinel
	if r.Humidity != nil {
		humidity = fmt.Sprintf("%.2f", *r.Humidity)
	}
	return fmt.Sprintf("%s,%d,%.1f,%.1f,%s\r\n",
		r.Timestamp, r.ValidCount, r.AvgTemperature, r.AvgPressure, humidity)
}

// Filename derives the remote filename for the given date. The instance
// suffix lets two nodes share one remote directory safely.
func Filename(date time.Time, suffix string) string {
	return date.Format("02_01_2006") + suffix + ".csv"
}
