package upload

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"envnode/internal/record"
)

// Telemetry is the JSON payload published by the mirror.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Pressure    *float64  `json:"pressure_hpa,omitempty"`
	Samples     *int      `json:"samples,omitempty"`
}

// Mirror publishes each cycle's record to an MQTT broker as telemetry, on
// top of the append upload. It is strictly best-effort: one connect, one
// publish, one disconnect per cycle, and failures never affect the pipeline.
type Mirror struct {
	client    mqtt.Client
	stationID string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewMirror(broker string, port int, clientID, stationID string, logger *slog.Logger) *Mirror {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(5 * time.Second)

	return &Mirror{
		client:    mqtt.NewClient(opts),
		stationID: stationID,
		timeout:   5 * time.Second,
		logger:    logger,
	}
}

// Publish sends the record as one QoS 1 message and tears the connection
// down again.
func (m *Mirror) Publish(rec record.Record, now time.Time) error {
	token := m.client.Connect()
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer m.client.Disconnect(250)

	temp := rec.AvgTemperature
	press := rec.AvgPressure
	samples := rec.ValidCount

	payload := Telemetry{
		StationID:   m.stationID,
		Timestamp:   now,
		Temperature: &temp,
		Pressure:    &press,
		Humidity:    rec.Humidity,
		Samples:     &samples,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	topic := fmt.Sprintf("stations/%s/telemetry", m.stationID)
	pub := m.client.Publish(topic, 1, false, data)
	if !pub.WaitTimeout(m.timeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if pub.Error() != nil {
		return fmt.Errorf("publish telemetry: %w", pub.Error())
	}

	m.logger.Debug("telemetry mirrored", "topic", topic)
	return nil
}
