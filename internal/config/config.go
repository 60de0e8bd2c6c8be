package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of the node. Values come from
// built-in defaults, then an optional YAML file, then environment overrides,
// in that order.
type Config struct {
	AppEnv   string     `yaml:"app_env"`
	LogLevel slog.Level `yaml:"-"`

	WiFiInterface string        `yaml:"wifi_interface"`
	WiFiSSID      string        `yaml:"wifi_ssid"`
	WiFiPassword  string        `yaml:"wifi_password"`
	WiFiTimeout   time.Duration `yaml:"wifi_timeout"`

	NTPServer string        `yaml:"ntp_server"`
	GMTOffset time.Duration `yaml:"gmt_offset"`
	DSTOffset time.Duration `yaml:"dst_offset"`

	FTPHost     string `yaml:"ftp_host"`
	FTPPort     int    `yaml:"ftp_port"`
	FTPUser     string `yaml:"ftp_user"`
	FTPPassword string `yaml:"ftp_password"`
	FTPBasePath string `yaml:"ftp_base_path"`

	// MQTTBroker empty disables the telemetry mirror entirely.
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTPort     int    `yaml:"mqtt_port"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	StationID    string `yaml:"station_id"`

	ReadingsPerCycle int           `yaml:"readings_per_cycle"`
	ReadingInterval  time.Duration `yaml:"reading_interval"`

	I2CBus            string `yaml:"i2c_bus"`
	SensorHasHumidity bool   `yaml:"sensor_has_humidity"`
	StatusLEDPin      string `yaml:"status_led_pin"`

	SleepDuration  time.Duration `yaml:"sleep_duration"`
	FilenameSuffix string        `yaml:"filename_suffix"`
	StateDir       string        `yaml:"state_dir"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		AppEnv:            "dev",
		LogLevel:          slog.LevelInfo,
		WiFiInterface:     "wlan0",
		WiFiTimeout:       10 * time.Second,
		NTPServer:         "time.google.com",
		GMTOffset:         5*time.Hour + 30*time.Minute,
		DSTOffset:         0,
		FTPPort:           21,
		FTPBasePath:       "/",
		MQTTPort:          1883,
		MQTTClientID:      "envnode",
		StationID:         "home",
		ReadingsPerCycle:  5,
		ReadingInterval:   3 * time.Second,
		I2CBus:            "",
		SensorHasHumidity: true,
		StatusLEDPin:      "GPIO17",
		SleepDuration:     5 * time.Minute,
		StateDir:          "/var/lib/envnode",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// non-empty), and environment variables, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.AppEnv, "APP_ENV")
	setString(&c.WiFiInterface, "WIFI_INTERFACE")
	setString(&c.WiFiSSID, "WIFI_SSID")
	setString(&c.WiFiPassword, "WIFI_PASSWORD")
	setString(&c.NTPServer, "NTP_SERVER")
	setString(&c.FTPHost, "FTP_HOST")
	setString(&c.FTPUser, "FTP_USER")
	setString(&c.FTPPassword, "FTP_PASSWORD")
	setString(&c.FTPBasePath, "FTP_BASE_PATH")
	setString(&c.MQTTBroker, "MQTT_BROKER")
	setString(&c.MQTTClientID, "MQTT_CLIENT_ID")
	setString(&c.StationID, "STATION_ID")
	setString(&c.I2CBus, "I2C_BUS")
	setString(&c.StatusLEDPin, "STATUS_LED_PIN")
	setString(&c.StateDir, "STATE_DIR")

	// The suffix may legitimately be empty, so only an explicitly set
	// variable overrides it.
	if v, ok := os.LookupEnv("FILENAME_SUFFIX"); ok {
		c.FilenameSuffix = strings.TrimSpace(v)
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		c.LogLevel = level
	}

	if err := setDuration(&c.WiFiTimeout, "WIFI_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.GMTOffset, "GMT_OFFSET"); err != nil {
		return err
	}
	if err := setDuration(&c.DSTOffset, "DST_OFFSET"); err != nil {
		return err
	}
	if err := setDuration(&c.ReadingInterval, "READING_INTERVAL"); err != nil {
		return err
	}
	if err := setDuration(&c.SleepDuration, "SLEEP_DURATION"); err != nil {
		return err
	}
	if err := setInt(&c.FTPPort, "FTP_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.MQTTPort, "MQTT_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.ReadingsPerCycle, "READINGS_PER_CYCLE"); err != nil {
		return err
	}
	if err := setBool(&c.SensorHasHumidity, "SENSOR_HAS_HUMIDITY"); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	switch c.AppEnv {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", c.AppEnv)
	}
	if c.WiFiSSID == "" {
		return fmt.Errorf("WIFI_SSID is required")
	}
	if c.FTPHost == "" {
		return fmt.Errorf("FTP_HOST is required")
	}
	if c.WiFiTimeout <= 0 {
		return fmt.Errorf("WIFI_TIMEOUT must be positive, got %v", c.WiFiTimeout)
	}
	if c.ReadingsPerCycle <= 0 {
		return fmt.Errorf("READINGS_PER_CYCLE must be positive, got %d", c.ReadingsPerCycle)
	}
	if c.ReadingInterval <= 0 {
		return fmt.Errorf("READING_INTERVAL must be positive, got %v", c.ReadingInterval)
	}
	if c.SleepDuration <= 0 {
		return fmt.Errorf("SLEEP_DURATION must be positive, got %v", c.SleepDuration)
	}
	if c.FTPPort <= 0 || c.FTPPort > 65535 {
		return fmt.Errorf("FTP_PORT out of range: %d", c.FTPPort)
	}
	return nil
}

// MirrorEnabled reports whether the optional MQTT telemetry mirror is
// configured.
func (c Config) MirrorEnabled() bool {
	return c.MQTTBroker != ""
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
