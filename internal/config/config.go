package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DeviceSpec describes one weather device from the environment.
// Location is either a personal weather station ID, a "geo:lat,lon" pair,
// or a "city:Name,Country" spec resolved through the geocoder at startup.
type DeviceSpec struct {
	Key      string `validate:"required"`
	Name     string
	Location string `validate:"required"`
	Units    string `validate:"oneof=standard metric"`
}

type AppConfig struct {
	// Weather Underground API key. Without it the poller cannot run.
	APIKey string `validate:"required"`

	// Google geocoding key; only needed when a device uses a city: spec.
	GeocoderAPIKey string

	// PollInterval controls how often a full device cycle runs.
	PollInterval time.Duration `validate:"min=1m"`

	// HTTPTimeout bounds a single provider request.
	HTTPTimeout time.Duration

	// DailyCallLimit is the provider call budget per reference-zone day.
	DailyCallLimit int `validate:"min=1"`

	// Devices to poll, in configuration order.
	Devices []DeviceSpec `validate:"min=1,dive"`

	// PrefsPath is the SQLite file holding quota and epoch state.
	PrefsPath string `validate:"required"`

	LogLevel  string
	LogFormat string

	// In-memory history retention.
	StoreMaxHistory int           // max snapshots per device (0 = unlimited)
	StoreMaxAge     time.Duration // max snapshot age (0 = unlimited)

	// MQTT publishing; disabled when Broker is empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	// UpdateURL is polled once per day for a newer release version.
	// Empty disables the check.
	UpdateURL string

	Port        string
	MetricsAddr string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.APIKey = os.Getenv("WUNDERGROUND_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	// Scheduler interval: default 15 minutes.
	intervalStr := getenvDefault("POLL_INTERVAL", "15m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	cfg.PollInterval = interval

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.DailyCallLimit = getenvInt("DAILY_CALL_LIMIT", 500)
	cfg.PrefsPath = getenvDefault("PREFS_PATH", "stationwatch.db")

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "text")

	// History retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals
	maxAgeStr := getenvDefault("STORE_MAX_AGE", "24h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_AGE: %w", err)
	}
	cfg.StoreMaxAge = maxAge

	cfg.MQTTBroker = os.Getenv("MQTT_BROKER")
	cfg.MQTTPort = getenvInt("MQTT_PORT", 1883)
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", "stationwatch")
	cfg.MQTTTopic = getenvDefault("MQTT_TOPIC", "stationwatch")

	cfg.UpdateURL = os.Getenv("UPDATE_URL")

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.MetricsAddr = getenvDefault("METRICS_ADDR", ":9090")

	devices, err := parseDevices(os.Getenv("DEVICES"))
	if err != nil {
		return nil, err
	}
	cfg.Devices = devices

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseDevices splits the DEVICES variable into device specs. Entries are
// separated by semicolons so geo: coordinates can keep their comma, e.g.
//
//	patio=KCASANFR708/standard;office=geo:37.7793,-122.4193/metric
func parseDevices(raw string) ([]DeviceSpec, error) {
	var specs []DeviceSpec
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		key, rest, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("device entry %q: expected key=location/units", entry)
		}

		location := rest
		units := "standard"
		if loc, u, ok := cutLast(rest, "/"); ok {
			location = loc
			units = u
		}

		key = strings.TrimSpace(key)
		specs = append(specs, DeviceSpec{
			Key:      key,
			Name:     key,
			Location: strings.TrimSpace(location),
			Units:    strings.ToLower(strings.TrimSpace(units)),
		})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("DEVICES is empty: at least one device is required")
	}
	return specs, nil
}

// cutLast splits around the final occurrence of sep.
func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
