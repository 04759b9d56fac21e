// config.go: This file contains the configuration for the FallGuard-Go application. It defines the settings struct and functions to load and save the settings.
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool     // true to enable this log
	Path     string   // path to log file
	Rotation Rotation // rotation type
	MaxSize  int64    // max size in bytes for RotationSize
}

// Rotation type for log rotation
type Rotation string

// Rotation types
const (
	RotationDaily  Rotation = "daily"
	RotationWeekly Rotation = "weekly"
	RotationSize   Rotation = "size"
)

// MainSettings contains general application settings.
type MainSettings struct {
	Name     string    // name of this node, used as the MQTT client id
	DeviceID string    // stable device identifier included in published events
	Log      LogConfig // main log file settings
}

// WeightSettings contains the per-metric weights used by the confidence scorer.
// Weights are renormalized at load time so they always sum to 1.
type WeightSettings struct {
	AspectRatio float64 // weight of the aspect ratio indicator
	Tilt        float64 // weight of the body tilt indicator
	Velocity    float64 // weight of the vertical velocity indicator
	HeadHeight  float64 // weight of the head height indicator
}

// ThresholdSettings contains the per-metric thresholds used by the confidence scorer.
type ThresholdSettings struct {
	AspectRatioDrop float64 // fraction of baseline aspect ratio considered fully horizontal
	TiltAngle       float64 // body tilt from vertical in degrees considered fully fall-like
	Velocity        float64 // downward velocity in normalized units per second considered fully fall-like
	HeadHeight      float64 // normalized head y-coordinate considered fully low
	Visibility      float64 // minimum landmark visibility for a landmark to count as visible
}

// DetectorSettings contains settings for the fall detector state machine and scorer.
type DetectorSettings struct {
	Debug             bool              // true to enable debug logging of per-frame confidence
	CalibrationFrames int               // number of valid pose frames used to establish the baseline
	AlertThreshold    float64           // minimum confidence to fire a fall alert
	CooldownSeconds   float64           // refractory period after an alert during which no new alert fires
	Weights           WeightSettings    // indicator weights
	Thresholds        ThresholdSettings // indicator thresholds
}

// RetentionSettings contains settings for clip retention cleanup.
type RetentionSettings struct {
	Debug    bool   // true to enable retention debug logging
	Policy   string // retention policy, "none", "age" or "usage"
	MaxAge   string // age policy: clips older than this are removed, e.g. "30d"
	MaxUsage string // usage policy: disk usage above this triggers cleanup, e.g. "80%"
	KeepLast int    // minimum number of newest clips always kept
}

// ClipSettings contains settings for clip capture and export.
type ClipSettings struct {
	Debug          bool              // true to enable clip buffer debug logging
	Enabled        bool              // true to export video clips of detected falls
	Path           string            // path to clip export directory
	PreSeconds     float64           // seconds of video retained before the alert
	PostSeconds    float64           // seconds of video recorded after the alert
	FrameRate      int               // nominal source frame rate, used for ring sizing and encoding
	FFmpegPath     string            // path to ffmpeg binary, runtime value
	PackagingGrace float64           // extra seconds allowed for clip packaging before finalization is abandoned
	Retention      RetentionSettings // clip retention settings
}

// MQTTSettings contains settings for the MQTT publish boundary.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT publishing of fall events
	Broker   string // MQTT broker URL
	Topic    string // topic to publish fall events to
	Username string // MQTT username
	Password string // MQTT password
	Retain   bool   // true to retain published messages at the broker
}

// NotificationSettings contains settings for push notifications.
type NotificationSettings struct {
	Enabled bool     // true to send push notifications on fall events
	Urls    []string // shoutrrr service URLs
}

// TelemetrySettings contains settings for the Prometheus telemetry endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to enable Prometheus telemetry endpoint
	Listen  string // listen address and port of telemetry endpoint
}

// SentrySettings contains settings for Sentry error reporting.
type SentrySettings struct {
	Enabled bool   // true to report errors to Sentry
	DSN     string // Sentry DSN
}

// WebServerSettings contains settings for the status HTTP server.
type WebServerSettings struct {
	Enabled bool   // true to enable the status HTTP server
	Port    string // port to listen on
}

// SQLiteSettings contains settings for the SQLite event log.
type SQLiteSettings struct {
	Enabled bool   // true to persist fall events to SQLite
	Path    string // path to the SQLite database file
}

// RealtimeSettings contains settings for realtime detection.
type RealtimeSettings struct {
	Source       string               // video frame source identifier
	MQTT         MQTTSettings         // MQTT publish settings
	Notification NotificationSettings // push notification settings
	Telemetry    TelemetrySettings    // Prometheus settings
	Sentry       SentrySettings       // Sentry settings
	WebServer    WebServerSettings    // status HTTP server settings
}

// OutputSettings contains settings for local persistence.
type OutputSettings struct {
	SQLite SQLiteSettings // SQLite event log settings
}

// Settings is the root configuration struct.
type Settings struct {
	Debug bool // true to enable debug mode

	Main     MainSettings     // general settings
	Detector DetectorSettings // fall detector settings
	Clip     ClipSettings     // clip capture settings
	Realtime RealtimeSettings // realtime boundary settings
	Output   OutputSettings   // persistence settings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the global settings instance and
// validates it. Invalid settings are a fatal condition: the pipeline must
// not enter monitoring with undefined thresholds.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	normalizeWeights(&settings.Detector.Weights)

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with the config file and default values.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create one from the defaults
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the default configuration to the first config path.
func createDefaultConfig(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if err := os.MkdirAll(configPath, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling default config: %w", err)
	}

	yamlData, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}

	if err := os.WriteFile(configFile, yamlData, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	log.Printf("Created default config file at: %s", configFile)
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the list of directories searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	var paths []string

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "fallguard-go"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "fallguard-go"))
	}

	// Current working directory as last resort
	paths = append(paths, ".")

	return paths, nil
}

// Setting returns the global settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current global settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes the given settings to the given path as YAML.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, yamlData, 0o644); err != nil {
		return fmt.Errorf("error writing YAML config file: %w", err)
	}

	return nil
}

// normalizeWeights rescales the indicator weights so they sum to 1.
// Validation has already rejected all-zero weights.
func normalizeWeights(w *WeightSettings) {
	sum := w.AspectRatio + w.Tilt + w.Velocity + w.HeadHeight
	w.AspectRatio /= sum
	w.Tilt /= sum
	w.Velocity /= sum
	w.HeadHeight /= sum
}
