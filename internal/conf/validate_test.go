package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Main: MainSettings{Name: "node", DeviceID: "device-1"},
		Detector: DetectorSettings{
			CalibrationFrames: 30,
			AlertThreshold:    0.7,
			CooldownSeconds:   5.0,
			Weights: WeightSettings{
				AspectRatio: 0.3,
				Tilt:        0.3,
				Velocity:    0.4,
				HeadHeight:  0.2,
			},
			Thresholds: ThresholdSettings{
				AspectRatioDrop: 0.5,
				TiltAngle:       45,
				Velocity:        0.5,
				HeadHeight:      0.6,
				Visibility:      0.5,
			},
		},
		Clip: ClipSettings{
			Enabled:     true,
			Path:        "clips",
			PreSeconds:  3.0,
			PostSeconds: 2.0,
			FrameRate:   30,
			Retention:   RetentionSettings{Policy: "age", MaxAge: "30d", MaxUsage: "80%", KeepLast: 10},
		},
		Realtime: RealtimeSettings{
			MQTT:      MQTTSettings{Enabled: true, Broker: "tcp://localhost:1883", Topic: "novacare/fall"},
			WebServer: WebServerSettings{Enabled: true, Port: "8080"},
		},
	}
}

func TestValidateSettingsValid(t *testing.T) {
	assert.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	s := validSettings()
	s.Detector.AlertThreshold = 1.5
	s.Clip.PreSeconds = 0
	s.Realtime.MQTT.Broker = ""

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateDetectorSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DetectorSettings)
	}{
		{"zero calibration frames", func(d *DetectorSettings) { d.CalibrationFrames = 0 }},
		{"threshold above one", func(d *DetectorSettings) { d.AlertThreshold = 1.1 }},
		{"zero threshold", func(d *DetectorSettings) { d.AlertThreshold = 0 }},
		{"negative cooldown", func(d *DetectorSettings) { d.CooldownSeconds = -1 }},
		{"negative weight", func(d *DetectorSettings) { d.Weights.Tilt = -0.1 }},
		{"all zero weights", func(d *DetectorSettings) { d.Weights = WeightSettings{} }},
		{"aspect drop at one", func(d *DetectorSettings) { d.Thresholds.AspectRatioDrop = 1.0 }},
		{"tilt angle at ninety", func(d *DetectorSettings) { d.Thresholds.TiltAngle = 90 }},
		{"zero velocity threshold", func(d *DetectorSettings) { d.Thresholds.Velocity = 0 }},
		{"head height at one", func(d *DetectorSettings) { d.Thresholds.HeadHeight = 1.0 }},
		{"visibility above one", func(d *DetectorSettings) { d.Thresholds.Visibility = 1.5 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			tc.mutate(&s.Detector)
			assert.Error(t, ValidateSettings(s))
		})
	}
}

func TestValidateClipSettings(t *testing.T) {
	s := validSettings()
	s.Clip.Path = ""
	assert.Error(t, ValidateSettings(s), "enabled clip export requires a path")

	s.Clip.Enabled = false
	assert.NoError(t, ValidateSettings(s), "path is not required when export is disabled")
}

func TestValidateRetentionSettings(t *testing.T) {
	s := validSettings()
	s.Clip.Retention.Policy = "lru"
	assert.Error(t, ValidateSettings(s))

	s.Clip.Retention.Policy = "age"
	s.Clip.Retention.MaxAge = "soon"
	assert.Error(t, ValidateSettings(s))

	s.Clip.Retention.MaxAge = "7d"
	assert.NoError(t, ValidateSettings(s))

	s.Clip.Retention.Policy = "usage"
	s.Clip.Retention.MaxUsage = "120%"
	assert.Error(t, ValidateSettings(s))

	s.Clip.Retention.MaxUsage = "85%"
	assert.NoError(t, ValidateSettings(s))

	s.Clip.Retention.Policy = "none"
	s.Clip.Retention.MaxAge = ""
	assert.NoError(t, ValidateSettings(s), "none policy needs no further values")
}

func TestParseRetentionPeriod(t *testing.T) {
	tests := []struct {
		in    string
		hours int
		ok    bool
	}{
		{"24h", 24, true},
		{"7d", 168, true},
		{"1w", 168, true},
		{"3m", 2160, true},
		{"1y", 8760, true},
		{"36", 36, true},
		{"", 0, false},
		{"soon", 0, false},
		{"7q", 0, false},
	}

	for _, tc := range tests {
		hours, err := ParseRetentionPeriod(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.hours, hours, tc.in)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func TestParsePercentage(t *testing.T) {
	v, err := ParsePercentage("80%")
	require.NoError(t, err)
	assert.InDelta(t, 80.0, v, 1e-9)

	_, err = ParsePercentage("80")
	assert.Error(t, err)
	_, err = ParsePercentage("110%")
	assert.Error(t, err)
}

func TestValidateWebServerPort(t *testing.T) {
	s := validSettings()
	s.Realtime.WebServer.Port = "not-a-port"
	assert.Error(t, ValidateSettings(s))

	s.Realtime.WebServer.Port = "70000"
	assert.Error(t, ValidateSettings(s))

	s.Realtime.WebServer.Enabled = false
	assert.NoError(t, ValidateSettings(s), "port is not checked when the server is disabled")
}

func TestNormalizeWeights(t *testing.T) {
	w := WeightSettings{AspectRatio: 0.3, Tilt: 0.3, Velocity: 0.4, HeadHeight: 0.2}
	normalizeWeights(&w)

	sum := w.AspectRatio + w.Tilt + w.Velocity + w.HeadHeight
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.25, w.AspectRatio, 1e-9)
	assert.InDelta(t, 0.25, w.Tilt, 1e-9)
	assert.InDelta(t, 1.0/3.0, w.Velocity, 1e-9)
	assert.InDelta(t, 1.0/6.0, w.HeadHeight, 1e-9)
}
