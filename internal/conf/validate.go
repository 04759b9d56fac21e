// conf/validate.go

package conf

import (
	"fmt"
	"strconv"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateDetectorSettings(&settings.Detector); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateClipSettings(&settings.Clip); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.Realtime.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMQTTSettings(&settings.Realtime.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

// validateDetectorSettings validates the detector-specific settings
func validateDetectorSettings(detector *DetectorSettings) error {
	if detector.CalibrationFrames <= 0 {
		return fmt.Errorf("detector calibration frames must be greater than 0: %d", detector.CalibrationFrames)
	}

	if detector.AlertThreshold <= 0 || detector.AlertThreshold > 1 {
		return fmt.Errorf("detector alert threshold must be in range (0, 1]: %f", detector.AlertThreshold)
	}

	if detector.CooldownSeconds < 0 {
		return fmt.Errorf("detector cooldown must not be negative: %f", detector.CooldownSeconds)
	}

	w := detector.Weights
	for name, weight := range map[string]float64{
		"aspectratio": w.AspectRatio,
		"tilt":        w.Tilt,
		"velocity":    w.Velocity,
		"headheight":  w.HeadHeight,
	} {
		if weight < 0 {
			return fmt.Errorf("detector weight %s must not be negative: %f", name, weight)
		}
	}
	if w.AspectRatio+w.Tilt+w.Velocity+w.HeadHeight == 0 {
		return fmt.Errorf("detector weights must not all be zero")
	}

	t := detector.Thresholds
	if t.AspectRatioDrop <= 0 || t.AspectRatioDrop >= 1 {
		return fmt.Errorf("aspect ratio drop threshold must be in range (0, 1): %f", t.AspectRatioDrop)
	}
	if t.TiltAngle <= 0 || t.TiltAngle >= 90 {
		return fmt.Errorf("tilt angle threshold must be in range (0, 90) degrees: %f", t.TiltAngle)
	}
	if t.Velocity <= 0 {
		return fmt.Errorf("velocity threshold must be greater than 0: %f", t.Velocity)
	}
	if t.HeadHeight <= 0 || t.HeadHeight >= 1 {
		return fmt.Errorf("head height threshold must be in range (0, 1): %f", t.HeadHeight)
	}
	if t.Visibility < 0 || t.Visibility > 1 {
		return fmt.Errorf("visibility threshold must be in range [0, 1]: %f", t.Visibility)
	}

	return nil
}

// validateClipSettings validates the clip capture settings
func validateClipSettings(clip *ClipSettings) error {
	if clip.PreSeconds <= 0 {
		return fmt.Errorf("clip pre-event window must be greater than 0 seconds: %f", clip.PreSeconds)
	}
	if clip.PostSeconds <= 0 {
		return fmt.Errorf("clip post-event window must be greater than 0 seconds: %f", clip.PostSeconds)
	}
	if clip.FrameRate <= 0 {
		return fmt.Errorf("clip frame rate must be greater than 0: %d", clip.FrameRate)
	}
	if clip.Enabled && clip.Path == "" {
		return fmt.Errorf("clip export path must not be empty when clip export is enabled")
	}

	switch clip.Retention.Policy {
	case "none":
	case "age":
		if _, err := ParseRetentionPeriod(clip.Retention.MaxAge); err != nil {
			return fmt.Errorf("invalid clip retention max age: %w", err)
		}
	case "usage":
		if _, err := ParsePercentage(clip.Retention.MaxUsage); err != nil {
			return fmt.Errorf("invalid clip retention max usage: %w", err)
		}
	default:
		return fmt.Errorf("clip retention policy must be none, age or usage: %s", clip.Retention.Policy)
	}
	if clip.Retention.KeepLast < 0 {
		return fmt.Errorf("clip retention keep last must not be negative: %d", clip.Retention.KeepLast)
	}
	return nil
}

// validateWebServerSettings validates the status HTTP server settings
func validateWebServerSettings(ws *WebServerSettings) error {
	if !ws.Enabled {
		return nil
	}
	port, err := strconv.Atoi(ws.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid WebServer port: %s", ws.Port)
	}
	return nil
}

// validateMQTTSettings validates the MQTT publish settings
func validateMQTTSettings(mqtt *MQTTSettings) error {
	if !mqtt.Enabled {
		return nil
	}
	if mqtt.Broker == "" {
		return fmt.Errorf("MQTT broker URL must not be empty when MQTT is enabled")
	}
	if mqtt.Topic == "" {
		return fmt.Errorf("MQTT topic must not be empty when MQTT is enabled")
	}
	return nil
}
