// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "FallGuard-Go")
	viper.SetDefault("main.deviceid", "fallguard-0")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "fallguard.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("detector.debug", false)
	viper.SetDefault("detector.calibrationframes", 30)
	viper.SetDefault("detector.alertthreshold", 0.7)
	viper.SetDefault("detector.cooldownseconds", 5.0)

	viper.SetDefault("detector.weights.aspectratio", 0.3)
	viper.SetDefault("detector.weights.tilt", 0.3)
	viper.SetDefault("detector.weights.velocity", 0.4)
	viper.SetDefault("detector.weights.headheight", 0.2)

	viper.SetDefault("detector.thresholds.aspectratiodrop", 0.5)
	viper.SetDefault("detector.thresholds.tiltangle", 45.0)
	viper.SetDefault("detector.thresholds.velocity", 0.5)
	viper.SetDefault("detector.thresholds.headheight", 0.6)
	viper.SetDefault("detector.thresholds.visibility", 0.5)

	viper.SetDefault("clip.debug", false)
	viper.SetDefault("clip.enabled", true)
	viper.SetDefault("clip.path", "clips/")
	viper.SetDefault("clip.preseconds", 3.0)
	viper.SetDefault("clip.postseconds", 2.0)
	viper.SetDefault("clip.framerate", 30)
	viper.SetDefault("clip.ffmpegpath", "ffmpeg")
	viper.SetDefault("clip.packaginggrace", 10.0)

	viper.SetDefault("clip.retention.debug", false)
	viper.SetDefault("clip.retention.policy", "age")
	viper.SetDefault("clip.retention.maxage", "30d")
	viper.SetDefault("clip.retention.maxusage", "80%")
	viper.SetDefault("clip.retention.keeplast", 10)

	viper.SetDefault("realtime.source", "0")

	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topic", "novacare/fall")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")
	viper.SetDefault("realtime.mqtt.retain", false)

	viper.SetDefault("realtime.notification.enabled", false)
	viper.SetDefault("realtime.notification.urls", []string{})

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("realtime.sentry.enabled", false)
	viper.SetDefault("realtime.sentry.dsn", "")

	viper.SetDefault("realtime.webserver.enabled", true)
	viper.SetDefault("realtime.webserver.port", "8080")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "fallguard.db")
}
