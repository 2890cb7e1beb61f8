package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// JournalConfig holds capture-journal storage settings.
type JournalConfig struct {
	Type         string        `json:"type" mapstructure:"type"`
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// GetJournalConfig returns the journal settings from viper.
func GetJournalConfig() JournalConfig {
	return JournalConfig{
		Type:         viper.GetString("journal.type"),
		OutputDir:    viper.GetString("journal.outputDir"),
		DumpInterval: viper.GetDuration("journal.dumpInterval"),
	}
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./scanlogs")

	viper.SetDefault("api.serverUrl", "http://localhost:8080")
	viper.SetDefault("api.uploadTimeout", "30s")

	viper.SetDefault("session.url", "")

	viper.SetDefault("camera.source", "")
	viper.SetDefault("camera.width", 1280)
	viper.SetDefault("camera.height", 720)
	viper.SetDefault("camera.maxFps", 60)

	viper.SetDefault("detection.analysisWidth", 120)
	viper.SetDefault("detection.presenceThreshold", 0.05)
	viper.SetDefault("detection.channelMargin", 20)
	viper.SetDefault("detection.greenMin", 60)
	viper.SetDefault("detection.greenMax", 200)
	viper.SetDefault("detection.redBlueMax", 150)
	viper.SetDefault("detection.roi", "")

	viper.SetDefault("lock.stabilizationWindow", "500ms")
	viper.SetDefault("lock.cooldown", "2s")

	viper.SetDefault("capture.jpegQuality", 85)

	viper.SetDefault("journal.type", "sqlite")
	viper.SetDefault("journal.outputDir", "./recordings")
	viper.SetDefault("journal.dumpInterval", "3m")

	viper.SetDefault("station.name", "scanner-station")
	viper.SetDefault("station.location", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "vignettes")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "scanner-metrics")

	viper.SetDefault("monitor.websocketUrl", "")
	viper.SetDefault("monitor.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("scanner.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}
