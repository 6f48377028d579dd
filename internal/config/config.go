package config

import (
	"time"

	"github.com/spf13/viper"
)

func Load() error {
	// Backend the console talks to
	viper.SetDefault("BACKEND_URL", "http://localhost:8000")
	viper.SetDefault("HTTP_TIMEOUT", "10s")

	// Console (local view server + login)
	viper.SetDefault("CONSOLE_ADDR", ":3000")
	viper.SetDefault("CONSOLE_USERNAME", "operator")
	viper.SetDefault("CONSOLE_PASSWORD", "operator123")
	viper.SetDefault("SESSION_FILE", "session.json")

	// Synchronizer
	viper.SetDefault("POLL_INTERVAL", "30s")
	viper.SetDefault("WS_RECONNECT_DELAY", "5s")
	viper.SetDefault("HISTORY_HOURS", 24)

	// Simulator (keep DB/MQTT optional for local dev)
	viper.SetDefault("SIM_ADDR", ":8000")
	viper.SetDefault("SIM_TICK", "5s")
	viper.SetDefault("SIM_SCENARIO", "normal")
	viper.SetDefault("DB_DSN", "")
	viper.SetDefault("MQTT_BROKER", "")
	viper.SetDefault("JWT_SECRET", "microgrid-dev-secret")

	viper.AutomaticEnv()
	return nil
}

func BackendURL() string              { return viper.GetString("BACKEND_URL") }
func HTTPTimeout() time.Duration      { return viper.GetDuration("HTTP_TIMEOUT") }
func SessionFile() string             { return viper.GetString("SESSION_FILE") }
func PollInterval() time.Duration     { return viper.GetDuration("POLL_INTERVAL") }
func WSReconnectDelay() time.Duration { return viper.GetDuration("WS_RECONNECT_DELAY") }
func HistoryHours() int               { return viper.GetInt("HISTORY_HOURS") }
func SimTick() time.Duration          { return viper.GetDuration("SIM_TICK") }
func SimScenario() string             { return viper.GetString("SIM_SCENARIO") }
func DBDSN() string                   { return viper.GetString("DB_DSN") }
func MQTTBroker() string              { return viper.GetString("MQTT_BROKER") }
func JWTSecret() string               { return viper.GetString("JWT_SECRET") }
