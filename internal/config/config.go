package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileEnv names the environment variable that points at an optional config file.
const FileEnv = "POMODORO_CONFIG"

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string
	SettingsFile  string
}

var defaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// Load resolves configuration from defaults, then the optional YAML file at
// path (or $POMODORO_CONFIG), then environment variables. Empty environment
// variables are ignored.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "./data/pomodoro.db")
	v.SetDefault("jwt_secret", "change-this-secret")
	v.SetDefault("token_ttl_hours", 72)
	v.SetDefault("cors_origins", defaultCORSOrigins)
	v.SetDefault("migrations_dir", "")
	v.SetDefault("settings_file", "")
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(FileEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	ttlHours := v.GetInt("token_ttl_hours")
	if ttlHours <= 0 {
		ttlHours = 72
	}

	return Config{
		Port:          v.GetString("port"),
		DBPath:        v.GetString("db_path"),
		JWTSecret:     v.GetString("jwt_secret"),
		TokenTTL:      time.Duration(ttlHours) * time.Hour,
		CORSOrigins:   originList(v),
		MigrationsDir: v.GetString("migrations_dir"),
		SettingsFile:  v.GetString("settings_file"),
	}, nil
}

// originList accepts both a YAML list and the comma-separated env form.
func originList(v *viper.Viper) []string {
	var parts []string
	if raw, ok := v.Get("cors_origins").(string); ok {
		parts = strings.Split(raw, ",")
	} else {
		parts = v.GetStringSlice("cors_origins")
	}

	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return defaultCORSOrigins
	}
	return items
}
