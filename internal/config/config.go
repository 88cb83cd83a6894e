package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr        string `yaml:"listen_addr"`
	DBPath            string `yaml:"db_path"`
	PhotoPath         string `yaml:"photo_path"`
	GeocoderBackend   string `yaml:"geocoder_backend"`
	NominatimHost     string `yaml:"nominatim_host"`
	GeocoderUserAgent string `yaml:"geocoder_user_agent"`
	LogLevel          string `yaml:"log_level"`
	LogFile           string `yaml:"log_file"`
}

func Default() *Config {
	return &Config{
		ListenAddr:        ":8080",
		DBPath:            "/data/phototasks.db",
		PhotoPath:         "/data/photos",
		GeocoderBackend:   "none",
		NominatimHost:     "https://nominatim.openstreetmap.org",
		GeocoderUserAgent: "phototasks/1.0",
		LogLevel:          "info",
	}
}

// Load starts from defaults, merges the YAML file named by PHOTOTASKS_CONFIG
// when it is set, then applies environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("PHOTOTASKS_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.PhotoPath = getEnv("PHOTO_LOCAL_PATH", cfg.PhotoPath)
	cfg.GeocoderBackend = getEnv("GEOCODER_BACKEND", cfg.GeocoderBackend)
	cfg.NominatimHost = getEnv("NOMINATIM_HOST", cfg.NominatimHost)
	cfg.GeocoderUserAgent = getEnv("GEOCODER_USER_AGENT", cfg.GeocoderUserAgent)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	return cfg, nil
}

// mergeFile overlays the non-empty values found in a YAML file.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	overlay(&c.ListenAddr, file.ListenAddr)
	overlay(&c.DBPath, file.DBPath)
	overlay(&c.PhotoPath, file.PhotoPath)
	overlay(&c.GeocoderBackend, file.GeocoderBackend)
	overlay(&c.NominatimHost, file.NominatimHost)
	overlay(&c.GeocoderUserAgent, file.GeocoderUserAgent)
	overlay(&c.LogLevel, file.LogLevel)
	overlay(&c.LogFile, file.LogFile)
	return nil
}

func overlay(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
