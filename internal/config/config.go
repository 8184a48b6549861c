package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"procmap/internal/backend"
	"procmap/internal/graph"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Backend          backend.Config
	DataPath         string
	LogDir           string
	ViewDir          string
	PathThreshold    float64
	DisplayMetric    graph.DisplayMetric
	PreviewDebounce  time.Duration
	Palette          graph.Palette
	EnableHTMLViewer bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return FromEnv(exeDir)
}

// FromEnv builds the configuration from the current environment. exeDir is
// the fallback data path and may be empty.
func FromEnv(exeDir string) (*AppConfig, error) {
	dataPath := getEnv("DATA_PATH", "")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))
	viewDir := filepath.Join(dataPath, "views")

	for _, dir := range []string{logDir, viewDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create directory")
		}
	}

	palette := graph.DefaultPalette()
	if path := getEnv("PALETTE_FILE", ""); path != "" {
		p, err := LoadPalette(path)
		if err != nil {
			return nil, err
		}
		palette = p
	}

	cfg := &AppConfig{
		Backend: backend.Config{
			BaseURL:  getEnv("API_BASE_URL", "http://localhost:8000"),
			Token:    getEnv("API_TOKEN", ""),
			Timeout:  time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 30)) * time.Second,
			CacheTTL: time.Duration(getEnvInt("API_CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		DataPath:         dataPath,
		LogDir:           logDir,
		ViewDir:          viewDir,
		PathThreshold:    getEnvFloat("PATH_THRESHOLD", 0),
		DisplayMetric:    graph.ParseDisplayMetric(getEnv("DISPLAY_METRIC", string(graph.DisplayFrequency))),
		PreviewDebounce:  time.Duration(getEnvInt("PREVIEW_DEBOUNCE_MS", 500)) * time.Millisecond,
		Palette:          palette,
		EnableHTMLViewer: getEnvBool("ENABLE_HTML_VIEWER", false),
	}

	return cfg, nil
}

// LoadPalette reads stroke colors from a TOML file. Colors the file leaves
// out keep their defaults.
func LoadPalette(path string) (graph.Palette, error) {
	var p graph.Palette
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return graph.Palette{}, fmt.Errorf("failed to read palette %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Warn().Str("path", path).Msgf("Ignoring unknown palette keys: %v", undecoded)
	}
	return p.WithDefaults(), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer setting")
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric setting")
	}
	return fallback
}
