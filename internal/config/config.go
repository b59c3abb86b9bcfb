package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"jira-quality/internal/jira"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const defaultSnapshotFile = "jira_issues_raw.json"

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Jira           jira.Config
	ProjectKey     string
	DataPath       string
	LogDir         string
	SnapshotPath   string
	FieldMapFile   string
	Workers        int
	HTTPAddr       string
	RedisURL       string
	StatusCacheTTL time.Duration
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// Binary directory first, then the working directory. godotenv never
	// overrides a variable that is already set.
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables")
	}

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = "."
	}

	snapshotPath := getEnv("SNAPSHOT_FILE", defaultSnapshotFile)
	if !filepath.IsAbs(snapshotPath) {
		snapshotPath = filepath.Join(dataPath, snapshotPath)
	}

	cfg := &AppConfig{
		Jira: jira.Config{
			BaseURL:           getEnv("JIRA_URL", ""),
			Email:             getEnv("JIRA_EMAIL", ""),
			Token:             getEnv("JIRA_TOKEN", ""),
			VerifySSL:         getEnvBool("JIRA_VERIFY_SSL", false),
			RequestTimeout:    getEnvDuration("JIRA_REQUEST_TIMEOUT", 60*time.Second),
			RequestsPerSecond: getEnvFloat("JIRA_REQUESTS_PER_SECOND", 10),
			PageSize:          getEnvInt("JIRA_PAGE_SIZE", 100),
		},
		ProjectKey:     getEnv("PROJECT_KEY", ""),
		DataPath:       dataPath,
		LogDir:         getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs")),
		SnapshotPath:   snapshotPath,
		FieldMapFile:   getEnv("FIELD_MAP_FILE", ""),
		Workers:        getEnvInt("FETCH_WORKERS", 5),
		HTTPAddr:       getEnv("HTTP_ADDR", "127.0.0.1:5000"),
		RedisURL:       getEnv("REDIS_URL", ""),
		StatusCacheTTL: getEnvDuration("STATUS_CACHE_TTL", 10*time.Minute),
	}

	return cfg, nil
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer value")
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric value")
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid duration")
	return fallback
}
