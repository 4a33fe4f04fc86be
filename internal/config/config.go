package config

import (
	"os"
	"strconv"
)

type Config struct {
	Preprocess PreprocessConfig
	Dataset    DatasetConfig
	Database   DatabaseConfig
}

type PreprocessConfig struct {
	DownsampleSize int    // defaults to 32
	Workers        int    // defaults to 1 (sequential)
	Interpolation  string // defaults to catmullrom
}

type DatasetConfig struct {
	LFWRoot string // root of the extracted LFW images, used for relative manifest paths
	Workers int    // parallel image decoders, defaults to 4
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional, storing is disabled without it)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Preprocess: PreprocessConfig{
			DownsampleSize: envInt("DOWNSAMPLE_SIZE", 32),
			Workers:        envInt("PREPROCESS_WORKERS", 1),
			Interpolation:  envString("INTERPOLATION", "catmullrom"),
		},
		Dataset: DatasetConfig{
			LFWRoot: os.Getenv("LFW_ROOT"),
			Workers: envInt("DATASET_WORKERS", 4),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
	}
}
