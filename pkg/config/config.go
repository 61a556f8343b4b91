package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: toda variável de ambiente é lida somente aqui
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// External providers
	Brapi  BrapiConfig
	BCB    BCBConfig
	CVM    CVMConfig
	Bridge BridgeConfig

	// Local cache
	CacheDir string

	// Logging
	LogLevel  string
	LogFormat string
}

// BrapiConfig holds brapi.dev bulk-quote API configuration
type BrapiConfig struct {
	Token   string
	BaseURL string
}

// BCBConfig holds Banco Central PTAX OData API configuration
type BCBConfig struct {
	BaseURL string
	TTL     time.Duration
}

// CVMConfig holds CVM open-data portal configuration
type CVMConfig struct {
	BaseURL string
	TTL     time.Duration
}

// BridgeConfig holds the yfinance subprocess bridge configuration
type BridgeConfig struct {
	ScriptPath  string
	Interpreter string
	Fallback    string
	Timeout     time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: somente esta função chama os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8091"),
		Env:  getEnv("ENV", "development"),

		Brapi: BrapiConfig{
			Token:   getEnv("BRAPI_TOKEN", ""),
			BaseURL: getEnv("BRAPI_BASE_URL", "https://brapi.dev"),
		},

		BCB: BCBConfig{
			BaseURL: getEnv("BCB_BASE_URL", "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"),
			TTL:     getEnvAsDuration("BCB_CACHE_TTL", "6h"),
		},

		CVM: CVMConfig{
			BaseURL: getEnv("CVM_BASE_URL", "https://dados.cvm.gov.br/dados/CIA_ABERTA/DOC"),
			TTL:     getEnvAsDuration("CVM_CACHE_TTL", "24h"),
		},

		Bridge: BridgeConfig{
			ScriptPath:  getEnv("YF_BRIDGE_PATH", "scripts/yfinance/yfinance_bridge.py"),
			Interpreter: getEnv("YF_BRIDGE_PYTHON", "python3"),
			Fallback:    getEnv("YF_BRIDGE_PYTHON_FALLBACK", "python"),
			Timeout:     getEnvAsDuration("YF_BRIDGE_TIMEOUT", "20s"),
		},

		CacheDir: getEnv("CACHE_DIR", defaultCacheDir()),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// The bulk-quote API refuses unauthenticated batch requests, so the
	// token must be present before any pipeline work starts.
	if c.Brapi.Token == "" {
		return fmt.Errorf("BRAPI_TOKEN is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	return nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "sentinela")
	}
	return filepath.Join(os.TempDir(), "sentinela")
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
