package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             int
	BaseURL          string // Public URL of the API, used by cmd/spin
	DatabaseURL      string // Empty selects the JSON file store under DataDir
	DataDir          string
	AdminPasscode    string // Empty disables the admin listing (500)
	PrizeCatalogFile string // Optional JSON catalog; missing file means the default tiers
	AllowedOrigin    string
	LogFile          string
	Verbose          bool
	ShutdownTimeout  time.Duration
}

func Load() *Config {
	port := 8080
	// PORT first (PaaS convention), then LIXI_PORT.
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	} else if p := os.Getenv("LIXI_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	}
	dataDir := os.Getenv("LIXI_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	baseURL := os.Getenv("LIXI_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + strconv.Itoa(port)
	}
	origin := os.Getenv("LIXI_ALLOWED_ORIGIN")
	if origin == "" {
		origin = "*"
	}
	verbose, _ := strconv.ParseBool(os.Getenv("LOG_VERBOSE"))
	shutdown := 10 * time.Second
	if s := os.Getenv("LIXI_SHUTDOWN_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			shutdown = d
		}
	}
	return &Config{
		Port:             port,
		BaseURL:          baseURL,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DataDir:          dataDir,
		AdminPasscode:    os.Getenv("ADMIN_PASSCODE"),
		PrizeCatalogFile: os.Getenv("PRIZE_CATALOG_FILE"),
		AllowedOrigin:    origin,
		LogFile:          os.Getenv("LIXI_LOG_FILE"),
		Verbose:          verbose,
		ShutdownTimeout:  shutdown,
	}
}
