package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is immutable after Load and shared by every component.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Pacing bounds (seconds between outbound requests).
	MinDelaySeconds      float64
	MaxDelaySeconds      float64
	MaxRequestsPerMinute int

	// Peak-hour window, during which pacing adds an advisory cooldown.
	AvoidPeakHours bool
	PeakStartHour  int
	PeakEndHour    int

	// Per-session caps.
	MaxListingsPerSession int
	MaxPagesPerSession    int
	MaxRetriesPerListing  int

	// Feature toggles.
	SaveImages         bool
	ExtractCoordinates bool
	ValidateData       bool
	UsePersistentStore bool

	BatchSaveSize int

	SearchURL string
	OutputDir string
	ChromeBin string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "properties_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MinDelaySeconds:      getEnvFloat("MIN_DELAY_SECONDS", 3.0),
		MaxDelaySeconds:      getEnvFloat("MAX_DELAY_SECONDS", 8.0),
		MaxRequestsPerMinute: getEnvInt("MAX_REQUESTS_PER_MINUTE", 10),

		AvoidPeakHours: getEnvBool("AVOID_PEAK_HOURS", true),
		PeakStartHour:  getEnvInt("PEAK_START_HOUR", 9),
		PeakEndHour:    getEnvInt("PEAK_END_HOUR", 18),

		MaxListingsPerSession: getEnvInt("MAX_LISTINGS_PER_SESSION", 100),
		MaxPagesPerSession:    getEnvInt("MAX_PAGES_PER_SESSION", 10),
		MaxRetriesPerListing:  getEnvInt("MAX_RETRIES_PER_LISTING", 3),

		SaveImages:         getEnvBool("SAVE_IMAGES", false),
		ExtractCoordinates: getEnvBool("EXTRACT_COORDINATES", true),
		ValidateData:       getEnvBool("VALIDATE_DATA", true),
		UsePersistentStore: getEnvBool("USE_PERSISTENT_STORE", true),

		BatchSaveSize: getEnvInt("BATCH_SAVE_SIZE", 50),

		SearchURL: getEnv("SEARCH_URL",
			"https://www.portalinmobiliario.com/venta/departamento/las-condes-metropolitana"),
		OutputDir: getEnv("OUTPUT_DIR", "./output"),
		ChromeBin: getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
