package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	PanelURL      string
	LoginEmail    string
	LoginPassword string
	Headless      bool

	DownloadDir  string
	SchedulePath string
	PDFEnabled   bool

	WebhookPort   string
	WebhookSecret string
	EditionMin    int64
	EditionMax    int64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	downloadDir := getenv("DOWNLOAD_PATH", "")
	if downloadDir == "" {
		wd, _ := os.Getwd()
		downloadDir = wd + string(os.PathSeparator) + "downloads"
	}

	return Config{
		AppName:     getenv("APP_SERVICE", "relatorio"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),

		PanelURL:      getenv("LOGIN_URL", "https://painel.litoraldasorte.com"),
		LoginEmail:    strings.TrimSpace(getenv("LOGIN_EMAIL", "")),
		LoginPassword: getenv("LOGIN_PASSWORD", ""),
		Headless:      getenvBool("BROWSER_HEADLESS", true),

		DownloadDir:  downloadDir,
		SchedulePath: getenv("SCHEDULE_CONFIG_PATH", ""),
		PDFEnabled:   getenvBool("PDF_ENABLED", true),

		WebhookPort:   getenv("WEBHOOK_PORT", "8011"),
		WebhookSecret: strings.TrimSpace(getenv("WEBHOOK_SECRET", "")),
		EditionMin:    getenvInt64("EDITION_MIN", 5350),
		EditionMax:    getenvInt64("EDITION_MAX", 20000),

		DBType:            getenv("DATABASE_TYPE", "mysql"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "3306"),
		DBName:            getenv("DATABASE_NAME", "litoral"),
		DBUser:            getenv("DATABASE_USER", "root"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 2)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 10)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
