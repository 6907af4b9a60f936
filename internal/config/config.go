// Package config loads application settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the application configuration
type Config struct {
	BaseURL  string
	HTTPAddr string

	APIKey       string
	CaptionModel string

	UploadDelay time.Duration
	CameraDir   string

	WhatsAppEnabled bool
	WhatsAppDataDir string
	ShareRecipients []string

	ChromePath string
	LogLevel   zerolog.Level
}

// LoadConfig loads an optional .env file, then configuration from environment
// variables or defaults. Variables already set in the environment win over the
// file.
func LoadConfig(envFiles ...string) *Config {
	// a missing .env is fine
	_ = godotenv.Load(envFiles...)

	return &Config{
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080/"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		APIKey:          getEnv("API_KEY", ""),
		CaptionModel:    getEnv("CAPTION_MODEL", "gemini-2.5-flash"),
		UploadDelay:     getDuration("UPLOAD_DELAY", 2*time.Second),
		CameraDir:       getEnv("CAMERA_DIR", "camera"),
		WhatsAppEnabled: getBool("WHATSAPP_ENABLED", false),
		WhatsAppDataDir: getEnv("WHATSAPP_DATA_DIR", "data"),
		ShareRecipients: getList("SHARE_RECIPIENTS"),
		ChromePath:      getEnv("CHROME_PATH", ""),
		LogLevel:        getLevel("LOG_LEVEL", zerolog.InfoLevel),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getLevel(key string, defaultValue zerolog.Level) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv(key)))
	if err != nil || lvl == zerolog.NoLevel {
		return defaultValue
	}
	return lvl
}
