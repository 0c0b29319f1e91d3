package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultExtractorTimeout  = 5 * time.Minute
	DefaultSweepInterval     = 30 * time.Minute
	DefaultOrphanAge         = time.Hour
	DefaultSessionTTL        = 24 * time.Hour
	DefaultYtDlpUpdate       = 24 * time.Hour
	// Files below DefaultMinViableSize are error pages or empty containers.
	DefaultMinViableSize     = 1024
	DefaultDocumentThreshold = 50 * 1024 * 1024
	DefaultCaptionLimit      = 1000
	DefaultAudioBitrate      = "192k"
)

type Config struct {
	BotToken   string
	AdminID    int64
	Lang       string
	LogLevel   string
	ScratchDir string
	DBPath     string
	Proxy      string

	Jobs    JobsConfig
	Tools   ToolsConfig
	Cleanup CleanupConfig
}

type JobsConfig struct {
	MaxConcurrent     int
	ExtractorTimeout  time.Duration
	MinViableSize     int64
	DocumentThreshold int64
	CaptionLimit      int
}

type ToolsConfig struct {
	YtDlp               string
	Instaloader         string
	FFmpeg              string
	FFprobe             string
	AudioBitrate        string
	YtDlpUpdateInterval time.Duration
}

type CleanupConfig struct {
	SweepInterval time.Duration
	OrphanAge     time.Duration
	SessionTTL    time.Duration
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// loadEnvFile reads ENV_FILE (default .env) into the process environment.
// Variables already set win; a missing file is not an error.
func loadEnvFile() error {
	path := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Printf("Loaded environment from %s", path)
	return nil
}

func NewConfig() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	config := &Config{
		BotToken:   getEnv("BOT_TOKEN", ""),
		AdminID:    getEnvInt64("ADMIN_ID", 0),
		Lang:       getEnv("LANG", "uz"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ScratchDir: getEnv("SCRATCH_DIR", "temp_downloads"),
		DBPath:     getEnv("DB_PATH", "bot_users.db"),
		Proxy:      getEnv("PROXY", ""),

		Jobs: JobsConfig{
			MaxConcurrent:     getEnvInt("MAX_CONCURRENT_JOBS", 4),
			ExtractorTimeout:  getEnvDuration("EXTRACTOR_TIMEOUT", DefaultExtractorTimeout),
			MinViableSize:     getEnvInt64("MIN_VIABLE_SIZE", DefaultMinViableSize),
			DocumentThreshold: getEnvInt64("DOCUMENT_THRESHOLD", DefaultDocumentThreshold),
			CaptionLimit:      getEnvInt("CAPTION_LIMIT", DefaultCaptionLimit),
		},

		Tools: ToolsConfig{
			YtDlp:               getEnv("YTDLP_BINARY", "yt-dlp"),
			Instaloader:         getEnv("INSTALOADER_BINARY", "instaloader"),
			FFmpeg:              getEnv("FFMPEG_BINARY", "ffmpeg"),
			FFprobe:             getEnv("FFPROBE_BINARY", "ffprobe"),
			AudioBitrate:        getEnv("AUDIO_BITRATE", DefaultAudioBitrate),
			YtDlpUpdateInterval: getEnvDuration("YTDLP_UPDATE_INTERVAL", DefaultYtDlpUpdate),
		},

		Cleanup: CleanupConfig{
			SweepInterval: getEnvDuration("SWEEP_INTERVAL", DefaultSweepInterval),
			OrphanAge:     getEnvDuration("ORPHAN_AGE", DefaultOrphanAge),
			SessionTTL:    getEnvDuration("SESSION_TTL", DefaultSessionTTL),
		},
	}

	if err := config.validate(); err != nil {
		log.Printf("Configuration validation failed: %v", err)
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Println("Configuration loaded successfully")
	return config, nil
}

func (c *Config) IsAdmin(userID int64) bool {
	return c.AdminID != 0 && c.AdminID == userID
}
