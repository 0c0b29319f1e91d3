package testutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Nazarovdf/saverbot/internal/config"
	"github.com/Nazarovdf/saverbot/internal/registry"
)

const (
	tickerInterval = 10 * time.Millisecond
	testFileMode   = 0600
	byteRange      = 256
)

// TestConfig creates a configuration suitable for testing
func TestConfig(tempDir string) *config.Config {
	return &config.Config{
		BotToken:   "test-bot-token",
		AdminID:    1,
		Lang:       "en",
		LogLevel:   "debug",
		ScratchDir: filepath.Join(tempDir, "scratch"),
		DBPath:     ":memory:",

		Jobs: config.JobsConfig{
			MaxConcurrent:     2,
			ExtractorTimeout:  30 * time.Second,
			MinViableSize:     config.DefaultMinViableSize,
			DocumentThreshold: config.DefaultDocumentThreshold,
			CaptionLimit:      config.DefaultCaptionLimit,
		},

		Tools: config.ToolsConfig{
			YtDlp:        "yt-dlp",
			Instaloader:  "instaloader",
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			AudioBitrate: config.DefaultAudioBitrate,
		},

		Cleanup: config.CleanupConfig{
			SweepInterval: time.Minute,
			OrphanAge:     time.Hour,
			SessionTTL:    24 * time.Hour,
		},
	}
}

// TestRegistry opens an in-memory user registry closed with the test.
func TestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test registry: %v", err)
	}
	t.Cleanup(func() {
		_ = reg.Close()
	})
	return reg
}

// CreateTestDataFile creates a test data file with specified size
func CreateTestDataFile(t *testing.T, path string, size int64) string {
	t.Helper()

	if err := WriteDataFile(path, size); err != nil {
		t.Fatalf("Failed to create test data file: %v", err)
	}
	return path
}

// WriteDataFile is CreateTestDataFile for callers without a *testing.T,
// such as fake backends running inside the code under test.
func WriteDataFile(path string, size int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % byteRange)
	}
	return os.WriteFile(path, data, testFileMode)
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file %s to exist, but it doesn't", path)
	}
}

// AssertFileNotExists checks if a file doesn't exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file %s to not exist, but it does", path)
	}
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(tickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Timeout waiting for condition: %s", message)
		case <-ticker.C:
			if condition() {
				return
			}
		}
	}
}
