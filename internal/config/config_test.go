package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		expectError   bool
		errorContains string
	}{
		{
			name:        "Valid configuration",
			env:         map[string]string{"BOT_TOKEN": "test-token"},
			expectError: false,
		},
		{
			name:          "Missing bot token",
			env:           map[string]string{},
			expectError:   true,
			errorContains: "BOT_TOKEN is required",
		},
		{
			name:          "Zero workers",
			env:           map[string]string{"BOT_TOKEN": "t", "MAX_CONCURRENT_JOBS": "0"},
			expectError:   true,
			errorContains: "MAX_CONCURRENT_JOBS",
		},
		{
			name: "Orphan age shorter than extractor timeout",
			env: map[string]string{
				"BOT_TOKEN":         "t",
				"EXTRACTOR_TIMEOUT": "10m",
				"ORPHAN_AGE":        "5m",
			},
			expectError:   true,
			errorContains: "ORPHAN_AGE",
		},
		{
			name:          "Caption limit too small",
			env:           map[string]string{"BOT_TOKEN": "t", "CAPTION_LIMIT": "2"},
			expectError:   true,
			errorContains: "CAPTION_LIMIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := NewConfig()
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got config %+v", cfg)
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errorContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BOT_TOKEN", "test-token")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}

	if cfg.Lang != "uz" {
		t.Errorf("Lang = %q, want uz", cfg.Lang)
	}
	if cfg.Jobs.MinViableSize != DefaultMinViableSize {
		t.Errorf("MinViableSize = %d", cfg.Jobs.MinViableSize)
	}
	if cfg.Jobs.DocumentThreshold != 50*1024*1024 {
		t.Errorf("DocumentThreshold = %d", cfg.Jobs.DocumentThreshold)
	}
	if cfg.Jobs.CaptionLimit != 1000 {
		t.Errorf("CaptionLimit = %d", cfg.Jobs.CaptionLimit)
	}
	if cfg.Tools.AudioBitrate != "192k" {
		t.Errorf("AudioBitrate = %q", cfg.Tools.AudioBitrate)
	}
	if cfg.IsAdmin(0) {
		t.Error("user 0 must never be admin")
	}
}

func TestLangNormalisation(t *testing.T) {
	tests := map[string]string{
		"en_US.UTF-8": "en",
		"RU":          "ru",
		"de":          "uz",
		"uz":          "uz",
	}
	for in, want := range tests {
		isolateEnv(t)
		t.Setenv("BOT_TOKEN", "t")
		t.Setenv("LANG", in)
		cfg, err := NewConfig()
		if err != nil {
			t.Fatalf("NewConfig(%q): %v", in, err)
		}
		if cfg.Lang != want {
			t.Errorf("LANG=%q gave %q, want %q", in, cfg.Lang, want)
		}
	}
}

func TestEnvFileIsLoaded(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, "bot.env")
	content := "BOT_TOKEN=from-file\nADMIN_ID=777\nSWEEP_INTERVAL=90s\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envPath)

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.BotToken != "from-file" || cfg.AdminID != 777 {
		t.Errorf("env file not applied: %+v", cfg)
	}
	if cfg.Cleanup.SweepInterval != 90*time.Second {
		t.Errorf("SweepInterval = %s", cfg.Cleanup.SweepInterval)
	}
	if !cfg.IsAdmin(777) {
		t.Error("expected 777 to be admin")
	}
}

// isolateEnv clears every variable NewConfig reads so the host environment
// cannot leak into a case. godotenv writes with os.Setenv, so those are
// unset again on cleanup.
func isolateEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"BOT_TOKEN", "ADMIN_ID", "LANG", "LOG_LEVEL", "SCRATCH_DIR", "DB_PATH", "PROXY",
		"MAX_CONCURRENT_JOBS", "EXTRACTOR_TIMEOUT", "MIN_VIABLE_SIZE", "DOCUMENT_THRESHOLD",
		"CAPTION_LIMIT", "YTDLP_BINARY", "INSTALOADER_BINARY", "FFMPEG_BINARY", "FFPROBE_BINARY",
		"AUDIO_BITRATE", "YTDLP_UPDATE_INTERVAL", "SWEEP_INTERVAL", "ORPHAN_AGE", "SESSION_TTL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}
