package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedLangs = map[string]bool{"uz": true, "en": true, "ru": true}

func (c *Config) validate() error {
	if err := c.validateRequiredFields(); err != nil {
		return err
	}
	if err := c.validateJobSettings(); err != nil {
		return err
	}
	if err := c.validateCleanupSettings(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRequiredFields() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if c.ScratchDir == "" {
		return errors.New("SCRATCH_DIR must not be empty")
	}
	if c.AdminID < 0 {
		return fmt.Errorf("ADMIN_ID must be a user id, got %d", c.AdminID)
	}

	// LANG often carries a POSIX locale such as en_US.UTF-8.
	c.Lang = strings.ToLower(c.Lang)
	if i := strings.IndexAny(c.Lang, "_.-"); i > 0 {
		c.Lang = c.Lang[:i]
	}
	if !supportedLangs[c.Lang] {
		c.Lang = "uz"
	}
	return nil
}

func (c *Config) validateJobSettings() error {
	if c.Jobs.MaxConcurrent <= 0 {
		return errors.New("MAX_CONCURRENT_JOBS must be greater than 0")
	}
	if c.Jobs.ExtractorTimeout <= 0 {
		c.Jobs.ExtractorTimeout = DefaultExtractorTimeout
	}
	if c.Jobs.MinViableSize < 0 {
		return errors.New("MIN_VIABLE_SIZE must not be negative")
	}
	if c.Jobs.DocumentThreshold <= 0 {
		return errors.New("DOCUMENT_THRESHOLD must be greater than 0")
	}
	if c.Jobs.CaptionLimit < 4 {
		return fmt.Errorf("CAPTION_LIMIT must be at least 4, got %d", c.Jobs.CaptionLimit)
	}
	if c.Tools.AudioBitrate == "" {
		c.Tools.AudioBitrate = DefaultAudioBitrate
	}
	return nil
}

func (c *Config) validateCleanupSettings() error {
	if c.Cleanup.OrphanAge <= c.Jobs.ExtractorTimeout {
		return fmt.Errorf("ORPHAN_AGE (%s) must exceed EXTRACTOR_TIMEOUT (%s)",
			c.Cleanup.OrphanAge, c.Jobs.ExtractorTimeout)
	}
	return nil
}
