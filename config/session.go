package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/collabsched/core/session"
)

// SessionConfig controls how class times are interpreted.
type SessionConfig struct {
	// Timezone is attached to every parsed time and sent as createdTimezone.
	Timezone string `json:"timezone"`
	// PreferMonthFirst reads 02/03/2021 as February 3rd.
	PreferMonthFirst bool `json:"prefer_month_first"`
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{Timezone: session.DefaultTimezone}
}

func (c *SessionConfig) SetDefaults() {
	if c.Timezone == "" {
		c.Timezone = session.DefaultTimezone
	}
}

func (c SessionConfig) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("session.timezone: %w", err)
	}
	return nil
}

// UploadConfig controls the batch driver.
type UploadConfig struct {
	// DelayMS is the minimum gap between two create requests.
	DelayMS         int  `json:"delay_ms"`
	ContinueOnError bool `json:"continue_on_error"`
	// LedgerPath is the JSONL file recording every row; empty disables it.
	LedgerPath       string `json:"ledger_path"`
	LedgerMaxSizeMB  int    `json:"ledger_max_size_mb"`
	LedgerMaxBackups int    `json:"ledger_max_backups"`
}

func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		DelayMS:         1000,
		ContinueOnError: true,
		LedgerPath:      "uploads.jsonl",
	}
}

func (c *UploadConfig) SetDefaults() {
	if c.DelayMS < 0 {
		c.DelayMS = 0
	}
}

func (c UploadConfig) Validate() error {
	if c.LedgerMaxSizeMB < 0 || c.LedgerMaxBackups < 0 {
		return fmt.Errorf("upload: ledger rotation settings must not be negative")
	}
	return nil
}

// Delay returns DelayMS as a duration.
func (c UploadConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}
