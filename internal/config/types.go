// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/delivery"
)

// Config is the complete votekeeper configuration.
type Config struct {
	Database struct {
		// URL is a SQLAlchemy style database URL, e.g. sqlite:///./votes.db.
		URL string `mapstructure:"url" yaml:"url"`
	} `mapstructure:"database" yaml:"database"`
	Paths struct {
		BackupDir  string `mapstructure:"backup_dir" yaml:"backup_dir"`
		UploadsDir string `mapstructure:"uploads_dir" yaml:"uploads_dir"`
	} `mapstructure:"paths" yaml:"paths"`
	Worker struct {
		// Interval and GracePeriod are in seconds.
		Interval    int `mapstructure:"interval" yaml:"interval"`
		GracePeriod int `mapstructure:"grace_period" yaml:"grace_period"`
	} `mapstructure:"worker" yaml:"worker"`
	Tools struct {
		Timeout int `mapstructure:"timeout" yaml:"timeout"`
	} `mapstructure:"tools" yaml:"tools"`
	Telegram struct {
		BotToken string `mapstructure:"bot_token" yaml:"bot_token"`
		ChatID   string `mapstructure:"chat_id" yaml:"chat_id"`
		Timeout  int    `mapstructure:"timeout" yaml:"timeout"`
	} `mapstructure:"telegram" yaml:"telegram"`
	Storage struct {
		R2 struct {
			Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
			AccountID       string `mapstructure:"account_id" yaml:"account_id"`
			AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
			SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
			Bucket          string `mapstructure:"bucket" yaml:"bucket"`
			Prefix          string `mapstructure:"prefix" yaml:"prefix"`
			UseSSL          bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
		} `mapstructure:"r2" yaml:"r2"`
	} `mapstructure:"storage" yaml:"storage"`
	Remote struct {
		Host string `mapstructure:"host" yaml:"host"`
		User string `mapstructure:"user" yaml:"user"`
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"remote" yaml:"remote"`
	Language string `mapstructure:"language" yaml:"language"`
}

// Defaults returns the default value of every key.
func Defaults() map[string]any {
	return map[string]any{
		"database.url":                 "sqlite:///./votes.db",
		"paths.backup_dir":             "./backups",
		"paths.uploads_dir":            "./uploads",
		"worker.interval":              3600,
		"worker.grace_period":          30,
		"tools.timeout":                300,
		"telegram.bot_token":           "",
		"telegram.chat_id":             "",
		"telegram.timeout":             120,
		"storage.r2.endpoint":          "",
		"storage.r2.account_id":        "",
		"storage.r2.access_key_id":     "",
		"storage.r2.secret_access_key": "",
		"storage.r2.bucket":            "",
		"storage.r2.prefix":            "backups",
		"storage.r2.use_ssl":           true,
		"remote.host":                  "",
		"remote.user":                  "",
		"remote.path":                  "~/backups/",
		"language":                     "en",
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// WorkerInterval is the pause between delivery cycles.
func (c *Config) WorkerInterval() time.Duration { return seconds(c.Worker.Interval) }

// WorkerGracePeriod is the wait before the first delivery cycle.
func (c *Config) WorkerGracePeriod() time.Duration { return seconds(c.Worker.GracePeriod) }

// ToolTimeout bounds one dump or load tool run.
func (c *Config) ToolTimeout() time.Duration { return seconds(c.Tools.Timeout) }

// TelegramTimeout bounds one archive upload.
func (c *Config) TelegramTimeout() time.Duration { return seconds(c.Telegram.Timeout) }

// ObjectStore returns the bucket settings for the object store sink.
func (c *Config) ObjectStore() delivery.ObjectStoreConfig {
	r2 := c.Storage.R2
	return delivery.ObjectStoreConfig{
		Endpoint:        r2.Endpoint,
		AccountID:       r2.AccountID,
		AccessKeyID:     r2.AccessKeyID,
		SecretAccessKey: r2.SecretAccessKey,
		Bucket:          r2.Bucket,
		Prefix:          r2.Prefix,
		UseSSL:          r2.UseSSL,
	}
}

// Validate checks the values every command depends on.
func (c *Config) Validate() error {
	var errs []error
	if _, _, err := db.ParseURL(c.Database.URL); err != nil {
		errs = append(errs, fmt.Errorf("database.url: %w", err))
	}
	if c.Paths.BackupDir == "" {
		errs = append(errs, errors.New("paths.backup_dir must not be empty"))
	}
	if c.Worker.Interval <= 0 {
		errs = append(errs, fmt.Errorf("worker.interval must be positive, got %d", c.Worker.Interval))
	}
	if c.Worker.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("worker.grace_period must not be negative, got %d", c.Worker.GracePeriod))
	}
	if c.Tools.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("tools.timeout must be positive, got %d", c.Tools.Timeout))
	}
	return errors.Join(errs...)
}
