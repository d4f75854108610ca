// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads votekeeper settings from votekeeper.yaml, a .env file,
// environment variables and command flags, in increasing precedence.
package config // import "github.com/one2talk/votekeeper/internal/config"

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every votekeeper environment variable.
const EnvPrefix = "VOTEKEEPER"

// legacyEnv maps config keys to the bare variable names the voting
// application's deployment already sets.
var legacyEnv = map[string]string{
	"database.url":                 "DATABASE_URL",
	"worker.interval":              "BACKUP_INTERVAL",
	"telegram.bot_token":           "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":             "TELEGRAM_CHAT_ID",
	"storage.r2.account_id":        "R2_ACCOUNT_ID",
	"storage.r2.access_key_id":     "R2_ACCESS_KEY_ID",
	"storage.r2.secret_access_key": "R2_SECRET_ACCESS_KEY",
	"storage.r2.bucket":            "R2_BUCKET_NAME",
	"storage.r2.endpoint":          "R2_ENDPOINT",
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Votekeeper")
		default: // Linux, macOS, etc.
			configDir = "/etc/votekeeper"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "votekeeper")
	}

	return filepath.Join(configDir, "votekeeper.yaml"), nil
}

// LoadConfig builds a T from defaults, the first votekeeper.yaml found
// (explicit path, user dir, system dir, working dir), .votekeeper.yaml in the
// working dir, the environment and cmd's flags. When no config file exists
// the populated value is returned together with a viper.ConfigFileNotFoundError
// so callers can persist defaults.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additionalConfigFilePath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("votekeeper")
	v.SetConfigType("yaml")
	if additionalConfigFilePath != nil && *additionalConfigFilePath != "" {
		v.SetConfigFile(*additionalConfigFilePath)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	var notFound error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
		notFound = err
	}

	mergeLocalConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, bare := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, bare); err != nil {
			return c, err
		}
	}

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, notFound
}

// mergeLocalConfig merges .votekeeper.yaml from the working directory when
// present. A malformed file is ignored.
func mergeLocalConfig(v *viper.Viper) {
	localConfigFile := ".votekeeper.yaml"
	if _, err := os.Stat(localConfigFile); err == nil {
		v.SetConfigFile(localConfigFile)
		_ = v.MergeInConfig()
		v.SetConfigFile("")
	}
}

// LoadDotEnv exports the variables of a .env file that are not already set,
// like python-dotenv does. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for _, key := range ev.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, ev.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// WriteConfigFile writes c as YAML to the user or system config path.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}
	return WriteConfigFileTo(c, path)
}

// WriteConfigFileTo writes c as YAML to path with owner-only permissions, as
// the file may contain delivery credentials.
func WriteConfigFileTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	return os.WriteFile(path, data, 0600)
}
