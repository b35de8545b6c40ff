/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are treated as read-only overrides
// at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible
// way. Unknown fields are ignored on unmarshal, so older builds tolerate
// newer files.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark" (informational for now)
}

// SelectionConfig seeds the selection model and widget on startup.
type SelectionConfig struct {
	DefaultRatio       float64 `yaml:"default_ratio"` // width:height quotient, must be > 0
	RatioFixed         bool    `yaml:"ratio_fixed"`
	PreserveImageRatio bool    `yaml:"preserve_image_ratio"`
	HandleTolerance    float64 `yaml:"handle_tolerance"` // border grab distance in screen px
}

type RecentConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Selection     SelectionConfig `yaml:"selection"`
	Recent        RecentConfig    `yaml:"recent"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Selection:     SelectionConfig{DefaultRatio: 1.0, RatioFixed: false, PreserveImageRatio: true, HandleTolerance: 8},
		Recent:        RecentConfig{MaxEntries: 20},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn     = "SV_TELEMETRY_OPT_IN"
	EnvDefaultRatio       = "SV_DEFAULT_RATIO"
	EnvRatioFixed         = "SV_RATIO_FIXED"
	EnvPreserveImageRatio = "SV_PRESERVE_IMAGE_RATIO"
	EnvRecentMax          = "SV_RECENT_MAX"
	// Logging envs, shared with the log package.
	EnvLogLevel  = "SV_LOG_LEVEL"
	EnvLogFormat = "SV_LOG_FORMAT"
	EnvLogSource = "SV_LOG_SOURCE"
	EnvLogFile   = "SV_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "SelectView"
	keyringToken   = "telemetry_token"
)

// tokenStore abstracts the keyring, so tests can stub it.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SelectView")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SelectView")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "selectview")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Dir returns the per-user application directory holding the config file,
// the recents database and crash reports.
func Dir() (string, error) {
	p, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}

// Load reads the user config file (if present), applies defaults, and
// merges environment overrides. The telemetry token is loaded from the OS
// keyring and returned separately; it never touches the YAML file.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.Selection.RatioFixed = src.Selection.RatioFixed
	dst.Selection.PreserveImageRatio = src.Selection.PreserveImageRatio
	if src.Selection.DefaultRatio > 0 {
		dst.Selection.DefaultRatio = src.Selection.DefaultRatio
	}
	if src.Selection.HandleTolerance > 0 {
		dst.Selection.HandleTolerance = src.Selection.HandleTolerance
	}
	if src.Recent.MaxEntries > 0 {
		dst.Recent.MaxEntries = src.Recent.MaxEntries
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultRatio)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Selection.DefaultRatio = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRatioFixed)); v != "" {
		cfg.Selection.RatioFixed = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreserveImageRatio)); v != "" {
		cfg.Selection.PreserveImageRatio = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvRecentMax)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Recent.MaxEntries = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor returns the env var name if the field is overridden by
// environment variables. The UI uses it to flag settings the config file
// cannot change right now.
func EnvOverrideFor(key string) (string, bool) {
	var name string
	switch key {
	case "general.telemetry_opt_in":
		name = EnvTelemetryOptIn
	case "selection.default_ratio":
		name = EnvDefaultRatio
	case "selection.ratio_fixed":
		name = EnvRatioFixed
	case "selection.preserve_image_ratio":
		name = EnvPreserveImageRatio
	case "recent.max_entries":
		name = EnvRecentMax
	case "logging.level":
		name = EnvLogLevel
	case "logging.format":
		name = EnvLogFormat
	case "logging.source":
		name = EnvLogSource
	case "logging.file":
		name = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
