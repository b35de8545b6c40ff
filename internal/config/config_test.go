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
	"os"
	"testing"
)

// fakeStore keeps tokens in memory so tests never touch the OS keyring.
type fakeStore struct{ m map[string]string }

func (f *fakeStore) Get(service, key string) (string, error) { return f.m[service+"/"+key], nil }
func (f *fakeStore) Set(service, key, value string) error {
	f.m[service+"/"+key] = value
	return nil
}
func (f *fakeStore) Delete(service, key string) error {
	delete(f.m, service+"/"+key)
	return nil
}

func stubTokenStore(t *testing.T) *fakeStore {
	t.Helper()
	old := tokenStore
	fs := &fakeStore{m: map[string]string{}}
	tokenStore = fs
	t.Cleanup(func() { tokenStore = old })
	return fs
}

func TestDefaultsSane(t *testing.T) {
	cfg := Defaults()
	if cfg.Selection.DefaultRatio != 1.0 {
		t.Fatalf("default ratio must be 1.0, got %g", cfg.Selection.DefaultRatio)
	}
	if cfg.Selection.HandleTolerance <= 0 || cfg.Recent.MaxEntries <= 0 {
		t.Fatalf("defaults must be positive: %#v", cfg)
	}
	if cfg.Selection.RatioFixed || cfg.General.TelemetryOptIn {
		t.Fatalf("opt-in flags must default to off")
	}
	if !cfg.Selection.PreserveImageRatio {
		t.Fatalf("image ratio preservation defaults to on")
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	stubTokenStore(t)
	old := os.Getenv(EnvTelemetryOptIn)
	_ = os.Setenv(EnvTelemetryOptIn, "true")
	t.Cleanup(func() { _ = os.Setenv(EnvTelemetryOptIn, old) })
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestEnvOverridesSelection(t *testing.T) {
	stubTokenStore(t)
	oldRatio := os.Getenv(EnvDefaultRatio)
	oldFixed := os.Getenv(EnvRatioFixed)
	_ = os.Setenv(EnvDefaultRatio, "1.5")
	_ = os.Setenv(EnvRatioFixed, "yes")
	t.Cleanup(func() {
		_ = os.Setenv(EnvDefaultRatio, oldRatio)
		_ = os.Setenv(EnvRatioFixed, oldFixed)
	})
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Selection.DefaultRatio != 1.5 || !cfg.Selection.RatioFixed {
		t.Fatalf("selection env overrides not applied: %#v", cfg.Selection)
	}
}

func TestEnvOverrideRejectsBadRatio(t *testing.T) {
	stubTokenStore(t)
	old := os.Getenv(EnvDefaultRatio)
	_ = os.Setenv(EnvDefaultRatio, "-3")
	t.Cleanup(func() { _ = os.Setenv(EnvDefaultRatio, old) })
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Selection.DefaultRatio != Defaults().Selection.DefaultRatio {
		t.Fatalf("non-positive env ratio must be ignored, got %g", cfg.Selection.DefaultRatio)
	}
}

func TestMergeIncludesSelection(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Selection.DefaultRatio = 16.0 / 9.0
	src.Selection.RatioFixed = true
	src.Selection.HandleTolerance = 12
	mergeInto(&dst, &src)
	if dst.Selection.DefaultRatio != 16.0/9.0 || !dst.Selection.RatioFixed || dst.Selection.HandleTolerance != 12 {
		t.Fatalf("selection fields not merged correctly: %#v", dst.Selection)
	}
	// Non-positive file values keep the defaults.
	src.Selection.DefaultRatio = 0
	dst = Defaults()
	mergeInto(&dst, &src)
	if dst.Selection.DefaultRatio != 1.0 {
		t.Fatalf("zero file ratio must keep default, got %g", dst.Selection.DefaultRatio)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/sv.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/sv.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	stubTokenStore(t)
	oldLevel := os.Getenv(EnvLogLevel)
	oldFmt := os.Getenv(EnvLogFormat)
	oldSrc := os.Getenv(EnvLogSource)
	oldFile := os.Getenv(EnvLogFile)
	_ = os.Setenv(EnvLogLevel, "error")
	_ = os.Setenv(EnvLogFormat, "json")
	_ = os.Setenv(EnvLogSource, "1")
	_ = os.Setenv(EnvLogFile, "X:/sv.log")
	t.Cleanup(func() {
		_ = os.Setenv(EnvLogLevel, oldLevel)
		_ = os.Setenv(EnvLogFormat, oldFmt)
		_ = os.Setenv(EnvLogSource, oldSrc)
		_ = os.Setenv(EnvLogFile, oldFile)
	})
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/sv.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestTokenRoundTripViaStore(t *testing.T) {
	fs := stubTokenStore(t)
	fs.m[keyringService+"/"+keyringToken] = "tok-123"
	_, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "tok-123" {
		t.Fatalf("token not loaded from store: %q", tok)
	}
}

func TestEnvOverrideFor(t *testing.T) {
	old := os.Getenv(EnvDefaultRatio)
	_ = os.Setenv(EnvDefaultRatio, "2")
	t.Cleanup(func() { _ = os.Setenv(EnvDefaultRatio, old) })
	if name, ok := EnvOverrideFor("selection.default_ratio"); !ok || name != EnvDefaultRatio {
		t.Fatalf("expected override report, got %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("selection.unknown"); ok {
		t.Fatalf("unknown key must not report an override")
	}
}
