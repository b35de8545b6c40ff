/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preset manages the named width:height aspect ratios offered by the
// ratio picker. Presets live in a human-readable JSON document under the user
// config dir; a missing file falls back to the built-in set.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"selectview/internal/config"
)

// FileName is the presets document inside the user config dir.
const FileName = "presets.json"

// DocumentVersion is the current on-disk document version.
const DocumentVersion = 1

// ErrInvalidPreset signals a preset with an empty name or a non-positive
// width or height.
var ErrInvalidPreset = errors.New("invalid ratio preset")

// Preset names a width:height aspect ratio.
type Preset struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Ratio returns the preset as a single width/height factor.
func (p Preset) Ratio() float64 { return p.Width / p.Height }

// Document is the on-disk shape of the presets file.
type Document struct {
	Version int      `json:"version"`
	Presets []Preset `json:"presets"`
}

// Defaults returns the built-in preset set used when no user document exists.
func Defaults() []Preset {
	return []Preset{
		{Name: "Square 1:1", Width: 1, Height: 1},
		{Name: "Photo 3:2", Width: 3, Height: 2},
		{Name: "Classic 4:3", Width: 4, Height: 3},
		{Name: "Widescreen 16:9", Width: 16, Height: 9},
		{Name: "Portrait 2:3", Width: 2, Height: 3},
		{Name: "Golden", Width: 1.618, Height: 1},
	}
}

// Validate checks a single preset against the same strictly-positive rule the
// selection model applies to ratios.
func Validate(p Preset) error {
	if p.Name == "" {
		return fmt.Errorf("preset without name: %w", ErrInvalidPreset)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("preset %q has non-positive extent %gx%g: %w", p.Name, p.Width, p.Height, ErrInvalidPreset)
	}
	return nil
}

func validateAll(presets []Preset) error {
	for _, p := range presets {
		if err := Validate(p); err != nil {
			return err
		}
	}
	return nil
}

// ByName returns the preset with the given name, if present.
func ByName(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Path resolves the presets document location under the user config dir.
func Path() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the user presets document. A missing file yields the built-in
// defaults; a present but invalid file is an error so a broken document is
// never silently replaced.
func Load() ([]Preset, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("presets document version %d is newer than supported %d", doc.Version, DocumentVersion)
	}
	if err := validateAll(doc.Presets); err != nil {
		return nil, err
	}
	return doc.Presets, nil
}

// Save validates and writes the presets document transactionally: temp file
// in the target directory, then rename over the destination.
func Save(presets []Preset) error {
	if err := validateAll(presets); err != nil {
		return err
	}
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	doc := Document{Version: DocumentVersion, Presets: presets}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal presets: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", FileName, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp presets: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace presets: %w", err)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}
