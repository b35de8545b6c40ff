/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagesource resolves image references (local paths, http/https
// URLs, screen captures) into decoded images and their dimensions. Callers
// that only need bounds use Probe and never retain pixel data.
package imagesource

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/vova616/screenshot"

	applog "selectview/internal/log"
)

// Info describes a decodable image without its pixels.
type Info struct {
	Ref    string
	Format string
	Width  int
	Height int
}

// maxFetchBytes caps remote image downloads.
const maxFetchBytes = 64 << 20

var httpClient = &http.Client{Timeout: 30 * time.Second}

// IsRemote reports whether ref is an http(s) URL rather than a local path.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Load decodes the image behind ref. ref is either a local file path or an
// http(s) URL.
func Load(ctx context.Context, ref string) (image.Image, Info, error) {
	rc, err := open(ctx, ref)
	if err != nil {
		return nil, Info{}, err
	}
	defer func() { _ = rc.Close() }()

	img, format, err := image.Decode(rc)
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode %s: %w", ref, err)
	}
	b := img.Bounds()
	info := Info{Ref: ref, Format: format, Width: b.Dx(), Height: b.Dy()}
	applog.WithComponent("imagesource").Debug("image decoded",
		slog.String("ref", ref),
		slog.String("format", format),
		slog.Int("w", info.Width),
		slog.Int("h", info.Height))
	return img, info, nil
}

// Probe reads just enough of ref to report its format and dimensions.
func Probe(ctx context.Context, ref string) (Info, error) {
	rc, err := open(ctx, ref)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = rc.Close() }()

	cfg, format, err := image.DecodeConfig(rc)
	if err != nil {
		return Info{}, fmt.Errorf("decode config %s: %w", ref, err)
	}
	return Info{Ref: ref, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// CaptureScreen grabs the active monitor so a region of the desktop can be
// selected like any other image.
func CaptureScreen() (*image.RGBA, error) {
	img, err := screenshot.CaptureScreen()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	return img, nil
}

func open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if IsRemote(ref) {
		return fetch(ctx, ref)
	}
	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	return f, nil
}

func fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", ref, resp.Status)
	}
	return &limitedBody{r: io.LimitReader(resp.Body, maxFetchBytes), c: resp.Body}, nil
}

// limitedBody keeps the download cap while preserving Close on the
// underlying response body.
type limitedBody struct {
	r io.Reader
	c io.Closer
}

func (b *limitedBody) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *limitedBody) Close() error               { return b.c.Close() }
