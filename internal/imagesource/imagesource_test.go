package imagesource

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, "sample.png")
	if err := os.WriteFile(path, pngBytes(t, w, h), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestLoadLocalFile(t *testing.T) {
	path := writePNG(t, t.TempDir(), 200, 100)

	img, info, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if img == nil {
		t.Fatalf("expected decoded image")
	}
	if info.Format != "png" {
		t.Fatalf("expected format png, got %q", info.Format)
	}
	if info.Width != 200 || info.Height != 100 {
		t.Fatalf("expected 200x100, got %dx%d", info.Width, info.Height)
	}
}

func TestProbeReportsDimensions(t *testing.T) {
	path := writePNG(t, t.TempDir(), 64, 48)

	info, err := Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if info.Width != 64 || info.Height != 48 {
		t.Fatalf("expected 64x48, got %dx%d", info.Width, info.Height)
	}
	if info.Ref != path {
		t.Fatalf("expected ref %q, got %q", path, info.Ref)
	}
}

func TestLoadFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes(t, 32, 16))
	}))
	defer srv.Close()

	if !IsRemote(srv.URL) {
		t.Fatalf("expected %q to be remote", srv.URL)
	}
	_, info, err := Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if info.Width != 32 || info.Height != 16 {
		t.Fatalf("expected 32x16, got %dx%d", info.Width, info.Height)
	}
}

func TestLoadRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, _, err := Load(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error for 404 response")
	} else if !strings.Contains(err.Error(), "status") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadUndecodableData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	if _, _, err := Load(context.Background(), path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestIsRemote(t *testing.T) {
	if IsRemote("/tmp/x.png") || IsRemote("C:\\img\\x.png") {
		t.Fatalf("local paths must not be remote")
	}
	if !IsRemote("https://example.com/x.png") {
		t.Fatalf("https URL must be remote")
	}
}
