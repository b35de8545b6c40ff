//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"selectview/internal/config"
	"selectview/internal/crash"
	"selectview/internal/imagesource"
	applog "selectview/internal/log"
	"selectview/internal/preset"
	"selectview/internal/recent"
	"selectview/internal/selection"
	"selectview/internal/telemetry"
	"selectview/internal/version"
)

// Run starts the Fyne-based desktop shell around a selection model and a
// selectable image view.
func Run(imageRef string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	defer crash.Recover()

	cfg, token, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
	}
	tcfg := telemetry.FromEnv()
	if cfg.General.TelemetryOptIn {
		tcfg.OptIn = true
	}
	if token != "" {
		tcfg.Token = token
	}
	telemetry.NewDefault(tcfg)
	telemetry.Event("ui_started", nil)

	fyneApp := app.NewWithID("selectview")
	w := fyneApp.NewWindow("SelectView")
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	// Seed the model from config, letting saved preferences win for the two
	// toggles the user flips from the UI.
	model := selection.New()
	if cfg.Selection.DefaultRatio > 0 {
		if err := model.SetFixedSelectionRatio(cfg.Selection.DefaultRatio); err != nil {
			l.Warn("default ratio rejected", slog.Any("err", err))
		}
	}
	model.SetSelectionRatioFixed(prefs.BoolWithFallback("selection.ratio_fixed", cfg.Selection.RatioFixed))
	model.SetPreserveImageRatio(prefs.BoolWithFallback("view.preserve_image_ratio", cfg.Selection.PreserveImageRatio))

	status := widget.NewLabel("Ready")
	view := NewSelectableImageView(model)
	view.SetHitTolerance(cfg.Selection.HandleTolerance)

	rs, err := recent.Open(cfg.Recent.MaxEntries)
	if err != nil {
		l.Warn("recents store unavailable", slog.Any("err", err))
		rs = nil
	}

	presets, err := preset.Load()
	if err != nil {
		l.Warn("preset load failed, using defaults", slog.Any("err", err))
		presets = preset.Defaults()
	}

	// Top bar controls
	fixCheck := widget.NewCheck("Fixed ratio", func(on bool) {
		model.SetSelectionRatioFixed(on)
	})
	fixCheck.SetChecked(model.SelectionRatioFixed())

	preserveCheck := widget.NewCheck("Preserve image ratio", func(on bool) {
		model.SetPreserveImageRatio(on)
	})
	preserveCheck.SetChecked(model.PreserveImageRatio())

	ratioNames := make([]string, 0, len(presets))
	for _, p := range presets {
		ratioNames = append(ratioNames, p.Name)
	}
	ratioSelect := widget.NewSelect(ratioNames, nil)
	ratioSelect.OnChanged = func(name string) {
		p, ok := preset.ByName(presets, name)
		if !ok {
			return
		}
		if err := model.SetFixedSelectionRatio(p.Ratio()); err != nil {
			l.Error("preset ratio rejected", slog.String("name", p.Name), slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		telemetry.Event("ratio_preset_selected", map[string]any{"name": p.Name})
	}
	syncRatioSelect := func() {
		r := model.FixedSelectionRatio()
		for _, p := range presets {
			if math.Abs(p.Ratio()-r) < 1e-9 {
				if ratioSelect.Selected != p.Name {
					ratioSelect.SetSelected(p.Name)
				}
				return
			}
		}
		ratioSelect.ClearSelected()
	}
	syncRatioSelect()

	activeCheck := widget.NewCheck("Active", func(on bool) {
		model.SetSelectionActive(on)
	})
	activeCheck.Disable()

	manageCheck := widget.NewCheck("Manage activity", func(on bool) {
		model.SetSelectionActivityExplicitlyManaged(on)
		if on {
			activeCheck.Enable()
		} else {
			activeCheck.Disable()
		}
	})

	clearBtn := widget.NewButton("Clear", func() {
		model.ClearSelection()
	})

	updateStatus := func() {
		var b strings.Builder
		if img, ok := model.Image(); ok {
			fmt.Fprintf(&b, "Image %.0f×%.0f", img.W, img.H)
		} else {
			b.WriteString("No image")
		}
		if sel, ok := model.Selection(); ok {
			fmt.Fprintf(&b, " — selection (%.1f, %.1f) %.1f×%.1f", sel.X, sel.Y, sel.W, sel.H)
			if !model.SelectionValid() {
				b.WriteString(" [invalid]")
			} else if model.SelectionActive() {
				b.WriteString(" [active]")
			}
			if model.SelectionChanging() {
				b.WriteString(" [changing]")
			}
		}
		if model.SelectionRatioFixed() {
			fmt.Fprintf(&b, " — ratio %.3f", model.FixedSelectionRatio())
		}
		status.SetText(b.String())
	}
	for _, f := range []selection.Field{
		selection.FieldImage,
		selection.FieldSelection,
		selection.FieldSelectionValid,
		selection.FieldSelectionActive,
		selection.FieldSelectionChanging,
		selection.FieldSelectionRatioFixed,
		selection.FieldFixedSelectionRatio,
	} {
		model.Watch(f, func(selection.Change) { updateStatus() })
	}

	// Keep the controls in step with the model. Setting an unchanged value on
	// the model is a no-op, so these do not loop back.
	model.Watch(selection.FieldSelectionRatioFixed, func(selection.Change) {
		fixCheck.SetChecked(model.SelectionRatioFixed())
	})
	model.Watch(selection.FieldPreserveImageRatio, func(selection.Change) {
		preserveCheck.SetChecked(model.PreserveImageRatio())
	})
	model.Watch(selection.FieldSelectionActive, func(selection.Change) {
		activeCheck.SetChecked(model.SelectionActive())
	})
	model.Watch(selection.FieldFixedSelectionRatio, func(selection.Change) {
		syncRatioSelect()
	})

	var refreshRecentMenu func()

	openRef := func(ref string) {
		l.Info("open image", slog.String("ref", ref))
		status.SetText("Loading image…")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			img, info, err := imagesource.Load(ctx, ref)
			if err == nil {
				if rs != nil {
					if terr := rs.Touch(ctx, info.Ref, info.Width, info.Height); terr != nil {
						l.Warn("recents update failed", slog.Any("err", terr))
					}
				}
				telemetry.Event("image_opened", map[string]any{
					"format": info.Format,
					"width":  info.Width,
					"height": info.Height,
					"remote": imagesource.IsRemote(info.Ref),
				})
			}
			fyne.Do(func() {
				if err != nil {
					l.Error("open image failed", slog.String("ref", ref), slog.Any("err", err))
					dialog.ShowError(err, w)
					status.SetText("Open failed.")
					return
				}
				view.SetImage(img)
				w.SetTitle(fmt.Sprintf("SelectView — %s", filepath.Base(info.Ref)))
				status.SetText(fmt.Sprintf("Opened %s (%s, %d×%d)", info.Ref, info.Format, info.Width, info.Height))
				if refreshRecentMenu != nil {
					refreshRecentMenu()
				}
			})
		}()
	}

	openFileItem := fyne.NewMenuItem("Open…", func() {
		l.Info("menu: open image")
		fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				l.Error("open dialog error", slog.Any("err", err))
				return
			}
			if ur == nil {
				l.Info("open canceled")
				return
			}
			path := ur.URI().Path()
			_ = ur.Close()
			openRef(path)
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}))
		fd.Show()
	})

	openURLItem := fyne.NewMenuItem("Open URL…", func() {
		l.Info("menu: open url")
		urlEntry := widget.NewEntry()
		urlEntry.SetPlaceHolder("https://example.com/image.png")
		form := dialog.NewForm("Open Image URL", "Open", "Cancel", []*widget.FormItem{
			widget.NewFormItem("URL", urlEntry),
		}, func(ok bool) {
			if !ok {
				return
			}
			ref := strings.TrimSpace(urlEntry.Text)
			if ref == "" {
				return
			}
			if !imagesource.IsRemote(ref) {
				dialog.ShowError(fmt.Errorf("not an http(s) URL: %s", ref), w)
				return
			}
			openRef(ref)
		}, w)
		form.Show()
	})

	captureItem := fyne.NewMenuItem("Capture Screen", func() {
		l.Info("menu: capture screen")
		status.SetText("Capturing screen…")
		go func() {
			img, err := imagesource.CaptureScreen()
			if err == nil {
				b := img.Bounds()
				telemetry.Event("screen_captured", map[string]any{"width": b.Dx(), "height": b.Dy()})
			}
			fyne.Do(func() {
				if err != nil {
					l.Error("screen capture failed", slog.Any("err", err))
					dialog.ShowError(err, w)
					status.SetText("Capture failed.")
					return
				}
				view.SetImage(img)
				w.SetTitle("SelectView — screen capture")
				status.SetText("Captured screen.")
			})
		}()
	})

	closeImageItem := fyne.NewMenuItem("Close Image", func() {
		l.Info("menu: close image")
		view.ClearImage()
		w.SetTitle("SelectView")
		status.SetText("Image closed.")
	})

	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = fyne.NewMenu("Open Recent")
	refreshRecentMenu = func() {
		var items []*fyne.MenuItem
		if rs != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			entries, err := rs.List(ctx)
			cancel()
			if err != nil {
				l.Warn("list recents failed", slog.Any("err", err))
			}
			for _, e := range entries {
				ref := e.Ref
				label := fmt.Sprintf("%s (%d×%d)", filepath.Base(ref), e.Width, e.Height)
				items = append(items, fyne.NewMenuItem(label, func() { openRef(ref) }))
			}
			if len(items) > 0 {
				clearItem := fyne.NewMenuItem("Clear Recents", func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := rs.Clear(ctx); err != nil {
						l.Warn("clear recents failed", slog.Any("err", err))
					}
					refreshRecentMenu()
				})
				items = append(items, fyne.NewMenuItemSeparator(), clearItem)
			}
		}
		if len(items) == 0 {
			none := fyne.NewMenuItem("(none)", nil)
			none.Disabled = true
			items = []*fyne.MenuItem{none}
		}
		recentItem.ChildMenu.Items = items
		if w.MainMenu() != nil {
			w.MainMenu().Refresh()
		}
	}

	customRatioItem := fyne.NewMenuItem("Custom Ratio…", func() {
		l.Info("menu: custom ratio")
		entry := widget.NewEntry()
		entry.SetPlaceHolder("16:9 or 1.778")
		form := dialog.NewForm("Custom Ratio", "Apply", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Ratio", entry),
		}, func(ok bool) {
			if !ok {
				return
			}
			r, err := parseRatio(entry.Text)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if err := model.SetFixedSelectionRatio(r); err != nil {
				dialog.ShowError(err, w)
				return
			}
			model.SetSelectionRatioFixed(true)
		}, w)
		form.Show()
	})

	clearSelItem := fyne.NewMenuItem("Clear Selection", func() {
		model.ClearSelection()
	})

	// Keyboard shortcuts
	openFileItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	closeImageItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: fyne.KeyModifierControl}

	fileMenu := fyne.NewMenu("File", openFileItem, openURLItem, captureItem, recentItem, fyne.NewMenuItemSeparator(), closeImageItem)
	selectionMenu := fyne.NewMenu("Selection", customRatioItem, clearSelItem)

	aboutItem := fyne.NewMenuItem("About SelectView", func() {
		l.Info("menu: about")
		exe, _ := os.Executable()
		cwd, _ := os.Getwd()
		info := fmt.Sprintf("SelectView\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nWorking Dir: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, cwd)
		dialog.ShowInformation("Installation Environment", info, w)
	})
	copyrightItem := fyne.NewMenuItem("Copyright…", func() {
		l.Info("menu: copyright")
		currentYear := time.Now().Year()
		msg := fmt.Sprintf("SelectView\nCopyright © 2025-%d The SelectView Authors\n\nLicensed under the Apache License, Version 2.0.\nSee the LICENSE file for details.", currentYear)
		dialog.ShowInformation("Copyright", msg, w)
	})
	aboutMenu := fyne.NewMenu("About", aboutItem, copyrightItem)

	w.SetMainMenu(fyne.NewMainMenu(fileMenu, selectionMenu, aboutMenu))
	refreshRecentMenu()

	topBar := container.NewHBox(
		widget.NewLabel("Ratio:"), ratioSelect, fixCheck, preserveCheck,
		widget.NewSeparator(), manageCheck, activeCheck, clearBtn,
	)
	w.SetContent(container.NewBorder(topBar, status, nil, nil, view))

	// Persist preferences on close
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		prefs.SetBool("selection.ratio_fixed", model.SelectionRatioFixed())
		prefs.SetBool("view.preserve_image_ratio", model.PreserveImageRatio())
		w.Close()
	})

	if imageRef != "" {
		openRef(imageRef)
	}

	w.ShowAndRun()
	if rs != nil {
		_ = rs.Close()
	}
	l.Info("UI stopped")
	return nil
}

// parseRatio accepts "W:H" and plain decimal forms.
func parseRatio(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if pre, post, ok := strings.Cut(s, ":"); ok {
		wv, err := strconv.ParseFloat(strings.TrimSpace(pre), 64)
		if err != nil {
			return 0, fmt.Errorf("parse ratio %q: %w", s, err)
		}
		hv, err := strconv.ParseFloat(strings.TrimSpace(post), 64)
		if err != nil {
			return 0, fmt.Errorf("parse ratio %q: %w", s, err)
		}
		if hv == 0 {
			return 0, fmt.Errorf("parse ratio %q: zero height", s)
		}
		return wv / hv, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ratio %q: %w", s, err)
	}
	return v, nil
}
