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
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"selectview/internal/geometry"
	"selectview/internal/interaction"
	"selectview/internal/selection"
)

// SelectableImageView displays an image and lets the user draw, move and
// resize a rectangular selection on it. All selection state lives in the
// model; the view maps pointer events into image coordinates and renders
// whatever the model holds.
type SelectableImageView struct {
	widget.BaseWidget

	model *selection.Model
	ctrl  *interaction.Controller

	img image.Image

	// Hover state for cursor feedback
	hoverHandle interaction.Handle
	hoverInside bool

	// Border grab distance in screen pixels, converted to image units per event.
	hitTolerancePx float64

	// Last drag point in image coords; DragEnd carries no position.
	lastDrag geometry.Pt
}

// NewSelectableImageView builds the view on top of an existing model.
func NewSelectableImageView(m *selection.Model) *SelectableImageView {
	v := &SelectableImageView{
		model:          m,
		ctrl:           interaction.NewController(m),
		hitTolerancePx: interaction.DefaultHitTolerance,
	}
	// Repaint on any model change so programmatic updates show up too.
	for _, f := range []selection.Field{
		selection.FieldImage,
		selection.FieldPreserveImageRatio,
		selection.FieldSelection,
		selection.FieldSelectionValid,
		selection.FieldSelectionActive,
	} {
		m.Watch(f, func(selection.Change) { v.Refresh() })
	}
	v.ExtendBaseWidget(v)
	return v
}

// Model exposes the underlying selection model.
func (v *SelectableImageView) Model() *selection.Model { return v.model }

// Controller exposes the gesture controller, mainly for tolerance tuning.
func (v *SelectableImageView) Controller() *interaction.Controller { return v.ctrl }

// SetHitTolerance sets the border grab distance in screen pixels.
func (v *SelectableImageView) SetHitTolerance(px float64) {
	if px > 0 {
		v.hitTolerancePx = px
	}
}

// SetImage shows img and updates the model's image bounds, which revalidates
// any current selection.
func (v *SelectableImageView) SetImage(img image.Image) {
	v.img = img
	if img == nil {
		v.model.ClearImage()
	} else {
		b := img.Bounds()
		v.model.SetImage(geometry.Size{W: float64(b.Dx()), H: float64(b.Dy())})
	}
	v.Refresh()
}

// ClearImage removes the displayed image; the selection stays but turns invalid.
func (v *SelectableImageView) ClearImage() { v.SetImage(nil) }

// PreferredSize sets a decent default size for the widget.
func (v *SelectableImageView) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

// placement describes where the image lands inside the widget: origin plus a
// scale per axis. With preserve-image-ratio on, both scales are equal and the
// image is letterboxed; otherwise it stretches to fill the widget.
type placement struct {
	ox, oy float64
	sx, sy float64
}

func (v *SelectableImageView) imagePlacement() (placement, bool) {
	img, ok := v.model.Image()
	if !ok || img.W <= 0 || img.H <= 0 {
		return placement{}, false
	}
	size := v.Size()
	w := float64(size.Width)
	h := float64(size.Height)
	if w <= 0 || h <= 0 {
		return placement{}, false
	}
	if v.model.PreserveImageRatio() {
		s := w / img.W
		if alt := h / img.H; alt < s {
			s = alt
		}
		return placement{
			ox: (w - img.W*s) / 2,
			oy: (h - img.H*s) / 2,
			sx: s,
			sy: s,
		}, true
	}
	return placement{sx: w / img.W, sy: h / img.H}, true
}

// toImage maps a widget position into image coordinates.
func (v *SelectableImageView) toImage(pos fyne.Position) geometry.Pt {
	p, ok := v.imagePlacement()
	if !ok {
		return geometry.Pt{}
	}
	return geometry.Pt{
		X: (float64(pos.X) - p.ox) / p.sx,
		Y: (float64(pos.Y) - p.oy) / p.sy,
	}
}

// toWidget maps an image point into widget coordinates.
func (v *SelectableImageView) toWidget(pt geometry.Pt) fyne.Position {
	p, ok := v.imagePlacement()
	if !ok {
		return fyne.NewPos(0, 0)
	}
	x := float32(p.ox + pt.X*p.sx)
	y := float32(p.oy + pt.Y*p.sy)
	return fyne.NewPos(float32ToFixed(x), float32ToFixed(y))
}

// imageTolerance converts the screen-pixel grab distance into image units so
// border hits feel the same at any zoom.
func (v *SelectableImageView) imageTolerance() float64 {
	p, ok := v.imagePlacement()
	if !ok || p.sx <= 0 || p.sy <= 0 {
		return 0
	}
	return v.hitTolerancePx / minf(p.sx, p.sy)
}

// Tapped runs a click through the controller; a click that never opens an
// area clears the selection.
func (v *SelectableImageView) Tapped(e *fyne.PointEvent) {
	pt := v.toImage(e.Position)
	v.ctrl.SetHitTolerance(v.imageTolerance())
	v.ctrl.Press(pt)
	v.ctrl.Release(pt)
	v.Refresh()
}

// Dragged feeds pointer gestures into the controller. The first event of a
// gesture derives the press point from the drag delta.
func (v *SelectableImageView) Dragged(e *fyne.DragEvent) {
	pos := e.Position
	if !v.ctrl.Dragging() {
		start := fyne.NewPos(pos.X-e.Dragged.DX, pos.Y-e.Dragged.DY)
		v.ctrl.SetHitTolerance(v.imageTolerance())
		v.ctrl.Press(v.toImage(start))
	}
	v.lastDrag = v.toImage(pos)
	v.ctrl.Drag(v.lastDrag)
	v.Refresh()
}

// DragEnd finishes the gesture at the last dragged point.
func (v *SelectableImageView) DragEnd() {
	v.ctrl.Release(v.lastDrag)
	v.Refresh()
}

// MouseIn implements desktop.Hoverable for cursor feedback.
func (v *SelectableImageView) MouseIn(e *desktop.MouseEvent) { v.updateHover(e.Position) }

// MouseMoved tracks the handle under the pointer.
func (v *SelectableImageView) MouseMoved(e *desktop.MouseEvent) { v.updateHover(e.Position) }

// MouseOut resets hover state.
func (v *SelectableImageView) MouseOut() {
	v.hoverHandle = interaction.HandleNone
	v.hoverInside = false
}

func (v *SelectableImageView) updateHover(pos fyne.Position) {
	if _, ok := v.imagePlacement(); !ok {
		v.hoverHandle = interaction.HandleNone
		v.hoverInside = false
		return
	}
	img, _ := v.model.Image()
	pt := v.toImage(pos)
	v.hoverInside = geometry.InInterval(0, pt.X, img.W) && geometry.InInterval(0, pt.Y, img.H)
	v.ctrl.SetHitTolerance(v.imageTolerance())
	v.hoverHandle = v.ctrl.HandleFor(pt)
}

// Cursor reflects what a press at the hover point would do.
func (v *SelectableImageView) Cursor() desktop.Cursor {
	switch v.hoverHandle {
	case interaction.HandleMove:
		return desktop.PointerCursor
	case interaction.HandleN, interaction.HandleS:
		return desktop.VResizeCursor
	case interaction.HandleE, interaction.HandleW:
		return desktop.HResizeCursor
	case interaction.HandleNE, interaction.HandleSE, interaction.HandleSW, interaction.HandleNW:
		return desktop.CrosshairCursor
	}
	if v.hoverInside {
		return desktop.CrosshairCursor
	}
	return desktop.DefaultCursor
}

// CreateRenderer builds the image plus the selection overlay objects.
func (v *SelectableImageView) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})

	pic := canvas.NewImageFromImage(nil)
	pic.FillMode = canvas.ImageFillStretch
	pic.Hide()

	accent := color.RGBA{R: 0, G: 170, B: 255, A: 255}
	bbox := canvas.NewRectangle(color.RGBA{0, 0, 0, 0})
	bbox.StrokeColor = accent
	bbox.StrokeWidth = 1
	bbox.Hide()

	var handles [8]*canvas.Rectangle
	for i := range handles {
		h := canvas.NewRectangle(accent)
		h.Hide()
		handles[i] = h
	}

	objs := []fyne.CanvasObject{bg, pic, bbox}
	for _, h := range handles {
		objs = append(objs, h)
	}
	return &selectableImageRenderer{v: v, objects: objs, bg: bg, pic: pic, bbox: bbox, handles: handles}
}

type selectableImageRenderer struct {
	v       *SelectableImageView
	objects []fyne.CanvasObject
	bg      *canvas.Rectangle
	pic     *canvas.Image
	bbox    *canvas.Rectangle
	// handles in N, NE, E, SE, S, SW, W, NW order
	handles [8]*canvas.Rectangle
}

func (r *selectableImageRenderer) Destroy()                     {}
func (r *selectableImageRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *selectableImageRenderer) MinSize() fyne.Size           { return fyne.NewSize(400, 300) }
func (r *selectableImageRenderer) Refresh() {
	if r.pic.Image != r.v.img {
		r.pic.Image = r.v.img
		r.pic.Refresh()
	}
	r.Layout(r.v.Size())
	canvas.Refresh(r.v)
}

const selectionHandleSize = float32(8)

func (r *selectableImageRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	p, ok := r.v.imagePlacement()
	if !ok || r.v.img == nil {
		r.pic.Hide()
		r.hideSelection()
		return
	}
	img, _ := r.v.model.Image()
	r.pic.Show()
	r.pic.Resize(fyne.NewSize(float32ToFixed(float32(img.W*p.sx)), float32ToFixed(float32(img.H*p.sy))))
	r.pic.Move(fyne.NewPos(float32ToFixed(float32(p.ox)), float32ToFixed(float32(p.oy))))

	// The selection is only drawn when it is valid and active.
	sel, has := r.v.model.Selection()
	if !has || !r.v.model.SelectionValid() || !r.v.model.SelectionActive() {
		r.hideSelection()
		return
	}

	p0 := r.v.toWidget(sel.Min())
	p1 := r.v.toWidget(sel.Max())
	bx, by := p0.X, p0.Y
	bw, bh := p1.X-p0.X, p1.Y-p0.Y

	r.bbox.Show()
	r.bbox.Resize(fyne.NewSize(bw, bh))
	r.bbox.Move(fyne.NewPos(bx, by))

	// Handle centers in N, NE, E, SE, S, SW, W, NW order.
	mx := bx + bw/2
	my := by + bh/2
	centers := [8]fyne.Position{
		{X: mx, Y: by},           // N
		{X: bx + bw, Y: by},      // NE
		{X: bx + bw, Y: my},      // E
		{X: bx + bw, Y: by + bh}, // SE
		{X: mx, Y: by + bh},      // S
		{X: bx, Y: by + bh},      // SW
		{X: bx, Y: my},           // W
		{X: bx, Y: by},           // NW
	}
	hs := selectionHandleSize
	for i, c := range centers {
		h := r.handles[i]
		h.Show()
		h.Resize(fyne.NewSize(hs, hs))
		h.Move(fyne.NewPos(float32ToFixed(c.X-hs/2), float32ToFixed(c.Y-hs/2)))
	}
}

func (r *selectableImageRenderer) hideSelection() {
	r.bbox.Hide()
	for _, h := range r.handles {
		h.Hide()
	}
}

func float32ToFixed(v float32) float32 { return fyne.NewSize(v, 0).Width }

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
