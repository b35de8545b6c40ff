/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interaction turns pointer gestures into selection updates. It is
// toolkit-independent: callers feed Press/Drag/Release in image coordinates
// and the controller drives the selection model, bracketing every gesture
// with the selectionChanging flag.
package interaction

import (
	"log/slog"

	"selectview/internal/geometry"
	applog "selectview/internal/log"
	"selectview/internal/selection"
)

// DefaultHitTolerance is the border grab distance in image units used when
// the caller does not set one.
const DefaultHitTolerance = 5.0

// Controller owns the gesture state between a press and its release.
// Like the model it drives, it must be used from a single goroutine.
type Controller struct {
	model *selection.Model
	log   *slog.Logger
	tol   float64

	active strategy
}

func NewController(m *selection.Model) *Controller {
	return &Controller{
		model: m,
		log:   applog.WithComponent("interaction"),
		tol:   DefaultHitTolerance,
	}
}

// SetHitTolerance adjusts the border grab distance, e.g. when the widget
// zoom changes. Non-positive values reset to the default.
func (c *Controller) SetHitTolerance(tol float64) {
	if tol <= 0 {
		tol = DefaultHitTolerance
	}
	c.tol = tol
}

// HandleFor reports which handle a hover at p would grab. Used by widgets
// for cursor feedback; returns HandleNone while the selection cannot be
// edited.
func (c *Controller) HandleFor(p geometry.Pt) Handle {
	sel, ok := c.model.Selection()
	if !ok || !c.model.SelectionValid() || !c.model.SelectionActive() {
		return HandleNone
	}
	return HandleAt(sel, p, c.tol)
}

// Press starts a gesture. Pressing on a handle resizes, pressing inside the
// selection moves it, anywhere else starts a new selection at the point.
// Ignored while no image with positive area is shown.
func (c *Controller) Press(p geometry.Pt) {
	img, ok := c.model.Image()
	if !ok || img.W <= 0 || img.H <= 0 {
		return
	}
	bounds := geometry.R(0, 0, img.W, img.H)
	c.active = c.strategyFor(p, bounds)
	c.log.Debug("gesture started", "kind", c.active.name(), "x", p.X, "y", p.Y)
	c.model.SetSelectionChanging(true)
	c.active.drag(clampPt(p, bounds))
}

// Drag continues the gesture started by Press. Stray drags are ignored.
func (c *Controller) Drag(p geometry.Pt) {
	if c.active == nil {
		return
	}
	img, _ := c.model.Image()
	c.active.drag(clampPt(p, geometry.R(0, 0, img.W, img.H)))
}

// Release finishes the gesture. A new-selection gesture that never opened
// an area clears the selection again, so a plain click deselects.
func (c *Controller) Release(p geometry.Pt) {
	if c.active == nil {
		return
	}
	img, _ := c.model.Image()
	c.active.drag(clampPt(p, geometry.R(0, 0, img.W, img.H)))
	done := c.active
	c.active = nil
	if n, ok := done.(*newStrategy); ok && n.empty() {
		c.model.ClearSelection()
	}
	c.model.SetSelectionChanging(false)
	c.log.Debug("gesture finished", "kind", done.name())
}

// Dragging reports whether a gesture is in flight.
func (c *Controller) Dragging() bool { return c.active != nil }

func (c *Controller) strategyFor(p geometry.Pt, bounds geometry.Rect) strategy {
	sel, ok := c.model.Selection()
	if ok && c.model.SelectionValid() && c.model.SelectionActive() {
		switch h := HandleAt(sel, p, c.tol); h {
		case HandleNone:
			// fall through to a fresh selection
		case HandleMove:
			return &moveStrategy{
				c:      c,
				bounds: bounds,
				size:   geometry.Size{W: sel.W, H: sel.H},
				grab:   geometry.Pt{X: p.X - sel.X, Y: p.Y - sel.Y},
			}
		default:
			return &resizeStrategy{c: c, bounds: bounds, handle: h, prev: sel}
		}
	}
	return &newStrategy{c: c, anchor: clampPt(p, bounds)}
}

// ratio returns the fixed width:height quotient to honor during the
// gesture, or 0 when the selection ratio is free.
func (c *Controller) ratio() float64 {
	if !c.model.SelectionRatioFixed() {
		return 0
	}
	return c.model.FixedSelectionRatio()
}

type strategy interface {
	name() string
	drag(p geometry.Pt)
}

// newStrategy opens a selection between the press point and the pointer.
type newStrategy struct {
	c      *Controller
	anchor geometry.Pt
	last   geometry.Rect
}

func (s *newStrategy) name() string { return "new" }

func (s *newStrategy) drag(p geometry.Pt) {
	var r geometry.Rect
	if ratio := s.c.ratio(); ratio > 0 {
		r = geometry.ForDiagonalCornersWithRatio(s.anchor, p, ratio)
	} else {
		r = geometry.ForDiagonalCorners(s.anchor, p)
	}
	s.last = r
	s.c.model.SetSelection(r)
}

func (s *newStrategy) empty() bool { return s.last.Area() == 0 }

// moveStrategy shifts the selection without resizing it, keeping it inside
// the image.
type moveStrategy struct {
	c      *Controller
	bounds geometry.Rect
	size   geometry.Size
	grab   geometry.Pt // press offset from the selection origin
}

func (s *moveStrategy) name() string { return "move" }

func (s *moveStrategy) drag(p geometry.Pt) {
	r := geometry.Rect{X: p.X - s.grab.X, Y: p.Y - s.grab.Y, W: s.size.W, H: s.size.H}
	s.c.model.SetSelection(geometry.TranslateIntoBounds(r, s.bounds))
}

// resizeStrategy drags one border handle. Corner handles pin the opposite
// corner; edge handles pin the opposite edge and, with a fixed ratio, grow
// the perpendicular dimension around the selection center.
type resizeStrategy struct {
	c      *Controller
	bounds geometry.Rect
	handle Handle
	prev   geometry.Rect // selection at press time
}

func (s *resizeStrategy) name() string { return "resize-" + s.handle.String() }

func (s *resizeStrategy) drag(p geometry.Pt) {
	prev, bounds := s.prev, s.bounds
	ratio := s.c.ratio()
	var r geometry.Rect
	switch s.handle {
	case HandleSE:
		r = cornerRect(prev.Min(), p, ratio)
	case HandleNE:
		r = cornerRect(geometry.Pt{X: prev.X, Y: prev.Max().Y}, p, ratio)
	case HandleSW:
		r = cornerRect(geometry.Pt{X: prev.Max().X, Y: prev.Y}, p, ratio)
	case HandleNW:
		r = cornerRect(prev.Max(), p, ratio)
	case HandleE:
		r = edgeRectH(prev, bounds, p.X-prev.X, true, ratio)
	case HandleW:
		r = edgeRectH(prev, bounds, prev.Max().X-p.X, false, ratio)
	case HandleS:
		r = edgeRectV(prev, bounds, p.Y-prev.Y, true, ratio)
	case HandleN:
		r = edgeRectV(prev, bounds, prev.Max().Y-p.Y, false, ratio)
	default:
		return
	}
	s.c.model.SetSelection(geometry.TranslateIntoBounds(r, bounds))
}

func cornerRect(fixed, p geometry.Pt, ratio float64) geometry.Rect {
	if ratio > 0 {
		return geometry.ForDiagonalCornersWithRatio(fixed, p, ratio)
	}
	return geometry.ForDiagonalCorners(fixed, p)
}

// edgeRectH resizes horizontally to width w, measured from the pinned edge
// (the west edge for the east handle and vice versa). With a free ratio a
// negative width flips the span across the pinned edge; with a fixed ratio
// the width is authoritative, capped so the derived height fits the image,
// and the height re-centers on the old selection.
func edgeRectH(prev, bounds geometry.Rect, w float64, east bool, ratio float64) geometry.Rect {
	if ratio <= 0 {
		if east {
			return geometry.ForDiagonalCorners(prev.Min(), geometry.Pt{X: prev.X + w, Y: prev.Max().Y})
		}
		return geometry.ForDiagonalCorners(geometry.Pt{X: prev.Max().X, Y: prev.Y}, geometry.Pt{X: prev.Max().X - w, Y: prev.Max().Y})
	}
	w = clampSpan(w, bounds.H*ratio)
	h := w / ratio
	x := prev.X
	if !east {
		x = prev.Max().X - w
	}
	return geometry.Rect{X: x, Y: prev.Center().Y - h/2, W: w, H: h}
}

// edgeRectV is edgeRectH for the north/south handles.
func edgeRectV(prev, bounds geometry.Rect, h float64, south bool, ratio float64) geometry.Rect {
	if ratio <= 0 {
		if south {
			return geometry.ForDiagonalCorners(prev.Min(), geometry.Pt{X: prev.Max().X, Y: prev.Y + h})
		}
		return geometry.ForDiagonalCorners(geometry.Pt{X: prev.X, Y: prev.Max().Y}, geometry.Pt{X: prev.Max().X, Y: prev.Max().Y - h})
	}
	h = clampSpan(h, bounds.W/ratio)
	w := h * ratio
	y := prev.Y
	if !south {
		y = prev.Max().Y - h
	}
	return geometry.Rect{X: prev.Center().X - w/2, Y: y, W: w, H: h}
}

func clampSpan(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func clampPt(p geometry.Pt, bounds geometry.Rect) geometry.Pt {
	if p.X < bounds.X {
		p.X = bounds.X
	}
	if p.Y < bounds.Y {
		p.Y = bounds.Y
	}
	if p.X > bounds.X+bounds.W {
		p.X = bounds.X + bounds.W
	}
	if p.Y > bounds.Y+bounds.H {
		p.Y = bounds.Y + bounds.H
	}
	return p
}
