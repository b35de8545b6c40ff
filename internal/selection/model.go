/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package selection holds the state of a rectangular selection on an image
// and keeps its derived flags consistent. The model is UI-toolkit agnostic;
// widgets and gesture controllers drive it and observe it through per-field
// listeners.
//
// The model is not safe for concurrent use. The owning (UI) goroutine must
// serialize all calls; listeners run synchronously on that goroutine.
package selection

import (
	"fmt"
	"log/slog"
	"math"

	"selectview/internal/geometry"
	applog "selectview/internal/log"
)

// Model is the selection state of one image view.
//
// image and selection are optional; their getters follow the comma-ok
// convention. selectionValid is derived and read-only: it is true exactly
// when image and selection are both present and the selection lies fully
// inside the image. selectionActive follows "selection present" unless
// activity is explicitly managed by the caller.
type Model struct {
	log *slog.Logger

	image    geometry.Size
	hasImage bool

	preserveImageRatio bool

	selection    geometry.Rect
	hasSelection bool

	selectionValid    bool
	selectionActive   bool
	selectionChanging bool

	selectionRatioFixed bool
	fixedSelectionRatio float64

	activityExplicitlyManaged bool

	watchers map[Field][]Listener
}

// New returns a model with no image and no selection. The fixed selection
// ratio starts at 1.0 and activity derivation is automatic.
func New() *Model {
	return &Model{
		log:                 applog.WithComponent("selection"),
		fixedSelectionRatio: 1.0,
		watchers:            make(map[Field][]Listener),
	}
}

// Watch registers a listener for one field. Listeners fire in registration
// order, after the new value is stored. There is no way to unregister;
// watchers share the lifetime of the model.
func (m *Model) Watch(f Field, l Listener) {
	m.watchers[f] = append(m.watchers[f], l)
}

func (m *Model) notify(f Field, old, new any) {
	for _, l := range m.watchers[f] {
		l(Change{Field: f, Old: old, New: new})
	}
}

// Image returns the image bounds, if an image is present.
func (m *Model) Image() (geometry.Size, bool) { return m.image, m.hasImage }

// SetImage stores the bounds of a newly displayed image and re-derives the
// selection validity. The previous selection is kept as-is; it simply
// becomes invalid when it does not fit the new image.
func (m *Model) SetImage(s geometry.Size) {
	if m.hasImage && m.image == s {
		return
	}
	old := m.imageValue()
	m.image, m.hasImage = s, true
	m.notify(FieldImage, old, s)
	m.updateValidity()
}

// ClearImage removes the image. The selection is kept but turns invalid.
func (m *Model) ClearImage() {
	if !m.hasImage {
		return
	}
	old := m.image
	m.image, m.hasImage = geometry.Size{}, false
	m.notify(FieldImage, old, nil)
	m.updateValidity()
}

// PreserveImageRatio reports whether the view should letterbox the image
// instead of stretching it. The model carries the flag for its widget; no
// selection semantics hang off it.
func (m *Model) PreserveImageRatio() bool { return m.preserveImageRatio }

func (m *Model) SetPreserveImageRatio(preserve bool) {
	if m.preserveImageRatio == preserve {
		return
	}
	m.preserveImageRatio = preserve
	m.notify(FieldPreserveImageRatio, !preserve, preserve)
}

// Selection returns the selected rectangle, if one is present.
func (m *Model) Selection() (geometry.Rect, bool) { return m.selection, m.hasSelection }

// SetSelection stores a selection rectangle. Validity is re-derived first;
// afterwards, unless activity is explicitly managed, selectionActive is
// brought in line with the presence of a selection. Storing a value equal
// to the current one is a no-op and fires nothing.
func (m *Model) SetSelection(r geometry.Rect) {
	if m.hasSelection && m.selection == r {
		return
	}
	old := m.selectionValue()
	m.selection, m.hasSelection = r, true
	m.notify(FieldSelection, old, r)
	m.updateValidity()
	m.updateActivity()
}

// SetSelectionRect is SetSelection for callers holding plain coordinates.
func (m *Model) SetSelectionRect(x, y, w, h float64) {
	m.SetSelection(geometry.R(x, y, w, h))
}

// ClearSelection removes the selection, invalidating and (unless explicitly
// managed) deactivating it.
func (m *Model) ClearSelection() {
	if !m.hasSelection {
		return
	}
	old := m.selection
	m.selection, m.hasSelection = geometry.Rect{}, false
	m.notify(FieldSelection, old, nil)
	m.updateValidity()
	m.updateActivity()
}

// SelectionValid reports whether image and selection are both present and
// the selection lies fully inside the image. Derived; there is no setter.
func (m *Model) SelectionValid() bool { return m.selectionValid }

// SelectionActive reports whether the selection should currently be shown
// and editable.
func (m *Model) SelectionActive() bool { return m.selectionActive }

// SetSelectionActive overrides the activity flag directly. With automatic
// derivation in effect the next selection change wins again.
func (m *Model) SetSelectionActive(active bool) { m.setActive(active) }

// SelectionChanging reports whether a gesture is currently altering the
// selection. Maintained by the interaction layer around drag sequences.
func (m *Model) SelectionChanging() bool { return m.selectionChanging }

func (m *Model) SetSelectionChanging(changing bool) {
	if m.selectionChanging == changing {
		return
	}
	m.selectionChanging = changing
	m.notify(FieldSelectionChanging, !changing, changing)
}

// SelectionRatioFixed reports whether the selection is constrained to the
// fixed width:height ratio.
func (m *Model) SelectionRatioFixed() bool { return m.selectionRatioFixed }

// SetSelectionRatioFixed turns the ratio constraint on or off. Turning it
// on immediately conforms the current selection to the fixed ratio.
func (m *Model) SetSelectionRatioFixed(fixed bool) {
	if m.selectionRatioFixed == fixed {
		return
	}
	m.selectionRatioFixed = fixed
	m.notify(FieldSelectionRatioFixed, !fixed, fixed)
	if fixed {
		m.fixSelectionRatio()
	}
}

// FixedSelectionRatio returns the width:height quotient the selection is
// held to while the ratio is fixed.
func (m *Model) FixedSelectionRatio() float64 { return m.fixedSelectionRatio }

// SetFixedSelectionRatio stores a new ratio. Values that are not strictly
// positive are rejected with ErrInvalidRatio and leave the model untouched.
// When the ratio is currently fixed the selection is re-conformed at once.
func (m *Model) SetFixedSelectionRatio(ratio float64) error {
	if ratio <= 0 || math.IsNaN(ratio) {
		return fmt.Errorf("fixed selection ratio %g: %w", ratio, ErrInvalidRatio)
	}
	if m.fixedSelectionRatio == ratio {
		return nil
	}
	old := m.fixedSelectionRatio
	m.fixedSelectionRatio = ratio
	m.notify(FieldFixedSelectionRatio, old, ratio)
	if m.selectionRatioFixed {
		m.fixSelectionRatio()
	}
	return nil
}

// SelectionActivityExplicitlyManaged reports whether the caller has taken
// over the activity flag.
func (m *Model) SelectionActivityExplicitlyManaged() bool {
	return m.activityExplicitlyManaged
}

// SetSelectionActivityExplicitlyManaged hands control of selectionActive to
// the caller (true) or back to automatic derivation (false). Switching back
// does not touch the flag; derivation resumes with the next selection
// change.
func (m *Model) SetSelectionActivityExplicitlyManaged(managed bool) {
	if m.activityExplicitlyManaged == managed {
		return
	}
	m.activityExplicitlyManaged = managed
	m.notify(FieldSelectionActivityExplicitlyManaged, !managed, managed)
}

// updateValidity re-derives selectionValid. Both selection corners must lie
// inside [0, imageW] x [0, imageH]; edge contact counts as inside.
func (m *Model) updateValidity() {
	valid := false
	if m.hasImage && m.hasSelection {
		valid = geometry.InInterval(0, m.selection.X, m.image.W) &&
			geometry.InInterval(0, m.selection.X+m.selection.W, m.image.W) &&
			geometry.InInterval(0, m.selection.Y, m.image.H) &&
			geometry.InInterval(0, m.selection.Y+m.selection.H, m.image.H)
	}
	if m.selectionValid == valid {
		return
	}
	m.selectionValid = valid
	m.log.Debug("selection validity changed", "valid", valid)
	m.notify(FieldSelectionValid, !valid, valid)
}

// updateActivity derives selectionActive from the presence of a selection,
// unless the caller manages activity explicitly. Runs after updateValidity
// so observers see validity settle first.
func (m *Model) updateActivity() {
	if m.activityExplicitlyManaged {
		return
	}
	m.setActive(m.hasSelection)
}

func (m *Model) setActive(active bool) {
	if m.selectionActive == active {
		return
	}
	m.selectionActive = active
	m.notify(FieldSelectionActive, !active, active)
}

// fixSelectionRatio conforms the current selection to the fixed ratio
// within the image bounds by replacing the selection, which re-runs the
// full selection cascade. Skipped when there is no image, the selection is
// invalid, or the image has no area.
func (m *Model) fixSelectionRatio() {
	if !m.hasImage || !m.selectionValid {
		return
	}
	if m.image.W <= 0 || m.image.H <= 0 {
		return
	}
	bounds := geometry.R(0, 0, m.image.W, m.image.H)
	fixed := geometry.FixRatioWithinBounds(m.selection, m.fixedSelectionRatio, bounds)
	m.log.Debug("conforming selection to fixed ratio",
		"ratio", m.fixedSelectionRatio, "w", fixed.W, "h", fixed.H)
	m.SetSelection(fixed)
}

func (m *Model) imageValue() any {
	if !m.hasImage {
		return nil
	}
	return m.image
}

func (m *Model) selectionValue() any {
	if !m.hasSelection {
		return nil
	}
	return m.selection
}
