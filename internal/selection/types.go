/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package selection

import "errors"

// ErrInvalidRatio is returned when a fixed selection ratio is not strictly
// positive. The model state is left untouched in that case.
var ErrInvalidRatio = errors.New("ratio must be positive")

// Field identifies one observable property of the Model.
type Field int

const (
	FieldImage Field = iota
	FieldPreserveImageRatio
	FieldSelection
	FieldSelectionValid
	FieldSelectionActive
	FieldSelectionChanging
	FieldSelectionRatioFixed
	FieldFixedSelectionRatio
	FieldSelectionActivityExplicitlyManaged
)

func (f Field) String() string {
	switch f {
	case FieldImage:
		return "image"
	case FieldPreserveImageRatio:
		return "preserveImageRatio"
	case FieldSelection:
		return "selection"
	case FieldSelectionValid:
		return "selectionValid"
	case FieldSelectionActive:
		return "selectionActive"
	case FieldSelectionChanging:
		return "selectionChanging"
	case FieldSelectionRatioFixed:
		return "selectionRatioFixed"
	case FieldFixedSelectionRatio:
		return "fixedSelectionRatio"
	case FieldSelectionActivityExplicitlyManaged:
		return "selectionActivityExplicitlyManaged"
	default:
		return "unknown"
	}
}

// Change describes one property transition. Old and New hold the values
// before and after the store; the concrete type depends on the field:
// geometry.Size for FieldImage, geometry.Rect for FieldSelection, float64
// for FieldFixedSelectionRatio and bool for the flag fields. An absent image
// or selection is reported as nil.
type Change struct {
	Field Field
	Old   any
	New   any
}

// Listener is invoked synchronously after every store to the watched field.
type Listener func(Change)
