/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"math"

	"selectview/internal/geometry"
)

// Handle identifies where a pointer position grabs the selection: one of
// the eight resize positions on the border, the interior (move), or nothing.
type Handle int

const (
	HandleNone Handle = iota
	HandleMove
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleNW
)

func (h Handle) String() string {
	switch h {
	case HandleNone:
		return "none"
	case HandleMove:
		return "move"
	case HandleN:
		return "n"
	case HandleNE:
		return "ne"
	case HandleE:
		return "e"
	case HandleSE:
		return "se"
	case HandleS:
		return "s"
	case HandleSW:
		return "sw"
	case HandleW:
		return "w"
	case HandleNW:
		return "nw"
	default:
		return "unknown"
	}
}

// HandleAt classifies the pointer position against the selection rectangle.
// Corners win over edges, edges over the interior; tol widens the border
// hit zones on both sides. Callers pass a normalized rectangle.
func HandleAt(r geometry.Rect, p geometry.Pt, tol float64) Handle {
	near := func(a, b float64) bool { return math.Abs(a-b) <= tol }
	minX, minY := r.X, r.Y
	maxX, maxY := r.X+r.W, r.Y+r.H
	alongX := p.X >= minX-tol && p.X <= maxX+tol
	alongY := p.Y >= minY-tol && p.Y <= maxY+tol
	switch {
	case near(p.X, minX) && near(p.Y, minY):
		return HandleNW
	case near(p.X, maxX) && near(p.Y, minY):
		return HandleNE
	case near(p.X, maxX) && near(p.Y, maxY):
		return HandleSE
	case near(p.X, minX) && near(p.Y, maxY):
		return HandleSW
	case near(p.Y, minY) && alongX:
		return HandleN
	case near(p.Y, maxY) && alongX:
		return HandleS
	case near(p.X, minX) && alongY:
		return HandleW
	case near(p.X, maxX) && alongY:
		return HandleE
	case r.Contains(p):
		return HandleMove
	}
	return HandleNone
}
