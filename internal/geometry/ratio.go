/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

// Ratio-constrained rectangle construction. The width:height ratio is a
// plain quotient, e.g. 16:9 is passed as 16.0/9.0.

import "math"

// FixRatioWithinBounds resizes r so that W/H equals ratio while keeping the
// result inside bounds. The center of r is preserved where possible; the
// rectangle shrinks and shifts only as far as the bounds demand.
//
// Of the two candidates that reach the ratio (keep the height and derive the
// width, or keep the width and derive the height) the one with the smaller
// area wins; on a tie the height is kept. A candidate larger than the bounds
// is scaled down uniformly around the center before the final shift into the
// bounds.
//
// Non-positive ratio or degenerate bounds return r unchanged. The operation
// is deterministic and idempotent.
func FixRatioWithinBounds(r Rect, ratio float64, bounds Rect) Rect {
	if ratio <= 0 || bounds.W <= 0 || bounds.H <= 0 {
		return r
	}
	c := r.Center()
	w, h := ratioSpan(r.W, r.H, ratio)
	if s := min(bounds.W/w, bounds.H/h); s < 1 {
		w *= s
		h *= s
	}
	return TranslateIntoBounds(Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h}, bounds)
}

// ForDiagonalCornersWithRatio returns a rectangle with W/H equal to ratio,
// anchored at the fixed corner and extending toward the moving corner. The
// candidate rule matches FixRatioWithinBounds, so the rectangle never
// outgrows the span the pointer opened.
func ForDiagonalCornersWithRatio(fixed, moving Pt, ratio float64) Rect {
	if ratio <= 0 {
		return ForDiagonalCorners(fixed, moving)
	}
	dx := moving.X - fixed.X
	dy := moving.Y - fixed.Y
	w, h := ratioSpan(math.Abs(dx), math.Abs(dy), ratio)
	r := Rect{X: fixed.X, Y: fixed.Y, W: w, H: h}
	if dx < 0 {
		r.X -= w
	}
	if dy < 0 {
		r.Y -= h
	}
	return r
}

// TranslateIntoBounds shifts r the minimal distance so it lies inside
// bounds. A rectangle that cannot fit is pinned to the bounds origin and
// capped to the bounds size in the overflowing dimension.
func TranslateIntoBounds(r, bounds Rect) Rect {
	if r.W > bounds.W {
		r.X, r.W = bounds.X, bounds.W
	} else {
		r.X = clamp(r.X, bounds.X, bounds.X+bounds.W-r.W)
	}
	if r.H > bounds.H {
		r.Y, r.H = bounds.Y, bounds.H
	} else {
		r.Y = clamp(r.Y, bounds.Y, bounds.Y+bounds.H-r.H)
	}
	return r
}

// ratioSpan picks the width/height pair with W/H == ratio derivable from the
// given extents: keep-height (w0 ignored) or keep-width (h0 ignored),
// whichever yields the smaller area. Ties keep the height.
func ratioSpan(w0, h0, ratio float64) (w, h float64) {
	w, h = h0*ratio, h0
	if altW, altH := w0, w0/ratio; altW*altH < w*h {
		w, h = altW, altH
	}
	return w, h
}
