// Package window maps a continuous scroll position onto the range of item indexes worth rendering.
package window

import "math"

// Range is a half-open [Start, End) range of item indexes.
type Range struct {
	Start int `json:"startIndex"`
	End   int `json:"endIndex"`
}

func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether idx falls into the range.
func (r Range) Contains(idx int) bool { return idx >= r.Start && idx < r.End }

// VisibleCount is the number of item slots a viewport can show at once.
func VisibleCount(viewportHeight, itemHeight float64) int {
	if itemHeight <= 0 || viewportHeight <= 0 {
		return 0
	}
	return int(math.Ceil(viewportHeight / itemHeight))
}

// Calculate returns the window for the given geometry.
// The first visible item is extended backward by overscan items and forward by visibleCount+overscan
// items so that items scrolled just out of view stay mounted on small reversals.
// It is a pure function: 0 <= Start <= End <= count always holds.
func Calculate(scrollPosition, viewportHeight, itemHeight float64, count, overscan int) Range {
	if count <= 0 || itemHeight <= 0 {
		return Range{}
	}
	if overscan < 0 {
		overscan = 0
	}
	if scrollPosition < 0 || math.IsNaN(scrollPosition) {
		scrollPosition = 0
	}

	// compare as float first, huge positions overflow int
	first := count
	if q := math.Floor(scrollPosition / itemHeight); q < float64(count) {
		first = int(q)
	}

	start := first - overscan
	if start < 0 {
		start = 0
	}

	end := first + VisibleCount(viewportHeight, itemHeight) + overscan
	if end > count {
		end = count
	}
	if start > end {
		start = end
	}

	return Range{Start: start, End: end}
}

// MaxScroll is the largest valid scroll position for the given content and viewport.
func MaxScroll(contentHeight, viewportHeight float64) float64 {
	return math.Max(0, contentHeight-viewportHeight)
}

// ContentHeight is the total height of count uniformly sized items.
func ContentHeight(count int, itemHeight float64) float64 {
	if count <= 0 {
		return 0
	}
	return float64(count) * itemHeight
}
