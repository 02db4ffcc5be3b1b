package world

// Color identifies an object color and the zone it belongs in.
type Color string

// Stock palette.
const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
)

// DefaultPalette returns the stock colors in display order.
func DefaultPalette() []Color {
	return []Color{Red, Blue, Green, Yellow}
}

// SortedCounts is the number of objects placed per color.
type SortedCounts map[Color]int

// Total returns the number of placed objects across all colors.
func (s SortedCounts) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Clone returns an independent copy of s.
func (s SortedCounts) Clone() SortedCounts {
	out := make(SortedCounts, len(s))
	for c, n := range s {
		out[c] = n
	}
	return out
}

func zeroCounts(palette []Color) SortedCounts {
	counts := make(SortedCounts, len(palette))
	for _, c := range palette {
		counts[c] = 0
	}
	return counts
}
