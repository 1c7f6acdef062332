package labels

import "unicode/utf8"

// Measurer resolves the rendered pixel width of a label's text.
type Measurer interface {
	Measure(text string) float32
}

// FixedAdvance estimates text width from a fixed per-rune advance. It
// stands in for a real glyph measurer when no font stack is loaded.
type FixedAdvance struct {
	Advance float32
}

// DefaultMeasurer matches the metrics of a 12px UI font closely enough
// for row packing.
func DefaultMeasurer() FixedAdvance {
	return FixedAdvance{Advance: 7}
}

func (m FixedAdvance) Measure(text string) float32 {
	return float32(utf8.RuneCountInString(text)) * m.Advance
}
