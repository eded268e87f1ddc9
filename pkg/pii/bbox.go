package pii

import (
	"math"
	"unicode/utf8"
)

// SubspanBBox narrows span to the horizontal slice covered by runes
// [start, end) of a text of textLen runes. The vertical extent is kept.
// Degenerate input returns span unchanged.
func SubspanBBox(span BBox, textLen, start, end int) BBox {
	if textLen <= 0 {
		return span
	}
	start = clampInt(start, 0, textLen)
	end = clampInt(end, 0, textLen)
	if end <= start {
		return span
	}

	width := span.Width()
	out := span
	if start > 0 {
		out.X1 = span.X1 + width*float64(start)/float64(textLen)
	}
	if end < textLen {
		out.X2 = span.X1 + width*float64(end)/float64(textLen)
	}
	return out
}

// RuneOffsets converts byte offsets into text to rune offsets. Offsets
// outside the text are clamped.
func RuneOffsets(text string, byteStart, byteEnd int) (int, int) {
	byteStart = clampInt(byteStart, 0, len(text))
	byteEnd = clampInt(byteEnd, byteStart, len(text))
	start := utf8.RuneCountInString(text[:byteStart])
	return start, start + utf8.RuneCountInString(text[byteStart:byteEnd])
}

// MergeBBoxes returns the minimal box enclosing every box. An empty input
// yields the zero box.
func MergeBBoxes(boxes []BBox) BBox {
	if len(boxes) == 0 {
		return BBox{}
	}
	out := BBox{
		X1: math.Inf(1),
		Y1: math.Inf(1),
		X2: math.Inf(-1),
		Y2: math.Inf(-1),
	}
	for _, b := range boxes {
		out.X1 = math.Min(out.X1, b.X1)
		out.Y1 = math.Min(out.Y1, b.Y1)
		out.X2 = math.Max(out.X2, b.X2)
		out.Y2 = math.Max(out.Y2, b.Y2)
	}
	return out
}

// ClampBBoxToPage clamps every coordinate into the page and swaps inverted
// corners so that X1<=X2 and Y1<=Y2 hold.
func ClampBBoxToPage(b BBox, pageWidth, pageHeight float64) BBox {
	out := BBox{
		X1: clampFloat(b.X1, 0, pageWidth),
		Y1: clampFloat(b.Y1, 0, pageHeight),
		X2: clampFloat(b.X2, 0, pageWidth),
		Y2: clampFloat(b.Y2, 0, pageHeight),
	}
	if out.X1 > out.X2 {
		out.X1, out.X2 = out.X2, out.X1
	}
	if out.Y1 > out.Y2 {
		out.Y1, out.Y2 = out.Y2, out.Y1
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
