package translate

import "strings"

// splitOversized splits text into word groups of at most maxBytes bytes
// when the whole text exceeds maxBytes. A single word longer than maxBytes
// is kept whole. Pieces are meant to be re-joined with a single space, so
// runs of whitespace collapse in a translated result. A text with any
// failed piece is returned by Client.Translate in its original form.
func splitOversized(text string, maxBytes int) []string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) <= 1 {
		return []string{text}
	}

	var pieces []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > maxBytes {
			pieces = append(pieces, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}

// packUnits groups piece indices into request units in order. A unit holds
// at most lim.MaxItems pieces and, joined with newlines, at most
// lim.MaxBytes bytes. A piece that alone exceeds MaxBytes gets its own unit.
func packUnits(pieces []string, lim Limits) [][]int {
	var units [][]int
	var cur []int
	size := 0
	for i, p := range pieces {
		add := len(p)
		if len(cur) > 0 {
			add++ // newline separator
		}
		full := len(cur) > 0 &&
			((lim.MaxItems > 0 && len(cur) >= lim.MaxItems) ||
				(lim.MaxBytes > 0 && size+add > lim.MaxBytes))
		if full {
			units = append(units, cur)
			cur, size, add = nil, 0, len(p)
		}
		cur = append(cur, i)
		size += add
	}
	if len(cur) > 0 {
		units = append(units, cur)
	}
	return units
}
