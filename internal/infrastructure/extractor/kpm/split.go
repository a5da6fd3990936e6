package kpm

import "strings"

// SplitComplete separates streamed text into the part that can be extracted
// now and a remainder to prepend to the next chunk. A trailing line without a
// newline is held back unless it already ends with its unit bracket, and the
// last block is held back until it carries every metric field.
func SplitComplete(text string) (complete, rest string) {
	end := len(text)
	if nl := strings.LastIndexByte(text, '\n'); nl < len(text)-1 {
		tail := strings.TrimRight(text[nl+1:], " \t\r")
		if !strings.HasSuffix(tail, "]") {
			end = nl + 1
		}
	}

	start := lastAnchorOffset(text[:end])
	if start < 0 || blockComplete(text[start:end]) {
		return text[:end], text[end:]
	}
	return text[:start], text[start:]
}

func lastAnchorOffset(text string) int {
	last := -1
	offset := 0
	for offset < len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		if lineEnd < 0 {
			line = text[offset:]
			lineEnd = len(text) - offset
		} else {
			line = text[offset : offset+lineEnd]
		}
		if anchorPattern.MatchString(line) {
			last = offset
		}
		offset += lineEnd + 1
	}
	return last
}

func blockComplete(block string) bool {
	seen := make(map[string]struct{}, len(metricColumns))
	for _, line := range strings.Split(block, "\n") {
		if column, _, ok := parseMetric(line); ok {
			seen[column] = struct{}{}
		}
	}
	return len(seen) == len(metricColumns)
}
