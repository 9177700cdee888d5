package services

import "strings"

// maxLabelWords bounds how many words a colon-terminated label line may have.
const maxLabelWords = 5

// DetectSectionBoundary reports whether line opens a new section and, if
// so, its name. A boundary is a markdown heading or a short line ending
// in a colon. Colon lines are a heuristic: short prose ending in a colon
// also matches.
func DetectSectionBoundary(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}

	var name string
	switch {
	case strings.HasPrefix(trimmed, "#"):
		name = strings.TrimLeft(trimmed, "#")
		name = strings.TrimSuffix(strings.TrimSpace(name), ":")
	case strings.HasSuffix(trimmed, ":") && len(strings.Fields(trimmed)) <= maxLabelWords:
		name = strings.TrimRight(trimmed, ":")
	default:
		return "", false
	}

	name = strings.TrimSpace(name)
	return name, name != ""
}

// segment is a unit of splitter output: either a boundary or content.
type segment struct {
	boundary bool
	name     string
	text     string
}

// sectionSplitter turns arbitrarily chunked text into boundaries and
// content. Lines that might still become a boundary are held back until
// their newline arrives; lines that can no longer be one are released
// as soon as they are seen.
type sectionSplitter struct {
	pending   strings.Builder
	streaming bool
}

// feed consumes a delta and returns the segments it completes.
func (s *sectionSplitter) feed(delta string) []segment {
	var out []segment
	for delta != "" {
		nl := strings.IndexByte(delta, '\n')
		if nl < 0 {
			out = s.appendPartial(out, delta)
			break
		}
		out = s.appendLine(out, delta[:nl+1])
		delta = delta[nl+1:]
	}
	return out
}

// flush releases any incomplete trailing line.
func (s *sectionSplitter) flush() []segment {
	if s.pending.Len() == 0 {
		s.streaming = false
		return nil
	}
	return s.appendLine(nil, "")
}

func (s *sectionSplitter) appendPartial(out []segment, text string) []segment {
	if s.streaming {
		return append(out, segment{text: text})
	}
	s.pending.WriteString(text)
	held := s.pending.String()
	if couldBeBoundary(held) {
		return out
	}
	s.pending.Reset()
	s.streaming = true
	return append(out, segment{text: held})
}

// appendLine completes the current line with rest, which ends in a
// newline unless called from flush.
func (s *sectionSplitter) appendLine(out []segment, rest string) []segment {
	if s.streaming {
		s.streaming = false
		if rest == "" {
			return out
		}
		return append(out, segment{text: rest})
	}
	s.pending.WriteString(rest)
	line := s.pending.String()
	s.pending.Reset()
	if name, ok := DetectSectionBoundary(line); ok {
		return append(out, segment{boundary: true, name: name, text: line})
	}
	return append(out, segment{text: line})
}

// couldBeBoundary reports whether an incomplete line may still turn out
// to be a section boundary once its newline arrives.
func couldBeBoundary(partial string) bool {
	trimmed := strings.TrimLeft(partial, " \t")
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return true
	}
	return len(strings.Fields(trimmed)) <= maxLabelWords
}
