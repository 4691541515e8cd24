package markdown

import (
	"path/filepath"
	"regexp"
	"strings"
)

// headerPattern matches an ATX heading line, levels 1-6.
var headerPattern = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)

// Chunk is one section of a chunked document (§4.4). HeadingText is nil for
// the leading chunk preceding the first H2/H3.
type Chunk struct {
	HeadingText   *string
	DocumentTitle string
	StartLine     int
	Content       string
}

// ChunkDocument splits content into H2/H3-delimited chunks. path is used
// only to derive the fallback title when no H1 heading is present. Empty
// chunks (blank after trim) are discarded; StartLine is 1-based.
func ChunkDocument(path, content string) []Chunk {
	lines := strings.Split(content, "\n")

	title := fallbackTitle(path)
	h1Line := -1
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isFenceDelimiter(trimmed) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headerPattern.FindStringSubmatch(line); m != nil && len(m[1]) == 1 {
			title = m[2]
			h1Line = i
			break
		}
	}

	type section struct {
		heading   *string
		startLine int
		lines     []string
	}
	sections := []section{{heading: nil, startLine: 1}}
	current := &sections[0]

	inFence = false
	for i, line := range lines {
		if i == h1Line {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if isFenceDelimiter(trimmed) {
			inFence = !inFence
			current.lines = append(current.lines, line)
			continue
		}
		if !inFence {
			if m := headerPattern.FindStringSubmatch(line); m != nil {
				level := len(m[1])
				if level == 2 || level == 3 {
					heading := m[2]
					sections = append(sections, section{heading: &heading, startLine: i + 1})
					current = &sections[len(sections)-1]
					continue
				}
			}
		}
		current.lines = append(current.lines, line)
	}

	chunks := make([]Chunk, 0, len(sections))
	for _, s := range sections {
		text := strings.TrimSpace(strings.Join(s.lines, "\n"))
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			HeadingText:   s.heading,
			DocumentTitle: title,
			StartLine:     s.startLine,
			Content:       text,
		})
	}
	return chunks
}

// isFenceDelimiter reports whether a trimmed line opens or closes a fenced
// code block, so headings inside one are never treated as chunk boundaries.
func isFenceDelimiter(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func fallbackTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
