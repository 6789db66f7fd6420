package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// numberedSection matches numbered-section prefixes like "1.", "2.3", "4)".
var numberedSection = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)

// bulletPrefixes start a list line.
var bulletPrefixes = []string{"- ", "* ", "• ", "+ "}

// chunkGenericText scans free-running text line by line. Heading-like lines
// become TITLE chunks, tabular lines become TABLE_HEADER chunks, bullet runs
// become LIST chunks, and everything else accumulates into CONTENT chunks
// flushed at the token budget.
func (p *Processor) chunkGenericText(extracted domain.ExtractedDocument) []domain.Chunk {
	lines := strings.Split(extracted.Text, "\n")

	var (
		chunks  []domain.Chunk
		buffer  []string
		listBuf []string
		section string
	)

	flushContent := func() {
		text := strings.TrimSpace(strings.Join(buffer, "\n"))
		buffer = buffer[:0]
		if text != "" {
			chunks = append(chunks, newChunk(extracted.ID, domain.ChunkContent, section, text))
		}
	}
	flushList := func() {
		text := strings.TrimSpace(strings.Join(listBuf, "\n"))
		listBuf = listBuf[:0]
		if text != "" {
			chunks = append(chunks, newChunk(extracted.ID, domain.ChunkList, section, text))
		}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			// Blank lines only separate list runs; content keeps
			// accumulating across them.
			flushList()

		case isTitleLine(line):
			flushList()
			flushContent()
			// The chunk keeps the raw line so the original text survives
			// re-concatenation; only the section label is stripped.
			chunks = append(chunks, newChunk(extracted.ID, domain.ChunkTitle, "", line))
			section = strings.TrimLeft(line, "# ")

		case isTableLine(line):
			flushList()
			flushContent()
			chunks = append(chunks, newChunk(extracted.ID, domain.ChunkTableHeader, section, line))

		case isListLine(line):
			flushContent()
			listBuf = append(listBuf, line)

		default:
			flushList()
			if len(buffer) > 0 && countTokens(strings.Join(buffer, "\n"))+countTokens(line) > p.tokenBudget {
				flushContent()
			}
			buffer = append(buffer, line)
		}
	}

	flushList()
	flushContent()

	return chunks
}

// isTitleLine reports whether a line looks like a heading: short, and
// either markdown-style, ALL-CAPS, or a numbered section.
func isTitleLine(line string) bool {
	if len(line) >= maxTitleLen {
		return false
	}
	if strings.HasPrefix(line, "#") {
		return true
	}
	if isAllCaps(line) {
		return true
	}
	return numberedSection.MatchString(line)
}

// isAllCaps reports whether a line is upper-case and contains letters.
func isAllCaps(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

// isTableLine reports a tabular layout cue: a pipe character or a run of
// three or more consecutive spaces between cells.
func isTableLine(line string) bool {
	return strings.Contains(line, "|") || strings.Contains(line, "   ")
}

// isListLine reports whether a line starts with a bullet marker.
func isListLine(line string) bool {
	for _, prefix := range bulletPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
