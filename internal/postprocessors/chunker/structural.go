package chunker

import (
	"strings"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// chunkSections follows explicit heading structure from an html origin.
// Each heading becomes a SECTION_HEADER chunk; its body becomes one or
// more CONTENT chunks split on paragraph boundaries at the character budget.
func (p *Processor) chunkSections(extracted domain.ExtractedDocument) []domain.Chunk {
	var chunks []domain.Chunk

	for _, sec := range extracted.Sections {
		heading := strings.TrimSpace(sec.Heading)
		if heading != "" {
			chunks = append(chunks, newChunk(extracted.ID, domain.ChunkSectionHeader, "", heading))
		}

		for _, part := range p.splitOnParagraphs(sec.Body) {
			chunks = append(chunks, newChunk(extracted.ID, domain.ChunkContent, heading, part))
		}
	}

	return chunks
}

// chunkRows groups spreadsheet rows into fixed-size blocks. The first row
// is treated as the table header.
func (p *Processor) chunkRows(extracted domain.ExtractedDocument) []domain.Chunk {
	rows := make([]string, 0, len(extracted.Rows))
	for _, row := range extracted.Rows {
		if strings.TrimSpace(row) != "" {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	header := rows[0]
	chunks := []domain.Chunk{
		newChunk(extracted.ID, domain.ChunkTableHeader, "", header),
	}

	for start := 1; start < len(rows); start += p.rowsPerBlock {
		end := start + p.rowsPerBlock
		if end > len(rows) {
			end = len(rows)
		}
		block := strings.Join(rows[start:end], "\n")
		chunks = append(chunks, newChunk(extracted.ID, domain.ChunkContent, header, block))
	}

	return chunks
}

// chunkPages emits one block per crawled page, split further on paragraph
// boundaries when a page exceeds the character budget.
func (p *Processor) chunkPages(extracted domain.ExtractedDocument) []domain.Chunk {
	var chunks []domain.Chunk

	for _, page := range extracted.Pages {
		title := strings.TrimSpace(page.Title)
		if title != "" {
			chunks = append(chunks, newChunk(extracted.ID, domain.ChunkSectionHeader, "", title))
		}

		for _, part := range p.splitOnParagraphs(page.Text) {
			chunks = append(chunks, newChunk(extracted.ID, domain.ChunkContent, title, part))
		}
	}

	return chunks
}

// splitOnParagraphs splits text into parts no longer than the character
// budget, cutting only at paragraph boundaries. A single paragraph longer
// than the budget is hard-split on rune boundaries rather than dropped.
func (p *Processor) splitOnParagraphs(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= p.maxSectionChars {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")

	var (
		parts   []string
		current strings.Builder
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			parts = append(parts, s)
		}
		current.Reset()
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(para) > p.maxSectionChars {
			flush()
			parts = append(parts, hardSplit(para, p.maxSectionChars)...)
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > p.maxSectionChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return parts
}

// hardSplit cuts an oversized paragraph into budget-sized pieces on rune
// boundaries.
func hardSplit(text string, budget int) []string {
	var parts []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += budget {
		end := start + budget
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
