// Package chunker splits normalized text into overlapping token-bounded
// windows. Chunking is pure: the same input and configuration always yield
// the same chunk sequence.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"rag-service/internal/models"
)

// ErrInvalidChunkConfig is returned when overlap is negative, chunk size is
// not positive, or overlap >= chunk size (the window would never advance).
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// Chunker produces token-window chunks of a fixed size and overlap.
type Chunker struct {
	chunkSize int // tokens per window
	overlap   int // tokens shared between adjacent windows
	tok       tokenizer
}

// New validates the window parameters. With useTiktoken the cl100k_base
// encoding sizes the windows; otherwise a word/punctuation scanner is used.
func New(chunkSize, overlap int, useTiktoken bool) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidChunkConfig, chunkSize, overlap)
	}
	var tok tokenizer = scannerTokenizer{}
	if useTiktoken {
		tt, err := newTiktokenTokenizer()
		if err != nil {
			return nil, err
		}
		tok = tt
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap, tok: tok}, nil
}

// Chunk splits text into windows of chunkSize tokens, each window starting
// chunkSize-overlap tokens after the previous one. The final window may be
// shorter but is always emitted. Chunk text is the byte span from the first
// to the last token of the window, so offsets are traceable for citation.
func (c *Chunker) Chunk(text string) ([]models.Chunk, error) {
	spans := c.tok.tokenize(text)
	if len(spans) == 0 {
		return nil, nil
	}

	headings := scanHeadings(text)
	step := c.chunkSize - c.overlap

	var chunks []models.Chunk
	for start := 0; start < len(spans); start += step {
		end := start + c.chunkSize
		if end > len(spans) {
			end = len(spans)
		}
		startOffset := spans[start].start
		endOffset := spans[end-1].end
		chunks = append(chunks, models.Chunk{
			ChunkID:     len(chunks),
			Text:        text[startOffset:endOffset],
			TokenCount:  end - start,
			StartOffset: startOffset,
			EndOffset:   endOffset,
			Section:     headingFor(headings, startOffset),
		})
		if end == len(spans) {
			break
		}
	}
	return chunks, nil
}

// CountTokens reports the token count of text under this chunker's
// tokenizer, used for context budget accounting at retrieval time.
func (c *Chunker) CountTokens(text string) int {
	return len(c.tok.tokenize(text))
}

type heading struct {
	offset int
	label  string
}

const maxHeadingLen = 60

// scanHeadings records candidate section labels: short standalone lines
// without sentence-ending punctuation, or markdown-style "#" headings that
// survived normalization. Best effort only; chunks with no preceding
// heading get an empty section.
func scanHeadings(text string) []heading {
	var headings []heading
	offset := 0
	prevBlank := true
	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			prevBlank = true
			offset += len(line)
			continue
		}
		nextBlank := i+1 >= len(lines) || strings.TrimSpace(lines[i+1]) == ""
		if label, ok := headingLabel(trimmed, prevBlank, nextBlank); ok {
			headings = append(headings, heading{offset: offset, label: label})
		}
		prevBlank = false
		offset += len(line)
	}
	return headings
}

func headingLabel(line string, prevBlank, nextBlank bool) (string, bool) {
	if strings.HasPrefix(line, "#") {
		return strings.TrimSpace(strings.TrimLeft(line, "# ")), true
	}
	if !prevBlank || !nextBlank {
		return "", false
	}
	if len(line) > maxHeadingLen || strings.ContainsAny(string(line[len(line)-1]), ".!?,;") {
		return "", false
	}
	return line, true
}

// headingFor returns the label of the closest heading at or before offset.
func headingFor(headings []heading, offset int) string {
	label := ""
	for _, h := range headings {
		if h.offset > offset {
			break
		}
		label = h.label
	}
	return label
}
