package chunker

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// span is a half-open byte range [start, end) of one token in the source
// text. Keeping byte offsets lets chunks carry traceable source spans.
type span struct {
	start int
	end   int
}

type tokenizer interface {
	tokenize(text string) []span
}

// scannerTokenizer is the fallback tokenizer: a token is a run of letters,
// digits or underscores, or a single other non-space rune. Deterministic
// and dependency-free, roughly word-level like the embedding tokenizers.
type scannerTokenizer struct{}

func (scannerTokenizer) tokenize(text string) []span {
	var spans []span
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		if isWordRune(r) {
			start := i
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !isWordRune(r) {
					break
				}
				i += size
			}
			spans = append(spans, span{start: start, end: i})
			continue
		}
		spans = append(spans, span{start: i, end: i + size})
		i += size
	}
	return spans
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// tiktokenTokenizer counts tokens with the cl100k_base BPE so chunk sizes
// line up with LLM context accounting. Offsets are recovered by
// decoding each token id back to its byte length; BPE token bytes
// concatenate to the original text.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

const tiktokenEncoding = "cl100k_base"

func newTiktokenTokenizer() (*tiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(tiktokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", tiktokenEncoding, err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) tokenize(text string) []span {
	ids := t.enc.Encode(text, nil, nil)
	spans := make([]span, 0, len(ids))
	offset := 0
	for _, id := range ids {
		piece := t.enc.Decode([]int{id})
		next := offset + len(piece)
		if next > len(text) {
			next = len(text)
		}
		spans = append(spans, span{start: offset, end: next})
		offset = next
	}
	return spans
}
