package models

// Chunk is a contiguous, token-counted span of a document's extracted text.
// ChunkID is the 0-based window ordinal and is stable for a given document
// version; StartOffset/EndOffset are byte offsets into the normalized text.
type Chunk struct {
	ChunkID     int
	Text        string
	TokenCount  int
	StartOffset int
	EndOffset   int
	Section     string
}

// ScoredChunk pairs a chunk with the document it came from and its
// similarity score against a query embedding.
type ScoredChunk struct {
	DocumentID string
	Chunk      Chunk
	Score      float64
}

// Source identifies a chunk that contributed to a generated answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	ChunkID    int     `json:"chunk_id"`
	Score      float64 `json:"score"`
}

// Answer is the result of the ask operation. Grounded is false when the
// generator reported the answer is not present in the supplied context;
// that is a valid response, not a failure.
type Answer struct {
	Text     string   `json:"answer"`
	Grounded bool     `json:"grounded"`
	Sources  []Source `json:"sources"`
}

// DocKind selects the output shape of the generate-document operation.
type DocKind string

const (
	DocKindSummary   DocKind = "summary"
	DocKindReport    DocKind = "report"
	DocKindOutline   DocKind = "outline"
	DocKindKeyPoints DocKind = "key_points"
)

// ValidDocKind reports whether k names a supported document kind.
func ValidDocKind(k DocKind) bool {
	switch k {
	case DocKindSummary, DocKindReport, DocKindOutline, DocKindKeyPoints:
		return true
	}
	return false
}

// DocumentStats describes one indexed document for the stats endpoint.
type DocumentStats struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	Dimension  int    `json:"dimension"`
}

// IndexStats aggregates the state of the index table.
type IndexStats struct {
	Documents   int             `json:"documents"`
	TotalChunks int             `json:"total_chunks"`
	PerDocument []DocumentStats `json:"per_document"`
}
