package models

import "time"

// DocumentRecord describes a single corpus file as produced by the loader.
// Records are created once per corpus load and are immutable afterwards.
type DocumentRecord struct {
	FilePath         string    `json:"file_path"`
	FileName         string    `json:"file_name"`
	FileSize         int64     `json:"file_size"`
	FileExtension    string    `json:"file_extension"`
	FileLastModified time.Time `json:"file_last_modified"`
	FileRelativePath string    `json:"file_relative_path"`
	SHA256Hash       string    `json:"sha256_hash"`
	Content          string    `json:"content,omitempty"`
}

// IndexedDocument pairs a DocumentRecord with its embedding vector.
// EmbeddedText is the text that was actually embedded, which may differ
// from the raw content (the file name is used when content is empty).
type IndexedDocument struct {
	Record       DocumentRecord `json:"record"`
	Embedding    []float64      `json:"embedding"`
	EmbeddedText string         `json:"embedded_text"`
}

// SimilarityMatch is an indexed document plus its cosine similarity to a
// query vector. Scores are always in [-1, 1].
type SimilarityMatch struct {
	Document IndexedDocument `json:"document"`
	Score    float64         `json:"score"`
}

// ContextSnippet is the caller-facing summary of one retrieved match,
// returned alongside the chat answer.
type ContextSnippet struct {
	FileName string  `json:"file_name"`
	Score    float64 `json:"score"`
	Excerpt  string  `json:"excerpt"`
}

// RetrievalStats reports the state of the retrieval subsystem.
// EmbeddingDimension is 0 while the store is empty.
type RetrievalStats struct {
	Initialized        bool `json:"is_initialized"`
	DocumentCount      int  `json:"total_documents"`
	EmbeddingDimension int  `json:"embedding_dimension"`
}
