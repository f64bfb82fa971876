package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ContentChunk is a token-bounded span of extracted page content with
// section provenance. Chunks are immutable once created; the ID is a
// content-addressed hash so re-chunking identical input always produces
// identical IDs (idempotent re-indexing).
type ContentChunk struct {
	ID            string
	Text          string
	Tokens        int
	SectionPath   []string
	OverlapTokens int
	Position      int
}

// NewContentChunk builds an immutable chunk, computing its token estimate
// and content-addressed ID from (url, section path, final text).
func NewContentChunk(url string, sectionPath []string, text string, overlapTokens, position int) *ContentChunk {
	path := make([]string, len(sectionPath))
	copy(path, sectionPath)

	return &ContentChunk{
		ID:            ChunkID(url, path, text),
		Text:          text,
		Tokens:        EstimateTokens(text),
		SectionPath:   path,
		OverlapTokens: overlapTokens,
		Position:      position,
	}
}

// Validate checks chunk invariants.
func (c *ContentChunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID must be computed")
	}
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.Tokens <= 0 {
		return errors.New("chunk token count must be positive")
	}
	if c.OverlapTokens < 0 {
		return errors.New("overlap tokens cannot be negative")
	}
	return nil
}

// EstimateTokens estimates token count as ceil(len/4). This is a documented
// heuristic, not a real tokenizer: the average English word is ~4 characters.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ChunkID computes the SHA-256 hex ID of url + "|" + sectionPath.join("/") + "|" + text.
func ChunkID(url string, sectionPath []string, text string) string {
	h := sha256.Sum256([]byte(url + "|" + strings.Join(sectionPath, "/") + "|" + text))
	return hex.EncodeToString(h[:])
}

// JoinSectionPath flattens a section path to the string form used for
// grouping and storage. An empty path maps to "root".
func JoinSectionPath(sectionPath []string) string {
	if len(sectionPath) == 0 {
		return "root"
	}
	return strings.Join(sectionPath, " > ")
}
