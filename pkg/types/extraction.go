package types

// SemanticInfo summarizes the structural features found in extracted content.
type SemanticInfo struct {
	Headings   int
	CodeBlocks int
	Lists      int
	WordCount  int
}

// ExtractionResult is the structured output of HTML content extraction.
// It is produced by the extractor and consumed read-only by the chunker.
type ExtractionResult struct {
	Title            string
	TextContent      string
	MarkdownContent  string
	SectionPaths     [][]string
	SemanticInfo     SemanticInfo
	ExtractionMethod string
	Lang             string
	Byline           string
	Excerpt          string

	// Note carries a degradation hint when extraction fell back to a
	// weaker strategy (e.g. text-only without markdown structure).
	Note string
}

// IsEmpty reports whether the extraction produced no usable content.
func (e *ExtractionResult) IsEmpty() bool {
	return e == nil || (e.MarkdownContent == "" && e.TextContent == "")
}
