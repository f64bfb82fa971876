package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// Extraction method names recorded on the result and the stored document.
const (
	MethodReadability = "readability"
	MethodFullPage    = "full-page"
	MethodTextOnly    = "text-only"
)

// ErrNoContent is returned when nothing usable could be extracted.
var ErrNoContent = fmt.Errorf("%w: no extractable content", types.ErrValidation)

// Extractor turns raw HTML into structured markdown content ready for
// chunking.
type Extractor struct {
	converter *md.Converter
}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{
		converter: md.NewConverter("", true, nil),
	}
}

// Extract runs readability-based article extraction over rawHTML and
// converts the article body to markdown. When readability cannot isolate
// an article, the full page is converted instead and the result carries a
// degradation note. A page with no usable content at all returns
// ErrNoContent.
func (e *Extractor) Extract(rawHTML, pageURL string) (*types.ExtractionResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, ErrNoContent
	}

	result := &types.ExtractionResult{
		Lang: htmlLang(rawHTML),
	}

	article, artErr := readability.FromReader(strings.NewReader(rawHTML), parseURL(pageURL))
	if artErr == nil {
		result.Title = strings.TrimSpace(article.Title)
		result.Byline = strings.TrimSpace(article.Byline)
		result.Excerpt = strings.TrimSpace(article.Excerpt)
		result.TextContent = strings.TrimSpace(article.TextContent)

		if article.Content != "" {
			if markdown, err := e.converter.ConvertString(article.Content); err == nil {
				result.MarkdownContent = tidyMarkdown(markdown)
				result.ExtractionMethod = MethodReadability
			}
		}
	}

	// Readability found no article body: convert the whole page so
	// documentation-style pages (nav-heavy, no single article) still index.
	if result.MarkdownContent == "" {
		if markdown, err := e.converter.ConvertString(rawHTML); err == nil && strings.TrimSpace(markdown) != "" {
			result.MarkdownContent = tidyMarkdown(markdown)
			result.ExtractionMethod = MethodFullPage
			result.Note = "readability extraction failed; converted full page"
		}
	}

	// Last resort: plain text without markdown structure.
	if result.MarkdownContent == "" {
		if result.TextContent == "" {
			return nil, ErrNoContent
		}
		result.ExtractionMethod = MethodTextOnly
		result.Note = "markdown conversion failed; text content only"
	}

	if result.TextContent == "" {
		result.TextContent = markdownToText(result.MarkdownContent)
	}
	if result.Title == "" {
		result.Title = htmlTitle(rawHTML)
	}

	result.SectionPaths = sectionPaths(result.MarkdownContent)
	result.SemanticInfo = analyzeMarkdown(result.MarkdownContent, result.TextContent)

	return result, nil
}

func parseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}

var (
	langAttrRe  = regexp.MustCompile(`(?i)<html[^>]*\slang=["']?([a-zA-Z-]+)`)
	titleTagRe  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listItemRe  = regexp.MustCompile(`^\s*([-*+]|\d+\.)\s+`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
	mdMarkupRe  = regexp.MustCompile("[#*`_>\\[\\]()]")
)

func htmlLang(rawHTML string) string {
	if m := langAttrRe.FindStringSubmatch(rawHTML); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

func htmlTitle(rawHTML string) string {
	if m := titleTagRe.FindStringSubmatch(rawHTML); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// tidyMarkdown collapses runs of blank lines left behind by conversion.
func tidyMarkdown(markdown string) string {
	return strings.TrimSpace(blankRunsRe.ReplaceAllString(markdown, "\n\n"))
}

// markdownToText strips markdown markup for a rough plain-text rendition.
func markdownToText(markdown string) string {
	return strings.TrimSpace(mdMarkupRe.ReplaceAllString(markdown, ""))
}

// sectionPaths walks markdown headings and records the heading path at
// each point a new section opens. A level-N heading truncates the path to
// N-1 entries before appending.
func sectionPaths(markdown string) [][]string {
	var paths [][]string
	var current []string
	inFence := false

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		m := headingRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		level := len(m[1])
		title := strings.TrimSpace(m[2])
		if title == "" {
			continue
		}

		if level-1 < len(current) {
			current = current[:level-1]
		}
		current = append(current, title)

		path := make([]string, len(current))
		copy(path, current)
		paths = append(paths, path)
	}
	return paths
}

// analyzeMarkdown counts structural features for the semantic summary.
func analyzeMarkdown(markdown, text string) types.SemanticInfo {
	info := types.SemanticInfo{
		WordCount: len(strings.Fields(text)),
	}

	inFence := false
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			if !inFence {
				info.CodeBlocks++
			}
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if headingRe.MatchString(trimmed) {
			info.Headings++
		} else if listItemRe.MatchString(line) {
			info.Lists++
		}
	}
	return info
}
