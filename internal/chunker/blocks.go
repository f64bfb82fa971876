package chunker

import (
	"regexp"
	"strings"
)

// blockType classifies a parsed content block. Atomic types (code, list,
// table, blockquote) are never split across chunks.
type blockType string

const (
	blockHeading   blockType = "heading"
	blockParagraph blockType = "paragraph"
	blockCode      blockType = "code"
	blockList      blockType = "list"
	blockTable     blockType = "table"
	blockQuote     blockType = "blockquote"
	blockOther     blockType = "other"
)

// contentBlock is an internal unit of parsed markdown with its enclosing
// section path (ordered heading titles from the document root).
type contentBlock struct {
	text        string
	sectionPath []string
	typ         blockType
	canSplit    bool
	position    int
}

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listItemRe = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+`)
	// One alternative per rule character: RE2 has no backreferences, so
	// "three or more of the same marker" is spelled out explicitly.
	hruleRe = regexp.MustCompile(`^\s*(-\s*){3,}$|^\s*(\*\s*){3,}$|^\s*(_\s*){3,}$`)
)

// parseBlocks turns markdown into an ordered list of content blocks while
// tracking the section path. A heading at level L truncates the path to
// length L-1 and appends its own title.
func parseBlocks(markdown string) []contentBlock {
	lines := strings.Split(markdown, "\n")

	var blocks []contentBlock
	var path []string

	emit := func(text string, typ blockType, canSplit bool) {
		text = strings.TrimRight(text, "\n")
		if strings.TrimSpace(text) == "" {
			return
		}
		blocks = append(blocks, contentBlock{
			text:        text,
			sectionPath: clonePath(path),
			typ:         typ,
			canSplit:    canSplit,
			position:    len(blocks),
		})
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++

		case headingRe.MatchString(trimmed):
			m := headingRe.FindStringSubmatch(trimmed)
			level := len(m[1])
			title := strings.TrimSpace(strings.TrimRight(m[2], "# "))
			if level-1 < len(path) {
				path = path[:level-1]
			}
			path = append(path, title)
			emit(trimmed, blockHeading, false)
			i++

		case strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~"):
			fence := trimmed[:3]
			end := findFenceClose(lines, i+1, fence)
			if end < 0 {
				// Unterminated fence: the opener becomes plain paragraph
				// text and structural parsing resumes on the next line, so
				// a stray fence cannot swallow the rest of the document.
				emit(trimmed, blockParagraph, true)
				i++
				continue
			}
			emit(strings.Join(lines[i:end+1], "\n"), blockCode, false)
			i = end + 1

		case strings.HasPrefix(trimmed, ">"):
			j := i
			for j < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[j]), ">") {
				j++
			}
			emit(strings.Join(lines[i:j], "\n"), blockQuote, false)
			i = j

		case strings.HasPrefix(trimmed, "|"):
			j := i
			for j < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[j]), "|") {
				j++
			}
			emit(strings.Join(lines[i:j], "\n"), blockTable, false)
			i = j

		case hruleRe.MatchString(trimmed):
			emit(trimmed, blockOther, false)
			i++

		case listItemRe.MatchString(line):
			j := i
			for j < len(lines) {
				next := lines[j]
				if listItemRe.MatchString(next) || (strings.TrimSpace(next) != "" && strings.HasPrefix(next, "  ")) {
					j++
					continue
				}
				break
			}
			emit(strings.Join(lines[i:j], "\n"), blockList, false)
			i = j

		default:
			// Paragraph: accumulate until a blank line or structural marker.
			j := i
			for j < len(lines) {
				next := strings.TrimSpace(lines[j])
				if next == "" || headingRe.MatchString(next) ||
					strings.HasPrefix(next, "```") || strings.HasPrefix(next, "~~~") ||
					strings.HasPrefix(next, ">") || strings.HasPrefix(next, "|") ||
					listItemRe.MatchString(lines[j]) || hruleRe.MatchString(next) {
					break
				}
				j++
			}
			if j == i {
				j = i + 1
			}
			emit(strings.Join(lines[i:j], "\n"), blockParagraph, true)
			i = j
		}
	}

	return blocks
}

// findFenceClose returns the index of the closing fence line, or -1.
func findFenceClose(lines []string, start int, fence string) int {
	for j := start; j < len(lines); j++ {
		if strings.HasPrefix(strings.TrimSpace(lines[j]), fence) {
			return j
		}
	}
	return -1
}

func clonePath(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, len(path))
	copy(out, path)
	return out
}

// divergesAtTop reports whether two section paths disagree on their
// top-level heading. Entering or leaving the preamble (empty path) counts.
func divergesAtTop(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return false
	}
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	return a[0] != b[0]
}

// samePath reports whether two section paths are identical.
func samePath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
