// Package extractor turns raw HTML into markdown content ready for
// chunking.
//
// Extraction is layered: readability article isolation first, whole-page
// markdown conversion when no article can be found, and plain text as a
// last resort. Degraded extractions carry a note so callers can surface
// the reduced fidelity. Alongside the content, the extractor reports the
// heading structure (section paths) and a structural summary used for
// index statistics.
package extractor
