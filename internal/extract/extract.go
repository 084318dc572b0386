// Package extract implements the pure blob-to-text extractors the file
// watcher runs over dropped attachments (§4.E). Every extractor is a
// total function: missing files, parse failures, and timeouts all
// collapse to an empty string rather than propagating an error, because
// a bad attachment must never abort the rest of a watcher cycle.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/digitalfte/fte/internal/assistant"
)

// MaxExtract is the hard character cap on extracted text. Overflow is
// truncated with a trailing marker rather than silently dropped.
const MaxExtract = 10000

const truncatedMarker = "\n[truncated]"

// ImageDescribeTimeout bounds the assistant call the image extractor
// delegates to.
const ImageDescribeTimeout = 60 * time.Second

// SupportedImageExtensions lists the image types the file watcher
// recognizes; anything else is treated as unsupported and skipped.
var SupportedImageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// truncate caps s to MaxExtract characters, appending a marker on overflow.
func truncate(s string) string {
	if len(s) <= MaxExtract {
		return s
	}
	return s[:MaxExtract] + truncatedMarker
}

// PDF extracts visible text from a PDF file. Parsing failures and
// missing files yield "", never an error — the caller falls back to the
// "extracted=false" placeholder path (§4.D).
func PDF(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	text := extractPDFText(data)
	return truncate(strings.TrimSpace(text))
}

// extractPDFText performs a minimal, dependency-free scan of a PDF's
// text-showing operators (Tj/TJ inside BT...ET blocks). It is not a full
// PDF parser: it is good enough to recover plain ASCII body text from
// uncompressed content streams, which is all the planner needs as
// context. Compressed (FlateDecode) streams yield no text, same as any
// other unparseable input.
func extractPDFText(data []byte) string {
	s := string(data)
	var out strings.Builder
	for {
		start := strings.Index(s, "BT")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "ET")
		if end == -1 {
			break
		}
		block := s[start : start+end]
		out.WriteString(scanShowOperators(block))
		out.WriteByte(' ')
		s = s[start+end+2:]
	}
	return out.String()
}

func scanShowOperators(block string) string {
	var out strings.Builder
	i := 0
	for i < len(block) {
		if block[i] == '(' {
			j := i + 1
			depth := 1
			for j < len(block) && depth > 0 {
				switch block[j] {
				case '\\':
					j++
				case '(':
					depth++
				case ')':
					depth--
				}
				j++
			}
			if j <= len(block) {
				lit := block[i+1 : j-1]
				out.WriteString(unescapePDFLiteral(lit))
				out.WriteByte(' ')
			}
			i = j
			continue
		}
		i++
	}
	return out.String()
}

func unescapePDFLiteral(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case '(', ')', '\\':
				out.WriteByte(s[i+1])
			default:
				out.WriteByte(s[i+1])
			}
			i++
			continue
		}
		out.WriteByte(s[i])
	}
	return out.String()
}

// Image delegates to the external assistant in "describe this image"
// mode under a fixed timeout (§4.E). Failure of any kind yields "".
func Image(ctx context.Context, a assistant.Assistant, path, model string) string {
	prompt := fmt.Sprintf("Describe the contents of the image at %s in plain text, for use as context in an automated workflow. Be factual and concise.", path)
	out, err := a.Invoke(ctx, prompt, model, ImageDescribeTimeout)
	if err != nil {
		return ""
	}
	return truncate(strings.TrimSpace(out))
}
