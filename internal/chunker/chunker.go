package chunker

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
)

const (
	// DefaultChunkSize is the target chunk size in bytes (10MB)
	DefaultChunkSize = 10 * 1024 * 1024

	// DefaultScanWindow is the maximum number of bytes scanned past a rough
	// cut point while looking for a question boundary
	DefaultScanWindow = 10000
)

// Question boundary patterns, evaluated against complete lines
var (
	// Numbered question start, e.g. "12. What is ..."
	numberedQuestion = regexp.MustCompile(`^\d+\.\s`)

	// Thematic break separating questions
	separatorLine = regexp.MustCompile(`^\s*(-{3,}|\*{3,})\s*$`)
)

// ByteRange identifies one chunk of the input file as a half-open byte
// interval [Start, End).
type ByteRange struct {
	Start int64
	End   int64
}

// Chunker splits a Markdown question bank into byte ranges aligned to
// question boundaries.
type Chunker struct {
	targetSize int64
	scanWindow int64
}

// New creates a Chunker. Non-positive arguments fall back to the defaults.
func New(targetSize, scanWindow int64) *Chunker {
	if targetSize <= 0 {
		targetSize = DefaultChunkSize
	}
	if scanWindow <= 0 {
		scanWindow = DefaultScanWindow
	}
	return &Chunker{targetSize: targetSize, scanWindow: scanWindow}
}

// CreateChunks computes the chunk ranges for filePath without reading the
// whole file. Ranges are contiguous and cover the file exactly; a file no
// larger than the target size yields a single range spanning the whole
// file, and an empty file yields no ranges at all since there is nothing to
// parse. When no boundary is found within the scan window past a rough cut
// point, the rough cut is used as-is and a warning is recorded; the
// affected question is split across two chunks and may be parsed
// incompletely.
func (c *Chunker) CreateChunks(filePath string) ([]ByteRange, []string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return nil, nil, nil
	}
	if size <= c.targetSize {
		return []ByteRange{{Start: 0, End: size}}, nil, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var chunks []ByteRange
	var warnings []string

	start := int64(0)
	window := make([]byte, c.scanWindow)
	for start < size {
		roughEnd := start + c.targetSize
		if roughEnd >= size {
			chunks = append(chunks, ByteRange{Start: start, End: size})
			break
		}

		n, err := f.ReadAt(window, roughEnd)
		if err != nil && err != io.EOF {
			return nil, nil, fmt.Errorf("failed to read at offset %d: %w", roughEnd, err)
		}

		end := roughEnd
		if offset, ok := findBoundary(window[:n]); ok {
			end += offset
		} else {
			warnings = append(warnings, fmt.Sprintf(
				"no question boundary within %d bytes of offset %d; cutting mid-content",
				c.scanWindow, roughEnd))
		}
		if end >= size {
			end = size
		}
		chunks = append(chunks, ByteRange{Start: start, End: end})
		start = end
	}

	return chunks, warnings, nil
}

// findBoundary scans the window for the first line start that begins a new
// question: a numbered question line, a thematic break, or the first
// non-blank line after a run of two or more blank lines. The returned offset
// is relative to the window start. The bytes before the first newline belong
// to an unfinished line and are never considered.
func findBoundary(window []byte) (int64, bool) {
	nl := bytes.IndexByte(window, '\n')
	if nl < 0 {
		return 0, false
	}

	blankRun := 0
	i := nl + 1
	for i < len(window) {
		lineEnd := len(window)
		if next := bytes.IndexByte(window[i:], '\n'); next >= 0 {
			lineEnd = i + next
		} else {
			// Trailing partial line; unsafe to match against
			break
		}
		line := window[i:lineEnd]

		if len(bytes.TrimSpace(line)) == 0 {
			blankRun++
		} else {
			if blankRun >= 2 || numberedQuestion.Match(line) || separatorLine.Match(line) {
				return int64(i), true
			}
			blankRun = 0
		}
		i = lineEnd + 1
	}
	return 0, false
}
