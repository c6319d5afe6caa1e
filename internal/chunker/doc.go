// Package chunker divides large Markdown question banks into byte ranges
// for parallel processing.
//
// Chunking is a two-phase computation over file metadata and small reads,
// never the whole file:
//
//  1. Rough cut: place a cut point every targetSize bytes.
//  2. Alignment: scan forward from each rough cut, up to scanWindow bytes,
//     for a line that starts a new question and move the cut there.
//
// # Basic Usage
//
//	c := chunker.New(10*1024*1024, 10000)
//	ranges, warnings, err := c.CreateChunks("bank.md")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Boundary Patterns
//
// A line starts a new question when it matches one of:
//   - A numbered question ("12. ...")
//   - A thematic break ("---" or "***")
//   - Any non-blank line preceded by two or more blank lines
//
// # Guarantees
//
// The returned ranges are contiguous and cover the file exactly: every byte
// belongs to exactly one range. A file that fits the target size is a
// single range; an empty file has no bytes to cover and yields no ranges.
// When no boundary exists within the scan
// window the rough cut is kept and a warning is returned; the run proceeds
// and the affected question may parse incompletely.
package chunker
