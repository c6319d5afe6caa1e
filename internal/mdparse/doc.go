// Package mdparse extracts question records from Markdown question-bank
// content.
//
// The parser operates on one chunk of content at a time and is pure: it
// holds no state between calls and touches no storage, which lets the
// pipeline run many parses concurrently.
//
// # Basic Usage
//
//	questions, err := mdparse.Parse(chunkContent)
//	if err != nil {
//	    // ErrInvalidUTF8: the chunk cannot be decoded
//	}
//
// # Question Shapes
//
// Questions are split apart at numbered lines ("12. ..."), thematic breaks,
// or blank-line runs, whichever strategy actually divides the content.
// Within a block the parser recognizes:
//   - Answer options: "A. text" through "F. text" (also "a)" forms)
//   - Answer and explanation markers, English and Chinese
//   - Image tags: ![alt](url)
//   - LaTeX formulas: $inline$ and $$display$$
//
// The question type (multiple_choice, true_false, fill_in_blank,
// subjective) is inferred from the parsed shape.
//
// # Failure Model
//
// Malformed blocks degrade rather than fail: a block with no recognizable
// stem is dropped, unknown lines attach to the nearest section. Only
// undecodable content returns an error, which the pipeline reports as a
// chunk failure.
package mdparse
