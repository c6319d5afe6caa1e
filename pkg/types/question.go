package types

// QuestionType classifies a parsed question
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionFillInBlank    QuestionType = "fill_in_blank"
	QuestionSubjective     QuestionType = "subjective"
)

// Valid reports whether the question type is one of the known values
func (q QuestionType) Valid() bool {
	switch q {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionFillInBlank, QuestionSubjective:
		return true
	default:
		return false
	}
}

// EntityKind identifies a deduplicated sub-entity collection
type EntityKind string

const (
	KindOption  EntityKind = "option"
	KindImage   EntityKind = "image"
	KindFormula EntityKind = "formula"
)

// RawQuestion is the parser's output for a single question: content text plus
// raw, un-deduplicated sub-entities. It is owned by the worker that produced
// it until handed to the coordinator.
type RawQuestion struct {
	// Content is the cleaned question stem
	Content string

	// Type is the detected question type
	Type QuestionType

	// Options holds raw option strings in display order (multiple choice only)
	Options []string

	// Answer is the answer text, if one was found
	Answer string

	// Explanation is the explanation/analysis text, if one was found
	Explanation string

	// Images holds raw image URLs referenced by the question
	Images []string

	// Formulas holds raw LaTeX formula strings
	Formulas []string
}
