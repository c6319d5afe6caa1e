package mdparse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/markbank/md2db/pkg/types"
)

var (
	// Numbered question start, e.g. "12. What is ..."
	numberedStart = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)

	// Thematic break between questions
	separatorLine = regexp.MustCompile(`^\s*(-{3,}|\*{3,})\s*$`)

	// Answer option, e.g. "A. 4" or "b) seven"
	optionLine = regexp.MustCompile(`^\s*([A-Fa-f])[.)]\s+(.*)$`)

	// Answer and explanation markers, English and Chinese
	answerLine      = regexp.MustCompile(`^\s*\**(?:Answer|答案)\**\s*[::.]?\s*(.*)$`)
	explanationLine = regexp.MustCompile(`^\s*\**(?:Explanation|Analysis|解析|分析)\**\s*[::.]?\s*(.*)$`)

	// True/false answer values
	trueFalseAnswer = regexp.MustCompile(`^\s*\**\s*(?:T|F|True|False|正确|错误|对|错)\s*\**\s*$`)
)

// Parse extracts questions from one chunk of Markdown content. Sub-entities
// (options, image URLs, formulas) are returned raw; deduplication happens
// downstream. Blocks that yield no stem text are skipped.
func Parse(content string) ([]types.RawQuestion, error) {
	if !utf8.ValidString(content) {
		return nil, types.ErrInvalidUTF8
	}

	blocks := splitQuestions(content)
	questions := make([]types.RawQuestion, 0, len(blocks))
	for _, block := range blocks {
		q := parseBlock(block)
		if q.Content == "" {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// splitQuestions divides chunk content into per-question blocks. Strategies
// are tried in order of reliability: numbered question lines, thematic
// breaks, blank-line runs. A strategy is accepted only when it produces at
// least two blocks; otherwise the whole chunk is treated as one question.
func splitQuestions(content string) []string {
	lines := strings.Split(content, "\n")

	if blocks := splitAtNumbered(lines); len(blocks) >= 2 {
		return blocks
	}
	if blocks := splitAtSeparators(lines); len(blocks) >= 2 {
		return blocks
	}
	if blocks := splitAtBlankRuns(lines); len(blocks) >= 2 {
		return blocks
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return []string{content}
}

func splitAtNumbered(lines []string) []string {
	var blocks []string
	var current []string
	started := false
	for _, line := range lines {
		if numberedStart.MatchString(line) {
			if started {
				blocks = append(blocks, strings.Join(current, "\n"))
			}
			current = current[:0]
			started = true
		}
		if started {
			current = append(current, line)
		}
	}
	if started {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

func splitAtSeparators(lines []string) []string {
	var blocks []string
	var current []string
	flush := func() {
		block := strings.Join(current, "\n")
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
		current = current[:0]
	}
	for _, line := range lines {
		if separatorLine.MatchString(line) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func splitAtBlankRuns(lines []string) []string {
	var blocks []string
	var current []string
	blankRun := 0
	flush := func() {
		block := strings.Join(current, "\n")
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
		current = current[:0]
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankRun++
			if blankRun < 2 {
				current = append(current, line)
			}
			continue
		}
		if blankRun >= 2 {
			flush()
		}
		blankRun = 0
		current = append(current, line)
	}
	flush()
	return blocks
}

// parseBlock extracts a single question from its block of lines using a
// small section state machine: stem, then options, then answer and
// explanation. Unmarked lines attach to the current section.
func parseBlock(block string) types.RawQuestion {
	var q types.RawQuestion

	const (
		inStem = iota
		inOptions
		inAnswer
		inExplanation
	)
	section := inStem
	var stemLines []string
	var answerLines []string
	var explanationLines []string

	for _, line := range strings.Split(block, "\n") {
		switch {
		case explanationLine.MatchString(line):
			section = inExplanation
			rest := explanationLine.FindStringSubmatch(line)[1]
			if rest != "" {
				explanationLines = append(explanationLines, rest)
			}
		case answerLine.MatchString(line):
			section = inAnswer
			rest := answerLine.FindStringSubmatch(line)[1]
			if rest != "" {
				answerLines = append(answerLines, rest)
			}
		case optionLine.MatchString(line):
			section = inOptions
			// A bare marker with no text is noise, not an option
			if text := strings.TrimSpace(optionLine.FindStringSubmatch(line)[2]); text != "" {
				q.Options = append(q.Options, text)
			}
		default:
			switch section {
			case inStem:
				stemLines = append(stemLines, line)
			case inOptions:
				// Continuation of the previous option
				if n := len(q.Options); n > 0 && strings.TrimSpace(line) != "" {
					q.Options[n-1] += " " + strings.TrimSpace(line)
				}
			case inAnswer:
				if strings.TrimSpace(line) != "" {
					answerLines = append(answerLines, strings.TrimSpace(line))
				}
			case inExplanation:
				if strings.TrimSpace(line) != "" {
					explanationLines = append(explanationLines, strings.TrimSpace(line))
				}
			}
		}
	}

	q.Answer = strings.TrimSpace(strings.Join(answerLines, " "))
	q.Explanation = strings.TrimSpace(strings.Join(explanationLines, " "))
	q.Images = extractImages(block)
	q.Formulas = extractFormulas(block)
	q.Content = cleanStem(stemLines)
	q.Type = classify(q)
	return q
}

// cleanStem normalizes the stem: the leading question number is stripped,
// image tags are removed (the URLs live in the images collection), and the
// lines are joined with single spaces.
func cleanStem(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if m := numberedStart.FindStringSubmatch(line); m != nil && len(parts) == 0 {
			line = m[2]
		}
		line = imagePattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// classify determines the question type from its parsed shape
func classify(q types.RawQuestion) types.QuestionType {
	if len(q.Options) >= 2 {
		return types.QuestionMultipleChoice
	}
	lower := strings.ToLower(q.Content)
	if strings.Contains(lower, "true or false") || strings.Contains(q.Content, "判断") {
		return types.QuestionTrueFalse
	}
	if strings.Contains(q.Content, "____") {
		return types.QuestionFillInBlank
	}
	if trueFalseAnswer.MatchString(q.Answer) {
		return types.QuestionTrueFalse
	}
	return types.QuestionSubjective
}
