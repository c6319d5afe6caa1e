package mdparse

import (
	"regexp"
	"strings"
)

var (
	// Markdown image tag: ![alt](url)
	imagePattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)[^)]*\)`)

	// Display math delimited by $$, then inline math delimited by $
	displayMath = regexp.MustCompile(`\$\$([^$]+)\$\$`)
	inlineMath  = regexp.MustCompile(`\$([^$\n]+)\$`)
)

// extractImages returns the image URLs referenced in the block, in order of
// appearance, with exact duplicates within the block collapsed.
func extractImages(block string) []string {
	var urls []string
	seen := make(map[string]struct{})
	for _, m := range imagePattern.FindAllStringSubmatch(block, -1) {
		url := strings.TrimSpace(m[1])
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	return urls
}

// extractFormulas returns the LaTeX formulas in the block without their
// dollar delimiters. Display math is matched first and removed so its
// delimiters are not re-matched as inline math.
func extractFormulas(block string) []string {
	var formulas []string
	seen := make(map[string]struct{})
	add := func(formula string) {
		formula = strings.TrimSpace(formula)
		if formula == "" {
			return
		}
		if _, ok := seen[formula]; ok {
			return
		}
		seen[formula] = struct{}{}
		formulas = append(formulas, formula)
	}

	for _, m := range displayMath.FindAllStringSubmatch(block, -1) {
		add(m[1])
	}
	remainder := displayMath.ReplaceAllString(block, "")
	for _, m := range inlineMath.FindAllStringSubmatch(remainder, -1) {
		add(m[1])
	}
	return formulas
}
