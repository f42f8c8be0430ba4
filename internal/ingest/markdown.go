// Package ingest normalizes quiz content from its source formats (markdown
// files, loose JSON) into the canonical domain.Question shape. All
// validation and field reconciliation happens here, in one place, so the
// quiz core never sees inconsistent data.
package ingest

import (
	"regexp"
	"strings"

	"mla-quiz-service/internal/domain"
)

// DefaultPrompt is used when a question block carries no explicit question.
const DefaultPrompt = "What is the most likely diagnosis?"

var (
	questionStartRe  = regexp.MustCompile(`(?m)^###\s*\d+\.`)
	specialtyRe      = regexp.MustCompile(`(?m)^##\s+(.+)$`)
	questionHeaderRe = regexp.MustCompile(`(?s)^###\s*(\d+)\.\s*(.*?)\n(.*)$`)
	blankLineRe      = regexp.MustCompile(`\n\s*\n`)
	investigationsRe = regexp.MustCompile(`(?i)\*\*Investigations?(?::\*\*|\*\*:)\s*`)
	optionLineRe     = regexp.MustCompile(`^([A-Z])[.)]\s*(.*)`)
)

// ParseMarkdown extracts questions from a markdown quiz document. Question
// blocks start with "### N." headings; "## Specialty" headings categorize
// every question that follows them.
func ParseMarkdown(name, content string) domain.Quiz {
	quiz := domain.Quiz{Name: name}

	type marker struct {
		pos  int
		name string
	}
	markers := []marker{{0, "Uncategorized"}}
	for _, m := range specialtyRe.FindAllStringSubmatchIndex(content, -1) {
		markers = append(markers, marker{m[0], strings.TrimSpace(content[m[2]:m[3]])})
	}

	specialtyAt := func(pos int) string {
		best := markers[0].name
		for _, m := range markers {
			if m.pos <= pos {
				best = m.name
			}
		}
		return best
	}

	starts := questionStartRe.FindAllStringIndex(content, -1)
	for i, loc := range starts {
		// A block runs to the next question heading or the next specialty
		// header, whichever comes first.
		end := len(content)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		for _, m := range markers[1:] {
			if m.pos > loc[0] && m.pos < end {
				end = m.pos
				break
			}
		}
		block := content[loc[0]:end]
		if q, ok := parseQuestionBlock(block, specialtyAt(loc[0])); ok {
			quiz.Questions = append(quiz.Questions, q)
		}
	}
	return quiz
}

func parseQuestionBlock(block, specialty string) (domain.Question, bool) {
	m := questionHeaderRe.FindStringSubmatch(strings.TrimSpace(block))
	if m == nil {
		return domain.Question{}, false
	}
	number, title, rest := m[1], strings.TrimSpace(m[2]), m[3]

	parts := splitParts(rest, 5)

	scenario := ""
	if len(parts) > 0 {
		scenario = parts[0]
	}

	investigationIndex := -1
	investigations := ""
	for i, part := range parts {
		if investigationsRe.MatchString(part) {
			investigationIndex = i
			investigations = strings.TrimSpace(investigationsRe.ReplaceAllString(part, ""))
			break
		}
	}

	prompt := DefaultPrompt
	tailStart := 1
	switch {
	case investigationIndex >= 0:
		if investigationIndex+1 < len(parts) {
			prompt = parts[investigationIndex+1]
			tailStart = investigationIndex + 2
		} else if chunks := strings.Split(scenario, "\n\n"); len(chunks) > 1 {
			// The question sentence ended up glued to the scenario.
			prompt = chunks[len(chunks)-1]
			scenario = strings.Join(chunks[:len(chunks)-1], "\n\n")
		}
	case len(parts) >= 2:
		prompt = parts[1]
		tailStart = 2
	}

	options, explanations, correct := extractOptions(parts, tailStart)

	// Some documents keep the options inside the prompt or the scenario
	// paragraph instead of their own block.
	if len(options) == 0 {
		if opts, corr, rest, found := inlineOptions(prompt); found {
			options, correct, prompt = opts, corr, rest
		} else if opts, corr, rest, found := inlineOptions(scenario); found {
			options, correct, scenario = opts, corr, rest
		}
	}

	if prompt == "" {
		prompt = DefaultPrompt
	}

	return domain.Question{
		ID:             number,
		Title:          title,
		Specialty:      specialty,
		Scenario:       scenario,
		Investigations: investigations,
		Prompt:         prompt,
		Options:        options,
		CorrectIndex:   correct,
		Explanations:   explanations,
	}, true
}

func extractOptions(parts []string, tailStart int) (options []string, explanations []string, correct int) {
	correct = -1
	if tailStart < 0 || tailStart > len(parts) {
		return nil, nil, correct
	}
	for _, part := range parts[tailStart:] {
		for _, line := range strings.Split(strings.TrimSpace(part), "\n") {
			line = strings.TrimSpace(line)
			if optionLineRe.MatchString(line) {
				text, isCorrect := parseOptionLine(line)
				if isCorrect {
					correct = len(options)
				}
				options = append(options, text)
				continue
			}
			if strings.HasPrefix(line, "Explanation:") || strings.HasPrefix(line, "Answer:") {
				explanations = append(explanations, line)
			}
		}
	}
	return options, explanations, correct
}

// inlineOptions pulls option lines out of a mixed paragraph, returning the
// remaining non-option lines as the new paragraph text.
func inlineOptions(text string) (options []string, correct int, remainder string, found bool) {
	correct = -1
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if optionLineRe.MatchString(line) {
			option, isCorrect := parseOptionLine(line)
			if isCorrect {
				correct = len(options)
			}
			options = append(options, option)
			continue
		}
		kept = append(kept, line)
	}
	if len(options) == 0 {
		return nil, -1, text, false
	}
	return options, correct, strings.TrimSpace(strings.Join(kept, "\n")), true
}

// parseOptionLine returns the option text ("A) ..." letter kept, correct
// markers stripped) and whether the line was marked correct.
func parseOptionLine(line string) (string, bool) {
	m := optionLineRe.FindStringSubmatch(line)
	letter, text := m[1], m[2]

	lower := strings.ToLower(text)
	isCorrect := strings.Contains(lower, "correct") || strings.Contains(text, "✓")

	text = strings.NewReplacer(
		"*correct*", "", "*Correct*", "",
		"(correct)", "", "(Correct)", "",
		"✓", "",
	).Replace(text)
	return letter + ") " + strings.TrimSpace(text), isCorrect
}

// splitParts splits on blank lines, keeping at most max parts (the
// remainder stays in the last part) and dropping empty ones.
func splitParts(s string, max int) []string {
	raw := splitN(s, max)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func splitN(s string, max int) []string {
	var out []string
	rest := s
	for max > 1 {
		loc := blankLineRe.FindStringIndex(rest)
		if loc == nil {
			break
		}
		out = append(out, rest[:loc[0]])
		rest = rest[loc[1]:]
		max--
	}
	return append(out, rest)
}
