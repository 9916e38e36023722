// Package prompt assembles generation prompts from applicant data, scraped
// source pages and retrieved similar cases. Composition is deterministic:
// identical inputs always produce an identical prompt.
package prompt

import (
	"fmt"
	"strings"

	"visamate/backend/internal/text"
)

type Applicant struct {
	Nationality string
	Destination string
	VisaType    string
	Occupation  string
	Purpose     string
}

// Source is one fetched page, in authority order (official URLs first).
type Source struct {
	URL  string
	Text string
}

// Example is one retrieved similar case, most similar first.
type Example struct {
	Score          float32
	Content        string
	FieldsIncluded []string
}

type Composer struct {
	maxSourceChars int
}

func NewComposer(maxSourceChars int) *Composer {
	return &Composer{maxSourceChars: maxSourceChars}
}

const checklistInstructions = `You are a visa application assistant. Using ONLY the official source material above, produce the document checklist for the applicant.
Respond with a single JSON object and nothing else:
{"title": string, "items": [{"category": string, "description": string, "mandatory": boolean}]}`

const coverLetterInstructions = `You are a visa application assistant. Using the official source material above, draft a formal visa cover letter for the applicant.
Respond with a single JSON object and nothing else:
{"title": string, "sections": [{"heading": string, "body": string}]}`

// ComposeChecklist builds the checklist generation prompt.
func (c *Composer) ComposeChecklist(app Applicant, sources []Source, examples []Example) string {
	return c.compose(app, sources, examples, checklistInstructions)
}

// ComposeCoverLetter builds the cover letter generation prompt.
func (c *Composer) ComposeCoverLetter(app Applicant, sources []Source, examples []Example) string {
	return c.compose(app, sources, examples, coverLetterInstructions)
}

func (c *Composer) compose(app Applicant, sources []Source, examples []Example, instructions string) string {
	var b strings.Builder

	// The applicant's own fields are always present verbatim and clearly
	// separated from scraped text, so the model cannot mistake user input
	// for source content.
	b.WriteString("=== APPLICANT ===\n")
	fmt.Fprintf(&b, "Nationality: %s\n", app.Nationality)
	fmt.Fprintf(&b, "Destination: %s\n", app.Destination)
	fmt.Fprintf(&b, "Visa type: %s\n", app.VisaType)
	if app.Occupation != "" {
		fmt.Fprintf(&b, "Occupation: %s\n", app.Occupation)
	}
	if app.Purpose != "" {
		fmt.Fprintf(&b, "Travel purpose: %s\n", app.Purpose)
	}

	for i, src := range sources {
		fmt.Fprintf(&b, "\n=== SOURCE %d: %s ===\n", i+1, src.URL)
		b.WriteString(text.Truncate(src.Text, c.maxSourceChars))
		b.WriteString("\n")
	}

	for i, ex := range examples {
		fmt.Fprintf(&b, "\n=== SIMILAR CASE %d (similarity %.2f) ===\n", i+1, ex.Score)
		if len(ex.FieldsIncluded) > 0 {
			fmt.Fprintf(&b, "Fields included: %s\n", strings.Join(ex.FieldsIncluded, ", "))
		}
		b.WriteString(ex.Content)
		b.WriteString("\n")
	}

	b.WriteString("\n=== TASK ===\n")
	b.WriteString(instructions)
	b.WriteString("\n")

	return b.String()
}
