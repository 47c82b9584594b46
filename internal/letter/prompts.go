package letter

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/cover_letter.md
var coverLetterPromptRaw string

// CoverLetterTemplate is the parsed default prompt template.
// Parsed once at package init; reused on every Generate call.
var CoverLetterTemplate = template.Must(template.New("cover_letter").Parse(coverLetterPromptRaw))
