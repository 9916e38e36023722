// Package generation orchestrates the full pipeline that turns an applicant
// profile into a document checklist or cover letter: source fetching,
// similar-case retrieval, prompt composition, model generation and response
// repair.
package generation

import "errors"

var (
	// ErrValidation covers bad input rejected before any network work.
	ErrValidation = errors.New("invalid request")
	// ErrGeneration covers model failures that survived the retry, and
	// model output that could not be repaired into a usable artifact.
	ErrGeneration = errors.New("generation failed")
)

// Kind selects which artifact the pipeline produces.
type Kind string

const (
	KindChecklist   Kind = "checklist"
	KindCoverLetter Kind = "cover_letter"
)

// Request is the applicant profile plus pipeline controls. UseRAG defaults
// to true and Temperature to the configured default when omitted.
type Request struct {
	Nationality        string   `json:"nationality"`
	DestinationCountry string   `json:"destination_country"`
	VisaType           string   `json:"visa_type"`
	TargetURLs         []string `json:"target_urls,omitempty"`
	Occupation         string   `json:"occupation,omitempty"`
	TravelPurpose      string   `json:"travel_purpose,omitempty"`
	UseRAG             *bool    `json:"use_rag,omitempty"`
	ForceRefresh       bool     `json:"force_refresh,omitempty"`
	Temperature        *float32 `json:"temperature,omitempty"`
}

func (r Request) useRAG() bool {
	return r.UseRAG == nil || *r.UseRAG
}

type ChecklistItem struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Mandatory   bool   `json:"mandatory"`
}

type Checklist struct {
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items"`
}

type LetterSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type CoverLetter struct {
	Title    string          `json:"title"`
	Sections []LetterSection `json:"sections"`
}

// Artifact is the generated output. Exactly one of Checklist or CoverLetter
// is set, matching Kind.
type Artifact struct {
	Kind        Kind         `json:"kind"`
	Checklist   *Checklist   `json:"checklist,omitempty"`
	CoverLetter *CoverLetter `json:"cover_letter,omitempty"`
}

type Metadata struct {
	SourcesUsed      []string `json:"sources_used"`
	CacheHit         bool     `json:"cache_hit"`
	SimilarCasesUsed int      `json:"similar_cases_used"`
}

type Response struct {
	Success      bool      `json:"success"`
	Artifact     *Artifact `json:"artifact,omitempty"`
	Metadata     Metadata  `json:"metadata"`
	Warnings     []string  `json:"warnings,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}
