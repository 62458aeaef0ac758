package types

// SupportLevel classifies how well a claim span is backed by the retrieved
// passages.
type SupportLevel string

const (
	SupportExact   SupportLevel = "exact"
	SupportPartial SupportLevel = "partial"
	SupportNone    SupportLevel = "none"
)

// ClaimSpan is one sentence-level claim extracted from a draft answer.
type ClaimSpan struct {
	Text    string       `json:"text"`
	Start   int          `json:"start"`
	End     int          `json:"end"`
	Support SupportLevel `json:"support"`
}

// VerdictClass is the overall classification of a validation pass.
type VerdictClass string

const (
	VerdictSupported          VerdictClass = "supported"
	VerdictPartiallySupported VerdictClass = "partially_supported"
	VerdictUnsupported        VerdictClass = "unsupported"
)

// ValidationVerdict is the result of checking a draft answer against its
// context. Flagged lists the claim spans that lacked support.
type ValidationVerdict struct {
	Classification VerdictClass `json:"classification"`
	Flagged        []ClaimSpan  `json:"flagged,omitempty"`
	Confidence     float64      `json:"confidence"`
}

// DraftAnswer is a single generation attempt: the generated text with
// citation markers, the passages supplied as context, and the attempt
// counter the orchestrator uses to enforce the retry budget.
//
// Invariant: every ref in Citations appears in Passages.
type DraftAnswer struct {
	Text      string     `json:"text"`
	Citations []ChunkRef `json:"citations"`
	Passages  []Passage  `json:"passages"`
	Attempt   int        `json:"attempt"`
}

// Outcome is the terminal state of the corrective loop.
type Outcome string

const (
	OutcomeAccepted   Outcome = "accepted"
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeEmpty marks the retrieval-empty short circuit: no passages,
	// no generator call.
	OutcomeEmpty Outcome = "retrieval_empty"
)

// Citation is one source reference in a final answer.
type Citation struct {
	Ref     ChunkRef `json:"ref"`
	Page    int      `json:"page"`
	Excerpt string   `json:"excerpt"`
	Score   float64  `json:"score"`
}

// Answer is the single result shape returned to the caller.
type Answer struct {
	Text           string     `json:"text"`
	Citations      []Citation `json:"citations"`
	ConversationID string     `json:"conversation_id"`
	Grounded       bool       `json:"grounded"`
	Attempts       int        `json:"attempts"`
	Outcome        Outcome    `json:"outcome"`
}
