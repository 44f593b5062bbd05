package analysis

// Severity buckets a condition for display.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Condition struct {
	Name        string   `json:"name"`
	Likelihood  string   `json:"probability"` // free-form, e.g. "75%"
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Result is the canonical analysis shape. The JSON keys match the schema the
// gateway instructs the model to produce, so a well-formed completion decodes
// directly into it.
type Result struct {
	Conditions        []Condition `json:"conditions"`
	Prescriptions     []string    `json:"prescriptions"`
	OTCMedications    []string    `json:"otc_medications"`
	HomeRemedies      []string    `json:"home_remedies"`
	FollowUpQuestions []string    `json:"questions"`
	Timeline          string      `json:"timeline"`
	EstimatedCost     string      `json:"cost"`
}

// Normalize ensures the conditions list is never empty. A result the model
// produced without conditions gets a single placeholder
// pointing the user at a professional.
func (r *Result) Normalize() {
	if len(r.Conditions) == 0 {
		r.Conditions = []Condition{{
			Name:        "Unable to Determine Condition",
			Likelihood:  "N/A",
			Description: "The analysis could not identify a likely condition. Please consult a healthcare professional.",
			Severity:    SeverityMedium,
		}}
	}
}
