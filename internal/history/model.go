package history

import (
	"github.com/SymptomAI/symptom-ai/internal/analysis"
)

// Entry is one recorded search: the submitted text, the short time of
// submission, and the analysis it produced. Repeat submissions of the same
// text on the same day stay separate entries; the detailed history is an
// audit trail, not a shortcut list.
type Entry struct {
	ID             string          `json:"id"`
	Symptoms       string          `json:"symptoms"`
	Timestamp      string          `json:"timestamp"`
	ConditionNames []string        `json:"conditionNames"`
	Analysis       analysis.Result `json:"analysisData"`
}

// DayGroup buckets entries by calendar day, most-recent-first within the
// group. Date uniquely identifies a group.
type DayGroup struct {
	Date     string  `json:"date"`
	Searches []Entry `json:"searches"`
}
