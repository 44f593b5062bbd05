package analysis

import "strings"

// fallbackResult builds the deterministic offline analysis. The static
// template is adjusted by independent keyword rules; each matched rule
// prepends its condition, so the rule checked last ends up first.
func fallbackResult(symptoms string) Result {
	r := Result{
		Conditions: []Condition{{
			Name:        "Possible Common Cold or Viral Infection",
			Likelihood:  "70%",
			Description: "Symptoms suggest a common cold or other viral infection. Rest and hydration are recommended.",
			Severity:    SeverityLow,
		}},
		Prescriptions:  []string{},
		OTCMedications: []string{"Decongestants", "Pain relievers (Acetaminophen or Ibuprofen)"},
		HomeRemedies:   []string{"Rest", "Hydration", "Warm tea with honey"},
		FollowUpQuestions: []string{
			"How long have you had these symptoms?",
			"Do you have a fever?",
		},
		Timeline:      "Expected recovery within 7-10 days",
		EstimatedCost: "Estimated cost of OTC medications: $10-20",
	}

	lower := strings.ToLower(symptoms)

	if strings.Contains(lower, "fever") {
		r.Conditions[0].Likelihood = "85%"
		r.Timeline = "Expected recovery within 7-10 days with fever management"
	}

	if strings.Contains(lower, "headache") {
		r.Conditions = append([]Condition{{
			Name:        "Tension Headache or Migraine",
			Likelihood:  "65%",
			Description: "Headaches can stem from tension, dehydration, or migraine. Monitor frequency and triggers.",
			Severity:    SeverityLow,
		}}, r.Conditions...)
	}

	if strings.Contains(lower, "stomach") {
		r.Conditions = append([]Condition{{
			Name:        "Gastroenteritis or Indigestion",
			Likelihood:  "60%",
			Description: "Stomach discomfort often indicates gastroenteritis or indigestion. Stay hydrated and eat bland foods.",
			Severity:    SeverityLow,
		}}, r.Conditions...)
	}

	return r
}
