package intake

import (
	"regexp"
	"strings"
)

// Canonical clarification questions.
const (
	AskDateOfBirth         = "What is the date of birth?"
	AskEstimatedValue      = "What is the estimated case value?"
	AskEmail               = "What is the client's email address?"
	AskPhone               = "What is the client's phone number?"
	AskIncidentDate        = "What is the date of the incident?"
	AskIncidentDescription = "What happened in the incident?"
	AskInsuranceProvider   = "What is the insurance provider?"
	AskPolicyNumber        = "What is the insurance policy number?"
	AskEmployer            = "What is the client's employer?"
	AskClientName          = "What is the client's full name?"
	AskInjuries            = "What injuries were sustained?"
	AskTreatment           = "What medical treatment was received?"
	AskPainLevel           = "What is the pain level (0-10)?"
	AskDaysMissed          = "How many days of work were missed?"
	AskLocation            = "Where did the incident occur?"
)

type clarificationRule struct {
	pattern *regexp.Regexp
	exact   string
	canon   string
}

// Order matters: the first matching rule wins.
var clarificationRules = []clarificationRule{
	{regexp.MustCompile(`\b(date of birth|dob|date_of_birth)\b`), "dob", AskDateOfBirth},
	{regexp.MustCompile(`\bestimat(ed|e)?( case)? value\b`), "estimated_value", AskEstimatedValue},
	{regexp.MustCompile(`\b(email|e-mail)\b`), "email", AskEmail},
	{regexp.MustCompile(`\b(phone|phone number|telephone)\b`), "", AskPhone},
	{regexp.MustCompile(`\b(incident date|date of incident|accident date)\b`), "incident_date", AskIncidentDate},
	{regexp.MustCompile(`\b(incident description|what happened|description of incident)\b`), "incident_description", AskIncidentDescription},
	{regexp.MustCompile(`\b(insurance provider|insurance company)\b`), "", AskInsuranceProvider},
	{regexp.MustCompile(`\b(insurance policy|policy number)\b`), "", AskPolicyNumber},
	{regexp.MustCompile(`\b(employer|employer name|workplace)\b`), "", AskEmployer},
	{nil, "client_name", AskClientName},
	{regexp.MustCompile(`\b(injuries|injury|injured)\b`), "", AskInjuries},
	{regexp.MustCompile(`\b(treatment|doctor|hospital|medical provider)\b`), "", AskTreatment},
	{regexp.MustCompile(`\b(pain level|pain scale|pain)\b`), "", AskPainLevel},
	{regexp.MustCompile(`\b(days missed|work days|time off)\b`), "", AskDaysMissed},
	{regexp.MustCompile(`\b(location|where|incident location)\b`), "", AskLocation},
}

var (
	clarificationTrailing = regexp.MustCompile(`[,.;!?]+$`)
	clarificationSpaces   = regexp.MustCompile(`\s+`)
)

// CanonicalizeClarification maps one clarification to its canonical
// question. Unrecognised items come back lowercased, trimmed and with
// trailing punctuation removed.
func CanonicalizeClarification(item string) string {
	normalized := strings.ToLower(strings.TrimSpace(item))
	normalized = clarificationTrailing.ReplaceAllString(normalized, "")
	normalized = clarificationSpaces.ReplaceAllString(normalized, " ")
	if normalized == "" {
		return ""
	}

	for _, rule := range clarificationRules {
		if rule.exact != "" && normalized == rule.exact {
			return rule.canon
		}
		if rule.pattern != nil && rule.pattern.MatchString(normalized) {
			return rule.canon
		}
	}
	return normalized
}

// CanonicalizeClarifications canonicalises each item, drops blanks and
// removes duplicates, keeping first-occurrence order. The result is never
// nil.
func CanonicalizeClarifications(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		c := CanonicalizeClarification(item)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
