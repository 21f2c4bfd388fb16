package intake

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/intaketriage/internal/dates"
	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

var (
	spokenAt       = regexp.MustCompile(`\s+at\s+`)
	spokenDot      = regexp.MustCompile(`\s+dot\s+`)
	spaceAroundAt  = regexp.MustCompile(`\s*@\s*`)
	spaceAroundDot = regexp.MustCompile(`\s*\.\s*`)
	trailingPunct  = regexp.MustCompile(`[,.;]+$`)
	repeatedDots   = regexp.MustCompile(`\.{2,}`)
	providerSplit  = regexp.MustCompile(`\s*,\s*|\s+and\s+`)
	digitsOnly     = regexp.MustCompile(`^\d+$`)
)

// NormalizeEmail turns a transcribed email ("jane dot doe at gmail dot com")
// into address form.
func NormalizeEmail(s string) string {
	out := strings.ToLower(strings.TrimSpace(s))
	if out == "" {
		return ""
	}
	out = spokenAt.ReplaceAllString(out, "@")
	out = spokenDot.ReplaceAllString(out, ".")
	out = spaceAroundAt.ReplaceAllString(out, "@")
	out = spaceAroundDot.ReplaceAllString(out, ".")
	out = trailingPunct.ReplaceAllString(out, "")
	return repeatedDots.ReplaceAllString(out, ".")
}

// ParseProviders splits a comma or "and" separated provider list, dropping
// blanks and duplicates while keeping first-seen order.
func ParseProviders(s string) []string {
	var out []string
	for _, p := range providerSplit.Split(strings.TrimSpace(s), -1) {
		out = appendUnique(out, strings.TrimSpace(p))
	}
	return out
}

// ProvidersString joins providers for display.
func ProvidersString(providers []string) string {
	kept := make([]string, 0, len(providers))
	for _, p := range providers {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// NormalizeDate returns s as YYYY-MM-DD when it parses, otherwise s
// unchanged.
func NormalizeDate(s string) string {
	if t, ok := dates.ParseMaybeISO(s); ok {
		return t.Format(dates.ISODate)
	}
	return s
}

// ParseCount parses a non-negative integer typed or transcribed as digits.
func ParseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !digitsOnly.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Normalize returns a copy of d with the display normalisers applied:
// trimmed text, address-form email, ISO dates where parseable, deduplicated
// providers and pain clamped to 0-10.
func Normalize(d Draft) Draft {
	out := d
	out.ClientName = strings.TrimSpace(d.ClientName)
	out.PhoneNumber = strings.TrimSpace(d.PhoneNumber)
	out.Email = NormalizeEmail(d.Email)
	out.DateOfBirth = NormalizeDate(strings.TrimSpace(d.DateOfBirth))
	out.IncidentDate = NormalizeDate(strings.TrimSpace(d.IncidentDate))
	out.InsuranceProvider = strings.TrimSpace(d.InsuranceProvider)
	out.InsurancePolicyNumber = strings.TrimSpace(d.InsurancePolicyNumber)
	out.Employer = strings.TrimSpace(d.Employer)

	var providers []string
	for _, p := range d.TreatmentProviders {
		providers = appendUnique(providers, strings.TrimSpace(p))
	}
	out.TreatmentProviders = providers

	if d.PainLevel != nil {
		out.PainLevel = features.IntPtr(features.Clamp(*d.PainLevel, 0, features.MaxPain))
	}
	if d.DaysMissedWork != nil && *d.DaysMissedWork < 0 {
		out.DaysMissedWork = features.IntPtr(0)
	}
	out.ClarificationNeeded = CanonicalizeClarifications(d.ClarificationNeeded)
	return out
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
