package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

// Case-type term lists. The pedestrian and rideshare lists double as the
// is_pedestrian_or_bicyclist and is_rideshare flags.
var (
	pedestrianTerms = regexp.MustCompile(`(?i)\b(pedestrian|crosswalk|walking|on foot|bike|bicycle|cyclist|e-?bike|scooter|dooring|left cross|right hook)\b`)
	rideshareTerms  = regexp.MustCompile(`(?i)\b(Uber|Lyft|rideshare|TNC|driver mode|accepted a ride|passenger)\b`)
	rearEndedTerm   = regexp.MustCompile(`(?i)\brear[- ]?ended\b`)
	retailSlipFall  = regexp.MustCompile(`(?i)(?:slip|fell).*(?:puddle|spill|wet).*(?:store|market|grocery)`)
	dogBite         = regexp.MustCompile(`(?i)\bdog\b.*(?:bite|bit)`)
)

// Pain patterns run against the lowercased transcript.
const spelledOneToTen = `one|two|three|four|five|six|seven|eight|nine|ten`

var (
	painSlashDigit    = regexp.MustCompile(`\b(\d{1,2})\s*/\s*10\b`)
	painSlashSpelled  = regexp.MustCompile(`\b(` + spelledOneToTen + `)\s*/\s*10\b`)
	painOutOfDigit    = regexp.MustCompile(`\b(\d{1,2})\s*(?:out of|of)\s*10\b`)
	painOutOfSpelled  = regexp.MustCompile(`\b(` + spelledOneToTen + `)\s*(?:out of|of)\s*10\b`)
	painPeakDigit     = regexp.MustCompile(`\b(?:spikes to|up to|peaks to)\s+(?:an\s+)?(\d{1,2})\b`)
	painPeakSpelled   = regexp.MustCompile(`\b(?:spikes to|up to|peaks to)\s+(?:an\s+)?(` + spelledOneToTen + `)\b`)
	painGenericDigit  = regexp.MustCompile(`\b(?:pain|hurt|ache)[^.\d]{0,40}?(\d{1,2})\b`)
	painGenericSpoken = regexp.MustCompile(`\b(?:pain|hurt|ache)[^.]{0,40}?\b(` + spelledOneToTen + `)\b`)
)

// denominatorWindow is how far either side of a generic pain match is
// searched for a "/10" or "out of 10" expression.
const denominatorWindow = 20

var (
	latencyImmediate = regexp.MustCompile(`(?i)\b(immediately|same day|that day|that night|that evening|later that night)\b`)
	latencyRightAway = regexp.MustCompile(`(?i)\bright away\b`)
	latencyHours     = regexp.MustCompile(`(?i)\b(\d+)\s*hours?\s*later\b`)
	latencyDays      = regexp.MustCompile(`(?i)\b(\d+)\s*days?\s*later\b`)
	latencyAfterDays = regexp.MustCompile(`(?i)\bafter\s+(\d+)\s*days?\b`)
	latencyNextDay   = regexp.MustCompile(`(?i)\bnext day\b`)
)

var (
	physicianTerms = regexp.MustCompile(`(?i)\b(doctor|dr\.|specialist|physical therapy|physical therapist|rehab|PT|urgent care|clinic|orthopedic|ortho)\b`)
	chiroTerms     = regexp.MustCompile(`(?i)\b(chiro|chiropractic|chiropractor)\b`)
	ptTerms        = regexp.MustCompile(`(?i)(?:physical therapy|physical therapist|PT|rehab)`)
	erTerms        = regexp.MustCompile(`(?i)\b(ER|E\.R\.|emergency (room|dept)|hospital)\b`)
)

var (
	missedDigit   = regexp.MustCompile(`(?i)\bmiss(ed)?\s+(\d+)\s+days?\b`)
	missedSpelled = regexp.MustCompile(`(?i)\bmiss(ed)?\s+(` + spelledOneToTen + `)\s+days?\b`)
	missedHalfDay = regexp.MustCompile(`(?i)\bmiss(ed)?\s+half(?:\s*|-)?days?\b`)
)

var (
	// CaseNumberPattern matches police case numbers such as "24-1234-567".
	CaseNumberPattern = regexp.MustCompile(`\b\d{2}[- ]?\d{4}[- ]?\d+\b`)

	policeReport   = regexp.MustCompile(`(?i)\b(police|officer).*(?:report|case)\b`)
	streetAddress  = regexp.MustCompile(`(?i)\b\d{3,5}\s+\w+(\s+\w+)*\s+(St|Street|Ave|Avenue|Rd|Road|Blvd|Boulevard)\b`)
	businessWord   = regexp.MustCompile(`(?i)\b(Market|Grocery|Store|Shop|Restaurant|Hotel|Mall|Center|Plaza)\b`)
	properNamePair = regexp.MustCompile(`(?i)\b[A-Z][a-z]+ [A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	imagingTerms   = regexp.MustCompile(`(?i)(?:x-ray|x rays|ct|mri|imaging)`)
	neurologic     = regexp.MustCompile(`(?i)(?:tingling|numbness|radiating|pins and needles)`)
	admission      = regexp.MustCompile(`(?i)\b(?:my fault|i caused|i (?:ran a red|cut.*off|merged too (?:fast|quickly)))\b`)
	// reportedSpeech ends where someone other than the caller is quoted in
	// the same sentence.
	reportedSpeech  = regexp.MustCompile(`(?i)\b(?:he|she|they|driver|officer|cop|police|guy|man|woman|lady|witness|adjuster|someone|everyone)\s+(?:\w+\s+)?(?:said|says|claimed|claims|told|tells|blamed|insisted|yelled|kept saying|is saying|was saying)\b[^.!?]*$`)
	noWarningSign   = regexp.MustCompile(`(?i)(?:no (?:wet )?floor sign|no warning sign|no caution sign)`)
	witness         = regexp.MustCompile(`(?i)\b(?:witness|saw|observed|noticed)\b`)
	insurerContact  = regexp.MustCompile(`(?i)\b(?:insurer|insurance company).*called.*statement`)
	crosswalk       = regexp.MustCompile(`(?i)\b(crosswalk|walk signal|walked on green)\b`)
	helmet          = regexp.MustCompile(`(?i)\bhelmet\b`)
	helmetNegated   = regexp.MustCompile(`(?i)\b(no|without|wasn't|wasn't wearing).*helmet\b`)
	commercialTerms = regexp.MustCompile(`(?i)\b(semi|18[- ]?wheeler|tractor trailer|box truck|delivery van|bus)\b`)
	commercialFleet = regexp.MustCompile(`(?i)\b(UPS|FedEx|Amazon)\b`)
	hitAndRun       = regexp.MustCompile(`(?i)\b(hit and run|fled|left the scene|no plate|couldn't get plate)\b`)
	duiTerms        = regexp.MustCompile(`(?i)\b(DUI|DWI|intoxicated|drunk|arrested|breathalyzer)\b`)
	umUIMTerms      = regexp.MustCompile(`(?i)\b(uninsured|underinsured|UM/UIM|no insurance)\b`)
	airbag          = regexp.MustCompile(`(?i)\bairbag(s)? (went off|deployed)\b`)
)

// Damage tiers in ascending severity.
var damageTiers = []struct {
	grade   features.PropertyDamage
	pattern *regexp.Regexp
}{
	{features.DamageMinor, regexp.MustCompile(`(?i)(?:minor|scratched|taillights cracked)`)},
	{features.DamageModerate, regexp.MustCompile(`(?i)(?:moderate|significant|substantial)`)},
	{features.DamageSevere, regexp.MustCompile(`(?i)(?:severe|major|totaled|destroyed)`)},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims s and replaces each whitespace run with one space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// SpelledNumber converts "one".."ten" (any case) to its value.
func SpelledNumber(s string) (int, bool) {
	switch strings.ToLower(s) {
	case "one":
		return 1, true
	case "two":
		return 2, true
	case "three":
		return 3, true
	case "four":
		return 4, true
	case "five":
		return 5, true
	case "six":
		return 6, true
	case "seven":
		return 7, true
	case "eight":
		return 8, true
	case "nine":
		return 9, true
	case "ten":
		return 10, true
	}
	return 0, false
}

// HeuristicExtractor derives a complete feature record from a transcript
// using fixed regular expressions. It never performs I/O and never fails.
type HeuristicExtractor struct {
	sites *InjurySiteTagger
}

// NewHeuristicExtractor creates a heuristic extractor with the default
// injury-site vocabulary.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{sites: NewInjurySiteTagger(nil)}
}

// Extract returns the feature record for transcript. An empty transcript
// yields features.Empty().
func (h *HeuristicExtractor) Extract(transcript string) features.CaseFeatures {
	t := CollapseWhitespace(transcript)
	f := features.Empty()
	if t == "" {
		return f
	}

	f.CaseType = classifyCaseType(t)

	f.Providers = features.Providers{
		Physician: features.Clamp(len(physicianTerms.FindAllStringIndex(t, -1)), 0, features.MaxProviderCount),
		Chiro:     features.Clamp(len(chiroTerms.FindAllStringIndex(t, -1)), 0, features.MaxProviderCount),
		ER:        erTerms.MatchString(t),
	}
	if ptTerms.MatchString(t) {
		f.Providers.PT = 1
	}

	adm, reported := admissionPhrase(t)
	f.Booleans = features.Booleans{
		RearEnded:               rearEndedTerm.MatchString(t),
		NoWarningSigns:          noWarningSign.MatchString(t),
		AdmissionOfFault:        adm != "",
		PoliceReportPresent:     CaseNumberPattern.MatchString(t) || policeReport.MatchString(t),
		DefendantIdentified:     defendantIdentified(t),
		WitnessPresent:          witness.MatchString(t),
		ImagingOrdered:          imagingTerms.MatchString(t),
		ImagingCompleted:        false,
		NeurologicSymptoms:      neurologic.MatchString(t),
		OtherInsurerContacted:   insurerContact.MatchString(t),
		IsPedestrianOrBicyclist: pedestrianTerms.MatchString(t),
		InCrosswalk:             crosswalk.MatchString(t),
		HelmetWorn:              helmet.MatchString(t) && !helmetNegated.MatchString(t),
		IsRideshare:             rideshareTerms.MatchString(t),
		IsCommercialVehicle:     commercialTerms.MatchString(t) || commercialFleet.MatchString(t),
		HitAndRun:               hitAndRun.MatchString(t),
		DUIOtherDriver:          duiTerms.MatchString(t),
		UMUIMApplicable:         umUIMTerms.MatchString(t),
		AirbagDeployed:          airbag.MatchString(t),
	}
	switch {
	case adm != "":
		f.AdmissionMeta = features.AdmissionMeta{
			Attribution: features.AttributionSelf,
			Rationale:   features.RationaleDirectAdmission,
			Evidence:    adm,
		}
	case reported:
		f.AdmissionMeta = features.AdmissionMeta{
			Attribution: features.AttributionOther,
			Rationale:   features.RationaleThirdPartyClaim,
		}
	}

	f.Numbers = features.Numbers{
		PeakPain:                   features.Clamp(PeakPain(t), 0, features.MaxPain),
		FirstTreatmentLatencyHours: clampPtr(TreatmentLatencyHours(t), features.MaxLatencyHours),
		MissedWorkDays:             clampPtr(MissedWorkDays(t), features.MaxMissedWorkDays),
	}

	f.Strings.PropertyDamage = propertyDamage(t)
	f.Strings.InjurySites = h.sites.Tag(t)
	return f
}

// admissionPhrase returns the first admission phrase the caller states
// about themselves. reported is true when an admission phrase appeared only
// inside someone else's reported speech.
func admissionPhrase(t string) (phrase string, reported bool) {
	for _, loc := range admission.FindAllStringIndex(t, -1) {
		if reportedSpeech.MatchString(t[:loc[0]]) {
			reported = true
			continue
		}
		return t[loc[0]:loc[1]], reported
	}
	return "", reported
}

func classifyCaseType(t string) features.CaseType {
	switch {
	case pedestrianTerms.MatchString(t):
		return features.PedestrianOrBicycle
	case rideshareTerms.MatchString(t):
		return features.RideshareMVA
	case rearEndedTerm.MatchString(t):
		return features.MVARearEnd
	case retailSlipFall.MatchString(t):
		return features.PremisesWetFloor
	case dogBite.MatchString(t):
		return features.DogBite
	}
	return features.Other
}

// defendantIdentified is true for a street address, a business word, or two
// consecutive words that look like a name. The name test is case-insensitive
// and therefore matches most multi-word transcripts.
func defendantIdentified(t string) bool {
	return streetAddress.MatchString(t) || businessWord.MatchString(t) || properNamePair.MatchString(t)
}

// propertyDamage returns the most severe tier with a matching keyword.
func propertyDamage(t string) features.PropertyDamage {
	grade := features.DamageNone
	for _, tier := range damageTiers {
		if tier.pattern.MatchString(t) {
			grade = tier.grade
		}
	}
	return grade
}

// PeakPain returns the highest 0-10 pain rating mentioned in t, or 0.
//
// Explicit "n/10" and "n out of 10" forms always contribute their numerator.
// The generic "pain ... n" fallback ignores a 10 that sits within 20
// characters of a "/10" or "out of 10", since that 10 is a denominator.
func PeakPain(t string) int {
	lower := strings.ToLower(t)
	peak := 0
	consider := func(n int) {
		if n >= 0 && n <= features.MaxPain && n > peak {
			peak = n
		}
	}

	for _, re := range []*regexp.Regexp{painSlashDigit, painOutOfDigit, painPeakDigit} {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				consider(n)
			}
		}
	}
	for _, re := range []*regexp.Regexp{painSlashSpelled, painOutOfSpelled, painPeakSpelled} {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			if n, ok := SpelledNumber(m[1]); ok {
				consider(n)
			}
		}
	}

	for _, loc := range painGenericDigit.FindAllStringSubmatchIndex(lower, -1) {
		n, err := strconv.Atoi(lower[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		if n == 10 && nearDenominator(lower, loc[0], loc[1]) {
			continue
		}
		consider(n)
	}
	for _, loc := range painGenericSpoken.FindAllStringSubmatchIndex(lower, -1) {
		n, ok := SpelledNumber(lower[loc[2]:loc[3]])
		if !ok {
			continue
		}
		if n == 10 && nearDenominator(lower, loc[0], loc[1]) {
			continue
		}
		consider(n)
	}
	return peak
}

func nearDenominator(s string, start, end int) bool {
	lo := max(0, start-denominatorWindow)
	hi := min(len(s), end+denominatorWindow)
	window := s[lo:hi]
	return strings.Contains(window, "/10") || strings.Contains(window, "out of 10")
}

// TreatmentLatencyHours returns hours between the incident and first care,
// or nil when the transcript gives no indication.
func TreatmentLatencyHours(t string) *int {
	if latencyImmediate.MatchString(t) {
		return features.IntPtr(0)
	}
	if latencyRightAway.MatchString(t) && !strings.Contains(t, "but after") {
		return features.IntPtr(0)
	}
	if n, ok := firstInt(latencyHours, t); ok {
		return features.IntPtr(n)
	}
	if n, ok := firstInt(latencyDays, t); ok {
		return features.IntPtr(n * 24)
	}
	if n, ok := firstInt(latencyAfterDays, t); ok {
		return features.IntPtr(n * 24)
	}
	if latencyNextDay.MatchString(t) {
		return features.IntPtr(24)
	}
	return nil
}

// MissedWorkDays returns the number of work days missed, or nil.
func MissedWorkDays(t string) *int {
	if m := missedDigit.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			return features.IntPtr(n)
		}
	}
	if m := missedSpelled.FindStringSubmatch(t); m != nil {
		if n, ok := SpelledNumber(m[2]); ok {
			return features.IntPtr(n)
		}
	}
	if missedHalfDay.MatchString(t) {
		return features.IntPtr(1)
	}
	return nil
}

func firstInt(re *regexp.Regexp, t string) (int, bool) {
	m := re.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func clampPtr(p *int, hi int) *int {
	if p == nil {
		return nil
	}
	return features.IntPtr(features.Clamp(*p, 0, hi))
}
