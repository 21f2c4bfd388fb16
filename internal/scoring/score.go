package scoring

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/intaketriage/internal/dates"
	"github.com/fyrsmithlabs/intaketriage/internal/features"
	"github.com/fyrsmithlabs/intaketriage/internal/intake"
)

// IncidentYearClarification is added when the incident date cannot be
// resolved but a case number suggests a recent year.
const IncidentYearClarification = "incident_year"

var (
	storeWords      = regexp.MustCompile(`(?i)\b(store|market|grocery|shop|mall|plaza|supermarket)\b`)
	erWords         = regexp.MustCompile(`(?i)\b(ER|E\.R\.|emergency (room|dept)|hospital)\b`)
	insuranceWords  = regexp.MustCompile(`(?i)\b(policy|claim)\b`)
	carrierNames    = regexp.MustCompile(`(?i)(State Farm|Geico|Progressive|Allstate|Blue Cross|Kaiser|Aetna|United|PPO|HMO)`)
	preExisting     = regexp.MustCompile(`(?i)(slipped a disc|prior back)`)
	newPresentation = regexp.MustCompile(`(?i)(feels different|new pain)`)
	caseNumber      = regexp.MustCompile(`\b(\d{2})[- ]?\d{4}[- ]?\d+\b`)
	relativeRecent  = regexp.MustCompile(`(?i)\b(last (sunday|monday|tuesday|wednesday|thursday|friday|saturday)|two (sunday|monday|tuesday|wednesday|thursday|friday|saturday)s ago|last week)\b`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// tally accumulates the running score alongside reasons and breakdown.
type tally struct {
	score     int
	reasons   []string
	breakdown []BreakdownItem
}

// add records a scored factor. sign is the reason prefix: "+", "-" or "~".
func (t *tally) add(factor string, delta int, sign, reason string) {
	t.score += delta
	t.reasons = append(t.reasons, sign+" "+reason)
	t.breakdown = append(t.breakdown, BreakdownItem{Factor: factor, Delta: delta, Reason: reason})
}

// note records a reason that carries no points.
func (t *tally) note(sign, reason string) {
	t.reasons = append(t.reasons, sign+" "+reason)
}

// Score evaluates in against the built-in weight table.
func Score(in Input) Result {
	return DefaultTable().Score(in)
}

// Score evaluates in against t. A zero in.Now is replaced by the current
// time; callers that need reproducible results must set it.
func (t *Table) Score(in Input) Result {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	f := in.Features
	b := f.Booleans
	w := t.For(f.CaseType)
	text := whitespaceRuns.ReplaceAllString(in.Transcript, " ")

	var acc tally
	var clarifications []string
	trace := Trace{
		RearEnded:         b.RearEnded,
		NoWarningSigns:    b.NoWarningSigns,
		AdmissionOfFault:  b.AdmissionOfFault,
		PoliceReport:      b.PoliceReportPresent,
		DefendantLocation: b.DefendantIdentified,
		TreatmentLatency:  f.Numbers.FirstTreatmentLatencyHours,
		InsurerContact:    b.OtherInsurerContacted,
		CaseType:          f.CaseType,
		WeightsVersion:    t.Version,
		Provenance:        in.Provenance,
	}

	// Liability
	if b.RearEnded {
		acc.add("rear_ended", w.RearEnded, "+", "Clear liability: rear-ended")
	}
	if b.NoWarningSigns {
		acc.add("no_warning_signs", w.SlipFallNoSign, "+", "Hazard with no warning signs")
		trace.SlipAndFall = true
	}
	if f.CaseType.IsPremises() && storeWords.MatchString(text) {
		acc.add("slip_and_fall", w.SlipFallStore, "+", "Slip-and-fall in store")
		trace.SlipAndFall = true
	}
	if b.AdmissionOfFault {
		reason := "Admission of fault"
		if quote := f.Evidence["admission_of_fault"].Quote; quote != "" {
			reason = fmt.Sprintf("Admission of fault (%s)", quote)
		}
		acc.add("admission_of_fault", w.AdmissionOfFault, "-", reason)
	}
	if b.PoliceReportPresent {
		acc.add("police_report", w.PoliceReport, "+", "Police report present")
	}
	if b.DefendantIdentified {
		acc.add("defendant_location", w.DefendantLocation, "+", "Defendant/location identified")
	}
	if b.WitnessPresent {
		acc.add("witness_present", w.WitnessPresent, "+", "Witness present")
	}

	// Treatment
	latency := f.Numbers.FirstTreatmentLatencyHours
	erSameDay := (f.Providers.ER || erWords.MatchString(text)) && latency != nil && *latency <= w.ERWithinHours
	if erSameDay {
		acc.add("er_same_day", w.ERSameDay, "+", "Emergency care same day")
	}
	trace.ERSameDay = erSameDay

	scoreProviders(&acc, f.Providers, w)
	trace.Providers = ProviderCounts{
		Physicians:    f.Providers.Physician,
		Chiropractors: f.Providers.Chiro,
		PT:            f.Providers.PT,
	}

	// Intake values arrive unnormalised from direct callers.
	maxPain := features.Clamp(max(f.Numbers.PeakPain, in.Intake.PainOrZero()), 0, features.MaxPain)
	if maxPain > 0 {
		acc.add("pain_level", min(w.PainCap, maxPain), "+", fmt.Sprintf("Pain up to %d/10", maxPain))
		trace.MaxPain = features.IntPtr(maxPain)
	}

	daysMissed := f.Numbers.MissedWorkDays
	if daysMissed == nil {
		daysMissed = in.Intake.DaysMissedWork
	}
	if daysMissed != nil {
		daysMissed = features.IntPtr(features.Clamp(*daysMissed, 0, features.MaxMissedWorkDays))
		acc.add("missed_work", min(w.WorkCap, *daysMissed), "+", fmt.Sprintf("Missed %d days", *daysMissed))
		trace.DaysMissedWork = features.IntPtr(*daysMissed)
	}

	if latency != nil {
		switch {
		case *latency <= w.ERWithinHours:
			acc.add("prompt_treatment", w.PromptTreatment, "+", "Prompt treatment")
		case *latency <= w.Treatment72hHours:
			acc.add("treatment_72h", w.Treatment72h, "+", "Treatment within 72h")
		default:
			acc.add("delayed_treatment", w.DelayedTreatment, "-", "Delayed treatment (>72h)")
		}
	}

	// Modifiers
	if b.ImagingOrdered {
		acc.add("imaging", w.Imaging, "+", "Imaging ordered")
	}
	if b.NeurologicSymptoms {
		acc.add("neurologic", w.Neurologic, "+", "Neurologic symptoms")
	}
	if insuranceWords.MatchString(text) || carrierNames.MatchString(text) || strings.TrimSpace(in.Intake.InsuranceProvider) != "" {
		acc.add("insurance_noted", w.InsuranceNoted, "+", "Insurance noted")
		trace.InsuranceNoted = true
	}
	if b.OtherInsurerContacted {
		acc.add("insurer_contact", w.InsurerContact, "+", "Insurer contact")
	}
	if w.MinorDamage != 0 && f.Strings.PropertyDamage == features.DamageMinor {
		acc.add("minor_damage", w.MinorDamage, "-", "Minor property damage")
		trace.MinorPropertyDamage = true
	}
	if preExisting.MatchString(text) {
		if newPresentation.MatchString(text) {
			acc.add("pre_existing_different", w.PreExistingDifferent, "~", "Pre-existing noted, but different presentation")
		} else {
			acc.add("pre_existing", w.PreExisting, "-", "Pre-existing similar condition")
		}
		trace.PreExistingCondition = true
	}

	// Case type
	if b.IsPedestrianOrBicyclist {
		acc.add("pedestrian_or_bicyclist", w.PedestrianOrBicyclist, "+", "Pedestrian/bicyclist case")
	}
	if b.InCrosswalk {
		acc.add("crosswalk_bonus", w.CrosswalkBonus, "+", "In crosswalk")
	}
	if b.IsPedestrianOrBicyclist && !b.HelmetWorn {
		acc.add("no_helmet_penalty", w.NoHelmetPenalty, "-", "No helmet worn")
	}
	if b.IsRideshare {
		acc.add("rideshare", w.Rideshare, "+", "Rideshare case")
	}
	if b.IsCommercialVehicle {
		acc.add("commercial_vehicle", w.CommercialVehicle, "+", "Commercial vehicle")
	}
	if b.HitAndRun {
		acc.add("hit_and_run", w.HitAndRun, "-", "Hit and run")
	}
	if b.DUIOtherDriver {
		acc.add("dui_other_driver", w.DUIOtherDriver, "+", "Other driver DUI")
	}
	if b.UMUIMApplicable {
		acc.add("um_uim_applicable", w.UMUIMApplicable, "+", "UM/UIM applicable")
	}
	if b.AirbagDeployed {
		acc.add("airbag_deployed", w.AirbagDeployed, "+", "Airbag deployed")
	}
	if f.Strings.PropertyDamage == features.DamageSevere {
		acc.add("severe_damage_bonus", w.SevereDamageBonus, "+", "Severe property damage")
	}

	// Recency
	effective := EffectiveIncidentDate(f, in.IncidentDate, in.Intake)
	trace.EffectiveIncidentDate = effective
	if days, ok := dates.DaysSince(dates.NormalizeIncidentDate(effective, now), now); ok {
		trace.DaysSinceIncident = features.IntPtr(days)
		switch {
		case days <= w.Recent30dDays:
			acc.add("recent_30d", w.Recent30d, "+", "Recent incident (<30d)")
			trace.RecentIncident = true
		case days <= w.Recent180dDays:
			acc.add("recent_180d", w.Recent180d, "+", "Recent incident (<180d)")
		case days > w.OldIncidentDays:
			acc.add("old_incident", w.OldIncident, "-", "Old incident (>1yr)")
			trace.OldIncident = true
		}
	} else {
		if caseYearLikely(text, effective, now) {
			clarifications = append(clarifications, IncidentYearClarification)
		}
		acc.note("~", "Incident year unknown")
		if relativeRecent.MatchString(text) {
			acc.add("recent_relative", w.RecentRelative, "+", fmt.Sprintf("Recent incident (≤%dd)", w.RecentRelativeDays))
			trace.RecentIncident = true
		}
	}

	clarifications = append(clarifications, f.Uncertain...)

	score := features.Clamp(acc.score, w.MinScore, w.MaxScore)
	missingInfo := !in.Intake.HasDateOfBirth() || strings.TrimSpace(effective) == "" || !in.Intake.HasEstimatedValue()
	decided := Decide(score, w)
	decision := Nudge(decided, score, w, missingInfo)

	breakdown := acc.breakdown
	if breakdown == nil {
		breakdown = []BreakdownItem{}
	}
	return Result{
		Score:          score,
		Decision:       decision,
		Nudged:         decision != decided,
		Reasons:        dedupe(acc.reasons),
		Clarifications: intake.CanonicalizeClarifications(clarifications),
		Breakdown:      breakdown,
		Trace:          trace,
	}
}

func scoreProviders(acc *tally, p features.Providers, w Weights) {
	physician := min(p.Physician*w.PhysicianPoints, w.PhysicianCap)
	chiro := min(p.Chiro*w.ChiroPoints, w.ChiroCap)
	pt := min(p.PT*w.PTPoints, w.PTCap)
	if physician <= 0 && chiro <= 0 && pt <= 0 {
		return
	}

	var kinds []string
	if p.Physician > 0 {
		kinds = append(kinds, "physician")
	}
	if p.Chiro > 0 {
		kinds = append(kinds, "chiropractor")
	}
	if p.PT > 0 {
		kinds = append(kinds, "PT/rehab")
	}
	acc.add("providers", physician+chiro+pt, "+", "Multiple providers ("+strings.Join(kinds, ", ")+")")
}

// EffectiveIncidentDate picks the first non-blank of the extracted ISO date,
// the caller-supplied incident date and the intake incident date.
func EffectiveIncidentDate(f features.CaseFeatures, incidentDate string, d intake.Draft) string {
	if f.Strings.IncidentDateISO != nil && strings.TrimSpace(*f.Strings.IncidentDateISO) != "" {
		return *f.Strings.IncidentDateISO
	}
	if strings.TrimSpace(incidentDate) != "" {
		return incidentDate
	}
	return strings.TrimSpace(d.IncidentDate)
}

// caseYearLikely reports whether a case number in the transcript starts with
// a two-digit year within the last two years while the incident date itself
// names no century.
func caseYearLikely(text, effective string, now time.Time) bool {
	if strings.Contains(effective, "20") {
		return false
	}
	m := caseNumber.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	year, err := strconv.Atoi("20" + m[1])
	if err != nil {
		return false
	}
	current := now.UTC().Year()
	return year <= current && year >= current-2
}

func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, s := range items {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
