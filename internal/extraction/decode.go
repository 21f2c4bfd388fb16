package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/intaketriage/internal/dates"
	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

// Array caps applied to free-text lists from the model.
const (
	injurySitesLimit   = 8
	injurySitesItemMax = 30
	relativeTimeLimit  = 6
	relativeTimeMax    = 32
	uncertainLimit     = 10
	uncertainItemMax   = 40
	evidenceQuoteMax   = 80
)

// looseBool accepts true or "true"; anything else is false.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	*b = looseBool(s == "true" || s == `"true"`)
	return nil
}

// looseNumber accepts a number or a numeric string. Null, empty strings,
// and anything non-numeric leave it unset.
type looseNumber struct {
	set bool
	v   float64
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	*n = looseNumber{}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		*n = looseNumber{set: true, v: v}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*n = looseNumber{set: true, v: f}
		}
	}
	return nil
}

// clamped rounds and bounds the number. ok is false when unset.
func (n looseNumber) clamped(lo, hi int) (int, bool) {
	if !n.set || math.IsNaN(n.v) {
		return 0, false
	}
	f := math.Max(float64(lo), math.Min(float64(hi), n.v))
	return int(math.Round(f)), true
}

// looseString accepts only JSON strings, trimmed; blanks and other types
// are unset.
type looseString struct {
	set bool
	v   string
}

func (s *looseString) UnmarshalJSON(data []byte) error {
	*s = looseString{}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if str, ok := raw.(string); ok {
		if t := strings.TrimSpace(str); t != "" {
			*s = looseString{set: true, v: t}
		}
	}
	return nil
}

// looseStrings accepts an array and keeps only non-blank string items.
type looseStrings []string

func (l *looseStrings) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	for _, item := range raw {
		if s, ok := item.(string); ok {
			*l = append(*l, s)
		}
	}
	return nil
}

// capped trims items, drops blanks, truncates each to itemMax runes, and
// stops at limit entries. The result is never nil.
func (l looseStrings) capped(limit, itemMax int) []string {
	out := []string{}
	for _, s := range l {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, truncate(s, itemMax))
		if len(out) >= limit {
			break
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type wireEvidence struct {
	Quote looseString `json:"quote"`
}

type wireProviders struct {
	PT               looseNumber `json:"pt"`
	Physician        looseNumber `json:"physician"`
	Chiro            looseNumber `json:"chiro"`
	ER               looseBool   `json:"er"`
	ImagingOrdered   looseBool   `json:"imaging_ordered"`
	ImagingCompleted looseBool   `json:"imaging_completed"`
}

// wireResponse is the flat shape requested by ResponseSchema.
type wireResponse struct {
	CaseType                   looseString     `json:"case_type"`
	RearEnded                  looseBool       `json:"rear_ended"`
	NoWarningSigns             looseBool       `json:"no_warning_signs"`
	AdmissionOfFault           looseBool       `json:"admission_of_fault"`
	PoliceReportPresent        looseBool       `json:"police_report_present"`
	DefendantIdentified        looseBool       `json:"defendant_identified"`
	WitnessPresent             looseBool       `json:"witness_present"`
	InjurySites                looseStrings    `json:"injury_sites"`
	PeakPain                   looseNumber     `json:"peak_pain_0_10"`
	FirstTreatmentLatencyHours looseNumber     `json:"first_treatment_latency_hours"`
	Providers                  wireProviders   `json:"providers"`
	MissedWorkDays             looseNumber     `json:"missed_work_days"`
	NeurologicSymptoms         looseBool       `json:"neurologic_symptoms"`
	IncidentDateISO            looseString     `json:"incident_date_iso"`
	RelativeTimeMentions       looseStrings    `json:"relative_time_mentions"`
	ClientAutoCarrier          looseString     `json:"client_auto_carrier"`
	ClientHealthCarrier        looseString     `json:"client_health_carrier"`
	PropertyDamage             looseString     `json:"property_damage"`
	OtherInsurerContacted      looseBool       `json:"other_insurer_contacted"`
	IsPedestrianOrBicyclist    looseBool       `json:"is_pedestrian_or_bicyclist"`
	InCrosswalk                looseBool       `json:"in_crosswalk"`
	HelmetWorn                 looseBool       `json:"helmet_worn"`
	IsRideshare                looseBool       `json:"is_rideshare"`
	IsCommercialVehicle        looseBool       `json:"is_commercial_vehicle"`
	HitAndRun                  looseBool       `json:"hit_and_run"`
	DUIOtherDriver             looseBool       `json:"dui_other_driver"`
	UMUIMApplicable            looseBool       `json:"um_uim_applicable"`
	AirbagDeployed             looseBool       `json:"airbag_deployed"`
	Uncertain                  looseStrings    `json:"uncertain"`
	Evidence                   json.RawMessage `json:"evidence"`
	AdmissionAttribution       looseString     `json:"admission_attribution"`
	AdmissionRationale         looseString     `json:"admission_rationale"`
	AdmissionEvidence          looseString     `json:"admission_evidence"`
}

var codeFence = regexp.MustCompile("(?i)^```(?:json)?\\s*|```\\s*$")

// stripCodeFences removes a leading ```json or ``` fence and a trailing ```.
func stripCodeFences(s string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(strings.TrimSpace(s), ""))
}

// DecodeResponse turns raw model output into a partial feature record.
//
// Field types are coerced rather than trusted: numbers are clamped, enums
// fall back to their safe default, and string lists are capped. Only output
// that is not a JSON object at all yields an error wrapping ErrDecode. The
// model's own admission_of_fault value is discarded and recomputed from the
// admission metadata.
func DecodeResponse(raw []byte) (features.Partial, error) {
	content := stripCodeFences(string(raw))
	if content == "" {
		return features.Partial{}, fmt.Errorf("%w: empty content", ErrDecode)
	}

	if !strings.HasPrefix(content, "{") {
		return features.Partial{}, fmt.Errorf("%w: not a JSON object", ErrDecode)
	}
	var w wireResponse
	if err := json.Unmarshal([]byte(content), &w); err != nil {
		return features.Partial{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	meta := features.AdmissionMeta{
		Attribution: features.ParseAttribution(w.AdmissionAttribution.v),
		Rationale:   features.ParseRationale(w.AdmissionRationale.v),
		Evidence:    w.AdmissionEvidence.v,
	}

	p := features.Partial{
		CaseType: features.LLM(features.ParseCaseType(w.CaseType.v)),
		Providers: features.PartialProviders{
			PT:        features.LLM(count(w.Providers.PT)),
			Physician: features.LLM(count(w.Providers.Physician)),
			Chiro:     features.LLM(count(w.Providers.Chiro)),
			ER:        features.LLM(bool(w.Providers.ER)),
		},
		Booleans: features.PartialBooleans{
			RearEnded:               features.LLM(bool(w.RearEnded)),
			NoWarningSigns:          features.LLM(bool(w.NoWarningSigns)),
			AdmissionOfFault:        features.LLM(meta.Admits()),
			PoliceReportPresent:     features.LLM(bool(w.PoliceReportPresent)),
			DefendantIdentified:     features.LLM(bool(w.DefendantIdentified)),
			WitnessPresent:          features.LLM(bool(w.WitnessPresent)),
			ImagingOrdered:          features.LLM(bool(w.Providers.ImagingOrdered)),
			ImagingCompleted:        features.LLM(bool(w.Providers.ImagingCompleted)),
			NeurologicSymptoms:      features.LLM(bool(w.NeurologicSymptoms)),
			OtherInsurerContacted:   features.LLM(bool(w.OtherInsurerContacted)),
			IsPedestrianOrBicyclist: features.LLM(bool(w.IsPedestrianOrBicyclist)),
			InCrosswalk:             features.LLM(bool(w.InCrosswalk)),
			HelmetWorn:              features.LLM(bool(w.HelmetWorn)),
			IsRideshare:             features.LLM(bool(w.IsRideshare)),
			IsCommercialVehicle:     features.LLM(bool(w.IsCommercialVehicle)),
			HitAndRun:               features.LLM(bool(w.HitAndRun)),
			DUIOtherDriver:          features.LLM(bool(w.DUIOtherDriver)),
			UMUIMApplicable:         features.LLM(bool(w.UMUIMApplicable)),
			AirbagDeployed:          features.LLM(bool(w.AirbagDeployed)),
		},
		Numbers: features.PartialNumbers{
			PeakPain:                   features.LLM(orZero(w.PeakPain.clamped(0, features.MaxPain))),
			FirstTreatmentLatencyHours: optional(w.FirstTreatmentLatencyHours.clamped(0, features.MaxLatencyHours)),
			MissedWorkDays:             optional(w.MissedWorkDays.clamped(0, features.MaxMissedWorkDays)),
		},
		Strings: features.PartialStrings{
			InjurySites:          features.LLM(w.InjurySites.capped(injurySitesLimit, injurySitesItemMax)),
			RelativeTimeMentions: features.LLM(w.RelativeTimeMentions.capped(relativeTimeLimit, relativeTimeMax)),
			PropertyDamage:       features.LLM(features.ParsePropertyDamage(w.PropertyDamage.v)),
		},
		Uncertain:     features.LLM(w.Uncertain.capped(uncertainLimit, uncertainItemMax)),
		Evidence:      features.LLM(decodeEvidence(w.Evidence)),
		AdmissionMeta: features.LLM(meta),
	}

	if w.IncidentDateISO.set {
		if t, ok := dates.ParseMaybeISO(w.IncidentDateISO.v); ok {
			p.Strings.IncidentDateISO = features.LLM(t.Format(dates.ISODate))
		}
	}
	if w.ClientAutoCarrier.set {
		p.Strings.ClientAutoCarrier = features.LLM(w.ClientAutoCarrier.v)
	}
	if w.ClientHealthCarrier.set {
		p.Strings.ClientHealthCarrier = features.LLM(w.ClientHealthCarrier.v)
	}
	return p, nil
}

func count(n looseNumber) int {
	return orZero(n.clamped(0, features.MaxProviderCount))
}

func orZero(n int, _ bool) int { return n }

func optional(n int, ok bool) features.Source[int] {
	if !ok {
		return features.Source[int]{}
	}
	return features.LLM(n)
}

func decodeEvidence(data json.RawMessage) map[string]features.Evidence {
	out := map[string]features.Evidence{}
	var in map[string]json.RawMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return out
	}
	for k, raw := range in {
		var ev wireEvidence
		if err := json.Unmarshal(raw, &ev); err != nil || !ev.Quote.set {
			continue
		}
		out[k] = features.Evidence{Quote: truncate(ev.Quote.v, evidenceQuoteMax)}
	}
	return out
}
