// Package features defines the case feature record extracted from an intake
// transcript, the partial record produced by the language-model extractor,
// and the pure merge that reconciles the two.
package features

import (
	"strings"
)

// CaseType is the incident category that selects a scoring weight profile.
type CaseType string

const (
	MVARearEnd          CaseType = "MVA_REAR_END"
	MVALeftTurn         CaseType = "MVA_LEFT_TURN"
	MVATBone            CaseType = "MVA_T_BONE"
	MVASideswipe        CaseType = "MVA_SIDESWIPE"
	PremisesWetFloor    CaseType = "PREMISES_WET_FLOOR"
	PremisesIceSnow     CaseType = "PREMISES_ICE_SNOW"
	PremisesTripHazard  CaseType = "PREMISES_TRIP_HAZARD"
	DogBite             CaseType = "DOG_BITE"
	PedestrianOrBicycle CaseType = "PEDESTRIAN_OR_BICYCLE"
	RideshareMVA        CaseType = "RIDESHARE_MVA"
	Other               CaseType = "OTHER"
)

// CaseTypes lists every case type in declaration order.
var CaseTypes = []CaseType{
	MVARearEnd, MVALeftTurn, MVATBone, MVASideswipe,
	PremisesWetFloor, PremisesIceSnow, PremisesTripHazard,
	DogBite, PedestrianOrBicycle, RideshareMVA, Other,
}

// ParseCaseType returns the matching case type, or Other for anything unknown.
func ParseCaseType(s string) CaseType {
	for _, ct := range CaseTypes {
		if string(ct) == s {
			return ct
		}
	}
	return Other
}

// IsPremises reports whether the case type is a premises-liability variant.
func (c CaseType) IsPremises() bool {
	return c == PremisesWetFloor || c == PremisesIceSnow || c == PremisesTripHazard
}

// PropertyDamage grades vehicle or property damage.
type PropertyDamage string

const (
	DamageNone     PropertyDamage = "none"
	DamageMinor    PropertyDamage = "minor"
	DamageModerate PropertyDamage = "moderate"
	DamageSevere   PropertyDamage = "severe"
)

// ParsePropertyDamage returns the matching grade, or DamageNone.
func ParsePropertyDamage(s string) PropertyDamage {
	switch PropertyDamage(s) {
	case DamageMinor, DamageModerate, DamageSevere:
		return PropertyDamage(s)
	}
	return DamageNone
}

// Attribution says who a statement of fault is attributed to.
type Attribution string

const (
	AttributionSelf      Attribution = "self"
	AttributionOther     Attribution = "other"
	AttributionAmbiguous Attribution = "ambiguous"
)

// ParseAttribution returns the matching attribution, or AttributionAmbiguous.
func ParseAttribution(s string) Attribution {
	switch Attribution(s) {
	case AttributionSelf, AttributionOther:
		return Attribution(s)
	}
	return AttributionAmbiguous
}

// Rationale classifies the kind of statement behind a fault attribution.
type Rationale string

const (
	RationaleDirectAdmission Rationale = "direct_admission"
	RationaleNegligentAct    Rationale = "negligent_act"
	RationaleThirdPartyClaim Rationale = "third_party_claim"
	RationaleAmbiguous       Rationale = "ambiguous"
)

// ParseRationale returns the matching rationale, or RationaleAmbiguous.
func ParseRationale(s string) Rationale {
	switch Rationale(s) {
	case RationaleDirectAdmission, RationaleNegligentAct, RationaleThirdPartyClaim:
		return Rationale(s)
	}
	return RationaleAmbiguous
}

// AdmissionMeta carries the structured reasoning behind admission_of_fault.
type AdmissionMeta struct {
	Attribution Attribution `json:"attribution"`
	Rationale   Rationale   `json:"rationale"`
	Evidence    string      `json:"evidence"`
}

// Admits reports whether the metadata satisfies the admission gate: the
// caller attributes fault to themselves, the rationale is a direct admission
// or a negligent act, and a non-empty quote backs it up. Third-party claims
// and ambiguous phrasing never pass.
func (m AdmissionMeta) Admits() bool {
	if m.Attribution != AttributionSelf {
		return false
	}
	if m.Rationale != RationaleDirectAdmission && m.Rationale != RationaleNegligentAct {
		return false
	}
	return strings.TrimSpace(m.Evidence) != ""
}

// Evidence is a short verbatim quote justifying a sensitive flag.
type Evidence struct {
	Quote string `json:"quote"`
}

// Providers counts treatment providers mentioned by the caller.
type Providers struct {
	PT        int  `json:"pt"`
	Physician int  `json:"physician"`
	Chiro     int  `json:"chiro"`
	ER        bool `json:"er"`
}

// Booleans holds the yes/no signals.
type Booleans struct {
	RearEnded               bool `json:"rear_ended"`
	NoWarningSigns          bool `json:"no_warning_signs"`
	AdmissionOfFault        bool `json:"admission_of_fault"`
	PoliceReportPresent     bool `json:"police_report_present"`
	DefendantIdentified     bool `json:"defendant_identified"`
	WitnessPresent          bool `json:"witness_present"`
	ImagingOrdered          bool `json:"imaging_ordered"`
	ImagingCompleted        bool `json:"imaging_completed"`
	NeurologicSymptoms      bool `json:"neurologic_symptoms"`
	OtherInsurerContacted   bool `json:"other_insurer_contacted"`
	IsPedestrianOrBicyclist bool `json:"is_pedestrian_or_bicyclist"`
	InCrosswalk             bool `json:"in_crosswalk"`
	HelmetWorn              bool `json:"helmet_worn"`
	IsRideshare             bool `json:"is_rideshare"`
	IsCommercialVehicle     bool `json:"is_commercial_vehicle"`
	HitAndRun               bool `json:"hit_and_run"`
	DUIOtherDriver          bool `json:"dui_other_driver"`
	UMUIMApplicable         bool `json:"um_uim_applicable"`
	AirbagDeployed          bool `json:"airbag_deployed"`
}

// Numbers holds the numeric signals. Nil pointers mean "not mentioned".
type Numbers struct {
	PeakPain                   int  `json:"peak_pain_0_10"`
	FirstTreatmentLatencyHours *int `json:"first_treatment_latency_hours"`
	MissedWorkDays             *int `json:"missed_work_days"`
}

// Strings holds the free-text signals.
type Strings struct {
	InjurySites          []string       `json:"injury_sites"`
	IncidentDateISO      *string        `json:"incident_date_iso"`
	RelativeTimeMentions []string       `json:"relative_time_mentions"`
	ClientAutoCarrier    *string        `json:"client_auto_carrier"`
	ClientHealthCarrier  *string        `json:"client_health_carrier"`
	PropertyDamage       PropertyDamage `json:"property_damage"`
}

// CaseFeatures is the complete extracted-fact record for one transcript.
type CaseFeatures struct {
	CaseType      CaseType            `json:"case_type"`
	Providers     Providers           `json:"providers"`
	Booleans      Booleans            `json:"booleans"`
	Numbers       Numbers             `json:"numbers"`
	Strings       Strings             `json:"strings"`
	Uncertain     []string            `json:"uncertain"`
	Evidence      map[string]Evidence `json:"evidence"`
	AdmissionMeta AdmissionMeta       `json:"admission_meta"`
}

// Range limits applied at extraction time.
const (
	MaxPain           = 10
	MaxProviderCount  = 12
	MaxLatencyHours   = 24 * 60
	MaxMissedWorkDays = 365
)

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Empty returns a zero-signal record with every collection initialised.
func Empty() CaseFeatures {
	return CaseFeatures{
		CaseType: Other,
		Strings: Strings{
			InjurySites:          []string{},
			RelativeTimeMentions: []string{},
			PropertyDamage:       DamageNone,
		},
		Uncertain: []string{},
		Evidence:  map[string]Evidence{},
		AdmissionMeta: AdmissionMeta{
			Attribution: AttributionAmbiguous,
			Rationale:   RationaleAmbiguous,
		},
	}
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
