package features

// PartialProviders mirrors Providers with per-field presence.
type PartialProviders struct {
	PT        Source[int]  `json:"pt"`
	Physician Source[int]  `json:"physician"`
	Chiro     Source[int]  `json:"chiro"`
	ER        Source[bool] `json:"er"`
}

// PartialBooleans mirrors Booleans with per-field presence.
type PartialBooleans struct {
	RearEnded               Source[bool] `json:"rear_ended"`
	NoWarningSigns          Source[bool] `json:"no_warning_signs"`
	AdmissionOfFault        Source[bool] `json:"admission_of_fault"`
	PoliceReportPresent     Source[bool] `json:"police_report_present"`
	DefendantIdentified     Source[bool] `json:"defendant_identified"`
	WitnessPresent          Source[bool] `json:"witness_present"`
	ImagingOrdered          Source[bool] `json:"imaging_ordered"`
	ImagingCompleted        Source[bool] `json:"imaging_completed"`
	NeurologicSymptoms      Source[bool] `json:"neurologic_symptoms"`
	OtherInsurerContacted   Source[bool] `json:"other_insurer_contacted"`
	IsPedestrianOrBicyclist Source[bool] `json:"is_pedestrian_or_bicyclist"`
	InCrosswalk             Source[bool] `json:"in_crosswalk"`
	HelmetWorn              Source[bool] `json:"helmet_worn"`
	IsRideshare             Source[bool] `json:"is_rideshare"`
	IsCommercialVehicle     Source[bool] `json:"is_commercial_vehicle"`
	HitAndRun               Source[bool] `json:"hit_and_run"`
	DUIOtherDriver          Source[bool] `json:"dui_other_driver"`
	UMUIMApplicable         Source[bool] `json:"um_uim_applicable"`
	AirbagDeployed          Source[bool] `json:"airbag_deployed"`
}

// PartialNumbers mirrors Numbers with per-field presence.
type PartialNumbers struct {
	PeakPain                   Source[int] `json:"peak_pain_0_10"`
	FirstTreatmentLatencyHours Source[int] `json:"first_treatment_latency_hours"`
	MissedWorkDays             Source[int] `json:"missed_work_days"`
}

// PartialStrings mirrors Strings with per-field presence.
type PartialStrings struct {
	InjurySites          Source[[]string]       `json:"injury_sites"`
	IncidentDateISO      Source[string]         `json:"incident_date_iso"`
	RelativeTimeMentions Source[[]string]       `json:"relative_time_mentions"`
	ClientAutoCarrier    Source[string]         `json:"client_auto_carrier"`
	ClientHealthCarrier  Source[string]         `json:"client_health_carrier"`
	PropertyDamage       Source[PropertyDamage] `json:"property_damage"`
}

// Partial is the language-model extractor's output. Any field may be
// Absent, in which case the heuristic value is used during Merge. The zero
// value is an empty Partial.
type Partial struct {
	CaseType      Source[CaseType]            `json:"case_type"`
	Providers     PartialProviders            `json:"providers"`
	Booleans      PartialBooleans             `json:"booleans"`
	Numbers       PartialNumbers              `json:"numbers"`
	Strings       PartialStrings              `json:"strings"`
	Uncertain     Source[[]string]            `json:"uncertain"`
	Evidence      Source[map[string]Evidence] `json:"evidence"`
	AdmissionMeta Source[AdmissionMeta]       `json:"admission_meta"`
}

// IsEmpty reports whether no field is present.
func (p Partial) IsEmpty() bool {
	return !p.CaseType.Present() &&
		p.Providers == (PartialProviders{}) &&
		p.Booleans == (PartialBooleans{}) &&
		p.Numbers == (PartialNumbers{}) &&
		!p.Strings.InjurySites.Present() &&
		!p.Strings.IncidentDateISO.Present() &&
		!p.Strings.RelativeTimeMentions.Present() &&
		!p.Strings.ClientAutoCarrier.Present() &&
		!p.Strings.ClientHealthCarrier.Present() &&
		!p.Strings.PropertyDamage.Present() &&
		!p.Uncertain.Present() &&
		!p.Evidence.Present() &&
		!p.AdmissionMeta.Present()
}
