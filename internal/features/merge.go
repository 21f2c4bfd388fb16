package features

// Provenance maps a dotted field path (for example "booleans.rear_ended") to
// the extractor whose value survived the merge.
type Provenance map[string]Origin

type merger struct {
	prov Provenance
}

func pick[T any](m *merger, path string, llm Source[T], heur T) T {
	out := Prefer(llm, Heuristic(heur))
	m.prov[path] = out.Origin()
	v, _ := out.Get()
	return v
}

func pickPtr[T any](m *merger, path string, llm Source[T], heur *T) *T {
	out := Prefer(llm, FromPtr(FromHeuristic, heur))
	m.prov[path] = out.Origin()
	return out.Ptr()
}

func or(m *merger, path string, llm Source[bool], heur bool) bool {
	out := AnyTrue(llm, Heuristic(heur))
	m.prov[path] = out.Origin()
	v, _ := out.Get()
	return v
}

// Merge reconciles the heuristic record with the language-model partial.
//
// Safety-relevant booleans (rear_ended, admission_of_fault,
// police_report_present, defendant_identified, witness_present) are OR'd so
// either extractor can raise them. Every other field takes the model value
// when present and the heuristic value otherwise. Merge is pure.
//
// admission_of_fault is only true alongside metadata that passes
// AdmissionMeta.Admits: when the flag came from the heuristic, its metadata
// replaces a non-admitting model value, and a flag no metadata supports is
// cleared.
func Merge(heur CaseFeatures, llm Partial) (CaseFeatures, Provenance) {
	m := &merger{prov: Provenance{}}
	hb, lb := heur.Booleans, llm.Booleans

	out := CaseFeatures{
		CaseType: pick(m, "case_type", llm.CaseType, heur.CaseType),
		Providers: Providers{
			PT:        pick(m, "providers.pt", llm.Providers.PT, heur.Providers.PT),
			Physician: pick(m, "providers.physician", llm.Providers.Physician, heur.Providers.Physician),
			Chiro:     pick(m, "providers.chiro", llm.Providers.Chiro, heur.Providers.Chiro),
			ER:        pick(m, "providers.er", llm.Providers.ER, heur.Providers.ER),
		},
		Booleans: Booleans{
			RearEnded:               or(m, "booleans.rear_ended", lb.RearEnded, hb.RearEnded),
			NoWarningSigns:          pick(m, "booleans.no_warning_signs", lb.NoWarningSigns, hb.NoWarningSigns),
			AdmissionOfFault:        or(m, "booleans.admission_of_fault", lb.AdmissionOfFault, hb.AdmissionOfFault),
			PoliceReportPresent:     or(m, "booleans.police_report_present", lb.PoliceReportPresent, hb.PoliceReportPresent),
			DefendantIdentified:     or(m, "booleans.defendant_identified", lb.DefendantIdentified, hb.DefendantIdentified),
			WitnessPresent:          or(m, "booleans.witness_present", lb.WitnessPresent, hb.WitnessPresent),
			ImagingOrdered:          pick(m, "booleans.imaging_ordered", lb.ImagingOrdered, hb.ImagingOrdered),
			ImagingCompleted:        pick(m, "booleans.imaging_completed", lb.ImagingCompleted, hb.ImagingCompleted),
			NeurologicSymptoms:      pick(m, "booleans.neurologic_symptoms", lb.NeurologicSymptoms, hb.NeurologicSymptoms),
			OtherInsurerContacted:   pick(m, "booleans.other_insurer_contacted", lb.OtherInsurerContacted, hb.OtherInsurerContacted),
			IsPedestrianOrBicyclist: pick(m, "booleans.is_pedestrian_or_bicyclist", lb.IsPedestrianOrBicyclist, hb.IsPedestrianOrBicyclist),
			InCrosswalk:             pick(m, "booleans.in_crosswalk", lb.InCrosswalk, hb.InCrosswalk),
			HelmetWorn:              pick(m, "booleans.helmet_worn", lb.HelmetWorn, hb.HelmetWorn),
			IsRideshare:             pick(m, "booleans.is_rideshare", lb.IsRideshare, hb.IsRideshare),
			IsCommercialVehicle:     pick(m, "booleans.is_commercial_vehicle", lb.IsCommercialVehicle, hb.IsCommercialVehicle),
			HitAndRun:               pick(m, "booleans.hit_and_run", lb.HitAndRun, hb.HitAndRun),
			DUIOtherDriver:          pick(m, "booleans.dui_other_driver", lb.DUIOtherDriver, hb.DUIOtherDriver),
			UMUIMApplicable:         pick(m, "booleans.um_uim_applicable", lb.UMUIMApplicable, hb.UMUIMApplicable),
			AirbagDeployed:          pick(m, "booleans.airbag_deployed", lb.AirbagDeployed, hb.AirbagDeployed),
		},
		Numbers: Numbers{
			PeakPain:                   pick(m, "numbers.peak_pain_0_10", llm.Numbers.PeakPain, heur.Numbers.PeakPain),
			FirstTreatmentLatencyHours: pickPtr(m, "numbers.first_treatment_latency_hours", llm.Numbers.FirstTreatmentLatencyHours, heur.Numbers.FirstTreatmentLatencyHours),
			MissedWorkDays:             pickPtr(m, "numbers.missed_work_days", llm.Numbers.MissedWorkDays, heur.Numbers.MissedWorkDays),
		},
		Strings: Strings{
			InjurySites:          pick(m, "strings.injury_sites", llm.Strings.InjurySites, heur.Strings.InjurySites),
			IncidentDateISO:      pickPtr(m, "strings.incident_date_iso", llm.Strings.IncidentDateISO, heur.Strings.IncidentDateISO),
			RelativeTimeMentions: pick(m, "strings.relative_time_mentions", llm.Strings.RelativeTimeMentions, heur.Strings.RelativeTimeMentions),
			ClientAutoCarrier:    pickPtr(m, "strings.client_auto_carrier", llm.Strings.ClientAutoCarrier, heur.Strings.ClientAutoCarrier),
			ClientHealthCarrier:  pickPtr(m, "strings.client_health_carrier", llm.Strings.ClientHealthCarrier, heur.Strings.ClientHealthCarrier),
			PropertyDamage:       pick(m, "strings.property_damage", llm.Strings.PropertyDamage, heur.Strings.PropertyDamage),
		},
		Uncertain:     pick(m, "uncertain", llm.Uncertain, heur.Uncertain),
		Evidence:      pick(m, "evidence", llm.Evidence, heur.Evidence),
		AdmissionMeta: pick(m, "admission_meta", llm.AdmissionMeta, heur.AdmissionMeta),
	}

	m.reconcileAdmission(&out, heur)

	if out.Strings.InjurySites == nil {
		out.Strings.InjurySites = []string{}
	}
	if out.Strings.RelativeTimeMentions == nil {
		out.Strings.RelativeTimeMentions = []string{}
	}
	if out.Uncertain == nil {
		out.Uncertain = []string{}
	}
	if out.Evidence == nil {
		out.Evidence = map[string]Evidence{}
	}
	return out, m.prov
}

func (m *merger) reconcileAdmission(out *CaseFeatures, heur CaseFeatures) {
	if !out.Booleans.AdmissionOfFault || out.AdmissionMeta.Admits() {
		return
	}
	if heur.Booleans.AdmissionOfFault && heur.AdmissionMeta.Admits() {
		out.AdmissionMeta = heur.AdmissionMeta
		m.prov["admission_meta"] = FromHeuristic
		m.prov["booleans.admission_of_fault"] = FromHeuristic
		return
	}
	out.Booleans.AdmissionOfFault = false
}

// HeuristicOnly wraps a heuristic record with a provenance map that credits
// every field to the heuristic extractor.
func HeuristicOnly(heur CaseFeatures) (CaseFeatures, Provenance) {
	return Merge(heur, Partial{})
}
