package features

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heuristicFixture() CaseFeatures {
	f := Empty()
	f.CaseType = MVARearEnd
	f.Providers = Providers{Physician: 1, ER: true}
	f.Booleans.RearEnded = true
	f.Booleans.PoliceReportPresent = true
	f.Numbers.PeakPain = 6
	f.Numbers.FirstTreatmentLatencyHours = IntPtr(0)
	f.Strings.PropertyDamage = DamageMinor
	return f
}

func TestMerge_EmptyPartialKeepsHeuristic(t *testing.T) {
	heur := heuristicFixture()

	got, prov := Merge(heur, Partial{})

	if diff := cmp.Diff(heur, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, FromHeuristic, prov["case_type"])
	assert.Equal(t, FromHeuristic, prov["numbers.first_treatment_latency_hours"])
	assert.Equal(t, Absent, prov["numbers.missed_work_days"])
}

func TestMerge_LLMOverridesNonSafetyFields(t *testing.T) {
	heur := heuristicFixture()
	llm := Partial{
		CaseType: LLM(MVALeftTurn),
		Numbers: PartialNumbers{
			PeakPain:       LLM(8),
			MissedWorkDays: LLM(3),
		},
		Strings: PartialStrings{
			PropertyDamage: LLM(DamageSevere),
			InjurySites:    LLM([]string{"neck"}),
		},
	}

	got, prov := Merge(heur, llm)

	assert.Equal(t, MVALeftTurn, got.CaseType)
	assert.Equal(t, 8, got.Numbers.PeakPain)
	require.NotNil(t, got.Numbers.MissedWorkDays)
	assert.Equal(t, 3, *got.Numbers.MissedWorkDays)
	assert.Equal(t, DamageSevere, got.Strings.PropertyDamage)
	assert.Equal(t, []string{"neck"}, got.Strings.InjurySites)
	assert.Equal(t, FromLLM, prov["case_type"])
	assert.Equal(t, FromLLM, prov["numbers.peak_pain_0_10"])

	// Heuristic values survive where the model said nothing.
	assert.Equal(t, 1, got.Providers.Physician)
	assert.True(t, got.Providers.ER)
}

func TestMerge_LLMFalseOverridesHeuristicTrueForNonSafety(t *testing.T) {
	heur := heuristicFixture()
	heur.Booleans.NeurologicSymptoms = true
	llm := Partial{Booleans: PartialBooleans{NeurologicSymptoms: LLM(false)}}

	got, _ := Merge(heur, llm)

	assert.False(t, got.Booleans.NeurologicSymptoms)
}

func TestMerge_SafetyBooleansAreOred(t *testing.T) {
	tests := []struct {
		name     string
		heur     bool
		llm      Source[bool]
		want     bool
		wantProv Origin
	}{
		{"heuristic true llm false", true, LLM(false), true, FromHeuristic},
		{"heuristic false llm true", false, LLM(true), true, FromLLM},
		{"both true", true, LLM(true), true, FromBoth},
		{"both false", false, LLM(false), false, FromLLM},
		{"llm absent", true, Source[bool]{}, true, FromHeuristic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			heur := Empty()
			heur.Booleans.RearEnded = tt.heur
			heur.Booleans.AdmissionOfFault = tt.heur
			heur.Booleans.PoliceReportPresent = tt.heur
			heur.Booleans.DefendantIdentified = tt.heur
			heur.Booleans.WitnessPresent = tt.heur
			if tt.heur {
				heur.AdmissionMeta = selfAdmission("my fault")
			}
			llm := Partial{Booleans: PartialBooleans{
				RearEnded:           tt.llm,
				AdmissionOfFault:    tt.llm,
				PoliceReportPresent: tt.llm,
				DefendantIdentified: tt.llm,
				WitnessPresent:      tt.llm,
			}}
			if v, _ := tt.llm.Get(); v {
				llm.AdmissionMeta = LLM(selfAdmission("ran the red light"))
			}

			got, prov := Merge(heur, llm)

			assert.Equal(t, tt.want, got.Booleans.RearEnded)
			assert.Equal(t, tt.want, got.Booleans.AdmissionOfFault)
			assert.Equal(t, tt.want, got.Booleans.PoliceReportPresent)
			assert.Equal(t, tt.want, got.Booleans.DefendantIdentified)
			assert.Equal(t, tt.want, got.Booleans.WitnessPresent)
			assert.Equal(t, tt.wantProv, prov["booleans.admission_of_fault"])
		})
	}
}

func TestMerge_UncertainAndEvidencePreferPresentLLMEvenWhenEmpty(t *testing.T) {
	heur := Empty()
	heur.Uncertain = []string{"dob"}
	heur.Evidence = map[string]Evidence{"rear_ended": {Quote: "hit from behind"}}
	llm := Partial{
		Uncertain: LLM([]string{}),
		Evidence:  LLM(map[string]Evidence{}),
	}

	got, _ := Merge(heur, llm)

	assert.Empty(t, got.Uncertain)
	assert.Empty(t, got.Evidence)
}

func TestMerge_AdmissionMeta(t *testing.T) {
	heur := Empty()
	meta := AdmissionMeta{Attribution: AttributionOther, Rationale: RationaleThirdPartyClaim}

	got, _ := Merge(heur, Partial{AdmissionMeta: LLM(meta)})
	assert.Equal(t, meta, got.AdmissionMeta)

	got, _ = Merge(heur, Partial{})
	assert.Equal(t, AttributionAmbiguous, got.AdmissionMeta.Attribution)
}

func selfAdmission(quote string) AdmissionMeta {
	return AdmissionMeta{Attribution: AttributionSelf, Rationale: RationaleDirectAdmission, Evidence: quote}
}

func TestMerge_AdmissionMetaFollowsFlag(t *testing.T) {
	thirdParty := AdmissionMeta{Attribution: AttributionOther, Rationale: RationaleThirdPartyClaim}

	tests := []struct {
		name         string
		heurFlag     bool
		heurMeta     AdmissionMeta
		llm          Partial
		wantFlag     bool
		wantMeta     AdmissionMeta
		wantMetaProv Origin
	}{
		{
			name:     "heuristic admission beats third-party model meta",
			heurFlag: true,
			heurMeta: selfAdmission("my fault"),
			llm: Partial{
				Booleans:      PartialBooleans{AdmissionOfFault: LLM(false)},
				AdmissionMeta: LLM(thirdParty),
			},
			wantFlag:     true,
			wantMeta:     selfAdmission("my fault"),
			wantMetaProv: FromHeuristic,
		},
		{
			name:     "model admission keeps model meta",
			heurFlag: true,
			heurMeta: selfAdmission("my fault"),
			llm: Partial{
				Booleans:      PartialBooleans{AdmissionOfFault: LLM(true)},
				AdmissionMeta: LLM(selfAdmission("ran the red light")),
			},
			wantFlag:     true,
			wantMeta:     selfAdmission("ran the red light"),
			wantMetaProv: FromLLM,
		},
		{
			name:     "flag without supporting meta is cleared",
			heurFlag: true,
			heurMeta: AdmissionMeta{Attribution: AttributionAmbiguous, Rationale: RationaleAmbiguous},
			llm: Partial{
				Booleans:      PartialBooleans{AdmissionOfFault: LLM(false)},
				AdmissionMeta: LLM(thirdParty),
			},
			wantFlag:     false,
			wantMeta:     thirdParty,
			wantMetaProv: FromLLM,
		},
		{
			name:     "unsupported model flag is cleared",
			heurMeta: AdmissionMeta{Attribution: AttributionAmbiguous, Rationale: RationaleAmbiguous},
			llm: Partial{
				Booleans:      PartialBooleans{AdmissionOfFault: LLM(true)},
				AdmissionMeta: LLM(thirdParty),
			},
			wantFlag:     false,
			wantMeta:     thirdParty,
			wantMetaProv: FromLLM,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			heur := Empty()
			heur.Booleans.AdmissionOfFault = tt.heurFlag
			heur.AdmissionMeta = tt.heurMeta

			got, prov := Merge(heur, tt.llm)

			assert.Equal(t, tt.wantFlag, got.Booleans.AdmissionOfFault)
			assert.Equal(t, tt.wantMeta, got.AdmissionMeta)
			assert.Equal(t, tt.wantMetaProv, prov["admission_meta"])
			if got.Booleans.AdmissionOfFault {
				assert.True(t, got.AdmissionMeta.Admits())
			}
		})
	}
}

func TestMerge_CollectionsNeverNil(t *testing.T) {
	got, _ := Merge(CaseFeatures{}, Partial{})

	assert.NotNil(t, got.Strings.InjurySites)
	assert.NotNil(t, got.Strings.RelativeTimeMentions)
	assert.NotNil(t, got.Uncertain)
	assert.NotNil(t, got.Evidence)
}

func TestMerge_IsPure(t *testing.T) {
	heur := heuristicFixture()
	llm := Partial{Numbers: PartialNumbers{PeakPain: LLM(9)}}

	a, pa := Merge(heur, llm)
	b, pb := Merge(heur, llm)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated Merge() differs:\n%s", diff)
	}
	assert.Equal(t, pa, pb)
	assert.Equal(t, 6, heur.Numbers.PeakPain, "input must not be mutated")
}

func TestSource_JSONRoundTrip(t *testing.T) {
	p := Partial{
		CaseType: LLM(DogBite),
		Numbers:  PartialNumbers{FirstTreatmentLatencyHours: LLM(48)},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"case_type":{"from":"llm","value":"DOG_BITE"}`)
	assert.Contains(t, string(data), `"missed_work_days":null`)

	var back Partial
	require.NoError(t, json.Unmarshal(data, &back))
	ct, ok := back.CaseType.Get()
	require.True(t, ok)
	assert.Equal(t, DogBite, ct)
	assert.False(t, back.Numbers.MissedWorkDays.Present())
	assert.Equal(t, FromLLM, back.Numbers.FirstTreatmentLatencyHours.Origin())
}

func TestPartial_IsEmpty(t *testing.T) {
	assert.True(t, Partial{}.IsEmpty())
	assert.False(t, Partial{Uncertain: LLM([]string{})}.IsEmpty())
	assert.False(t, Partial{Booleans: PartialBooleans{HitAndRun: LLM(false)}}.IsEmpty())
}

func TestAdmissionMeta_Admits(t *testing.T) {
	tests := []struct {
		name string
		meta AdmissionMeta
		want bool
	}{
		{"direct admission", AdmissionMeta{AttributionSelf, RationaleDirectAdmission, "it was my fault"}, true},
		{"negligent act", AdmissionMeta{AttributionSelf, RationaleNegligentAct, "I ran a red light"}, true},
		{"third party claim", AdmissionMeta{AttributionOther, RationaleThirdPartyClaim, "he said it was my fault"}, false},
		{"ambiguous", AdmissionMeta{AttributionAmbiguous, RationaleAmbiguous, "might have been my mistake"}, false},
		{"self without evidence", AdmissionMeta{AttributionSelf, RationaleDirectAdmission, "   "}, false},
		{"self with third party rationale", AdmissionMeta{AttributionSelf, RationaleThirdPartyClaim, "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.meta.Admits())
		})
	}
}

func TestParseEnums(t *testing.T) {
	assert.Equal(t, RideshareMVA, ParseCaseType("RIDESHARE_MVA"))
	assert.Equal(t, Other, ParseCaseType("MVA_HEAD_ON"))
	assert.Equal(t, DamageNone, ParsePropertyDamage("catastrophic"))
	assert.Equal(t, AttributionAmbiguous, ParseAttribution("them"))
	assert.Equal(t, RationaleAmbiguous, ParseRationale(""))
	assert.True(t, PremisesIceSnow.IsPremises())
	assert.False(t, DogBite.IsPremises())
}
