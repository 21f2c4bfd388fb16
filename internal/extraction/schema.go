package extraction

import (
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

// SchemaName names the structured-output schema sent to providers.
const SchemaName = "CaseFeatures"

var (
	schemaOnce sync.Once
	schema     map[string]any
)

var schemaBooleans = []string{
	"rear_ended", "no_warning_signs", "admission_of_fault", "police_report_present",
	"defendant_identified", "witness_present", "neurologic_symptoms",
	"other_insurer_contacted", "is_pedestrian_or_bicyclist", "in_crosswalk",
	"helmet_worn", "is_rideshare", "is_commercial_vehicle", "hit_and_run",
	"dui_other_driver", "um_uim_applicable", "airbag_deployed",
}

// ResponseSchema returns the strict JSON schema every model response must
// satisfy. The map is built once and must not be modified.
func ResponseSchema() map[string]any {
	schemaOnce.Do(func() {
		caseTypes := make([]any, 0, len(features.CaseTypes))
		for _, ct := range features.CaseTypes {
			caseTypes = append(caseTypes, string(ct))
		}

		boolean := map[string]any{"type": "boolean"}
		strArray := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		nullableNumber := map[string]any{"type": []any{"number", "null"}}
		nullableString := map[string]any{"type": []any{"string", "null"}}
		count := map[string]any{"type": "number", "minimum": 0, "maximum": features.MaxProviderCount}

		props := map[string]any{
			"case_type":                     map[string]any{"type": "string", "enum": caseTypes},
			"injury_sites":                  strArray,
			"peak_pain_0_10":                map[string]any{"type": "number", "minimum": 0, "maximum": features.MaxPain},
			"first_treatment_latency_hours": nullableNumber,
			"providers": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pt":                count,
					"physician":         count,
					"chiro":             count,
					"er":                boolean,
					"imaging_ordered":   boolean,
					"imaging_completed": boolean,
				},
				"required":             []any{"pt", "physician", "chiro", "er", "imaging_ordered", "imaging_completed"},
				"additionalProperties": false,
			},
			"missed_work_days":       nullableNumber,
			"incident_date_iso":      nullableString,
			"relative_time_mentions": strArray,
			"client_auto_carrier":    nullableString,
			"client_health_carrier":  nullableString,
			"property_damage": map[string]any{
				"type": "string",
				"enum": []any{"none", "minor", "moderate", "severe"},
			},
			"uncertain": strArray,
			"evidence": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type":       "object",
					"properties": map[string]any{"quote": map[string]any{"type": "string"}},
					"required":   []any{"quote"},
				},
			},
			"admission_attribution": map[string]any{
				"type": "string",
				"enum": []any{"self", "other", "ambiguous"},
			},
			"admission_rationale": map[string]any{
				"type": "string",
				"enum": []any{"direct_admission", "negligent_act", "third_party_claim", "ambiguous"},
			},
			"admission_evidence":      nullableString,
			"admission_rules_version": map[string]any{"type": "string"},
		}
		for _, b := range schemaBooleans {
			props[b] = boolean
		}

		required := make([]any, 0, len(props))
		for _, k := range schemaKeyOrder() {
			required = append(required, k)
		}

		schema = map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		}
	})
	return schema
}

// schemaKeyOrder lists every top-level key in prompt order.
func schemaKeyOrder() []string {
	keys := []string{"case_type"}
	keys = append(keys, schemaBooleans[:6]...)
	keys = append(keys,
		"injury_sites", "peak_pain_0_10", "first_treatment_latency_hours", "providers",
		"missed_work_days",
	)
	keys = append(keys, schemaBooleans[6])
	keys = append(keys,
		"incident_date_iso", "relative_time_mentions", "client_auto_carrier",
		"client_health_carrier", "property_damage",
	)
	keys = append(keys, schemaBooleans[7:]...)
	keys = append(keys,
		"uncertain", "evidence", "admission_attribution", "admission_rationale",
		"admission_evidence", "admission_rules_version",
	)
	return keys
}

const systemPrompt = "You are extracting deterministic personal-injury case features. " +
	"Output strict JSON ONLY, matching the exact keys and types requested. Do not include any prose."

// userPrompt renders the extraction instructions for one transcript.
func userPrompt(canonical, anchorDateISO string) string {
	return fmt.Sprintf(`Extract every key in the schema from the transcript. All keys are required; use null when unknown.

- Resolve relative dates ("last Friday", "two weeks ago") in incident_date_iso against the anchor date %s.
- Booleans are true only when the caller states the fact. Never guess.
- evidence: short quotes (10-50 characters) keyed by feature name.
- admission_rules_version: always %q.

Admission rules:
admission_of_fault is true only if attribution=self AND rationale is direct_admission or negligent_act AND admission_evidence quotes the caller directly.
Third-party claims and ambiguous phrasing never count.

Positive examples:
1. "I ran the red light and hit the other car" -> attribution=self, rationale=direct_admission, evidence="ran the red light"
2. "I was speeding and caused the accident" -> attribution=self, rationale=negligent_act, evidence="was speeding and caused"

Negative examples:
1. "The other driver said it was my fault" -> attribution=other, rationale=third_party_claim, evidence=null
2. "It might have been my mistake" -> attribution=ambiguous, rationale=ambiguous, evidence=null

TRANSCRIPT:
%s

Return JSON only.`, anchorDateISO, ExtractionRulesVersion, canonical)
}
