// Package scoring turns merged case features and the intake draft into a
// 1-100 triage score, an ACCEPT/REVIEW/DECLINE decision and the reasons
// behind it.
//
// Score is a pure function: the same Input always yields the same Result.
// Weights are chosen per case type by overlaying a Profile on the base
// table.
package scoring

import (
	"time"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
	"github.com/fyrsmithlabs/intaketriage/internal/intake"
)

// Decision is the terminal triage outcome.
type Decision string

const (
	Accept  Decision = "ACCEPT"
	Review  Decision = "REVIEW"
	Decline Decision = "DECLINE"
)

// BreakdownItem records one rule's contribution, in evaluation order.
type BreakdownItem struct {
	Factor string `json:"factor"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// ProviderCounts is the provider summary carried in the trace.
type ProviderCounts struct {
	Physicians    int `json:"physicians"`
	Chiropractors int `json:"chiropractors"`
	PT            int `json:"pt"`
}

// Trace exposes the intermediate signals behind a score.
type Trace struct {
	RearEnded         bool `json:"rear_ended"`
	NoWarningSigns    bool `json:"no_warning_signs"`
	SlipAndFall       bool `json:"slip_and_fall"`
	AdmissionOfFault  bool `json:"admission_of_fault"`
	PoliceReport      bool `json:"police_report"`
	DefendantLocation bool `json:"defendant_location"`

	ERSameDay        bool           `json:"er_same_day"`
	Providers        ProviderCounts `json:"providers"`
	MaxPain          *int           `json:"max_pain"`
	DaysMissedWork   *int           `json:"days_missed_work"`
	TreatmentLatency *int           `json:"treatment_latency_hours"`

	InsuranceNoted       bool `json:"insurance_noted"`
	InsurerContact       bool `json:"insurer_contact"`
	PreExistingCondition bool `json:"pre_existing_condition"`
	MinorPropertyDamage  bool `json:"minor_property_damage"`

	EffectiveIncidentDate string `json:"effective_incident_date,omitempty"`
	DaysSinceIncident     *int   `json:"days_since_incident"`
	RecentIncident        bool   `json:"recent_incident"`
	OldIncident           bool   `json:"old_incident"`

	CaseType       features.CaseType   `json:"case_type"`
	WeightsVersion string              `json:"weights_version"`
	Provenance     features.Provenance `json:"provenance,omitempty"`
}

// Input is everything Score reads.
type Input struct {
	Features     features.CaseFeatures
	Provenance   features.Provenance
	Intake       intake.Draft
	Transcript   string
	IncidentDate string
	Now          time.Time
}

// Result is the scored case.
type Result struct {
	ID             string                 `json:"id,omitempty"`
	Score          int                    `json:"score"`
	Decision       Decision               `json:"decision"`
	Nudged         bool                   `json:"nudged,omitempty"`
	Reasons        []string               `json:"reasons"`
	Clarifications []string               `json:"clarifications"`
	Breakdown      []BreakdownItem        `json:"breakdown"`
	Trace          Trace                  `json:"trace"`
	ScoringVersion string                 `json:"scoring_version,omitempty"`
	Features       *features.CaseFeatures `json:"features,omitempty"`
}
