package scoring

import (
	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

// DefaultWeightsVersion identifies the built-in weight table.
const DefaultWeightsVersion = "builtin-v1"

// Weights is the flat table of point values, thresholds and time
// constants used by Score. Values are copied, never mutated in place.
type Weights struct {
	// Liability
	RearEnded         int `toml:"rear_ended" json:"rear_ended"`
	SlipFallNoSign    int `toml:"slipfall_no_sign" json:"slipfall_no_sign"`
	SlipFallStore     int `toml:"slipfall_store" json:"slipfall_store"`
	AdmissionOfFault  int `toml:"admission_of_fault" json:"admission_of_fault"`
	PoliceReport      int `toml:"police_report" json:"police_report"`
	DefendantLocation int `toml:"defendant_location" json:"defendant_location"`
	WitnessPresent    int `toml:"witness_present" json:"witness_present"`

	// Treatment
	ERSameDay        int `toml:"er_same_day" json:"er_same_day"`
	PhysicianPoints  int `toml:"physician_points" json:"physician_points"`
	PhysicianCap     int `toml:"physician_cap" json:"physician_cap"`
	ChiroPoints      int `toml:"chiro_points" json:"chiro_points"`
	ChiroCap         int `toml:"chiro_cap" json:"chiro_cap"`
	PTPoints         int `toml:"pt_points" json:"pt_points"`
	PTCap            int `toml:"pt_cap" json:"pt_cap"`
	PainCap          int `toml:"pain_cap" json:"pain_cap"`
	WorkCap          int `toml:"work_cap" json:"work_cap"`
	PromptTreatment  int `toml:"prompt_treatment" json:"prompt_treatment"`
	Treatment72h     int `toml:"treatment_72h" json:"treatment_72h"`
	DelayedTreatment int `toml:"delayed_treatment" json:"delayed_treatment"`

	// Modifiers
	Imaging              int `toml:"imaging" json:"imaging"`
	Neurologic           int `toml:"neurologic" json:"neurologic"`
	InsuranceNoted       int `toml:"insurance_noted" json:"insurance_noted"`
	InsurerContact       int `toml:"insurer_contact" json:"insurer_contact"`
	MinorDamage          int `toml:"minor_damage" json:"minor_damage"`
	PreExisting          int `toml:"pre_existing" json:"pre_existing"`
	PreExistingDifferent int `toml:"pre_existing_different" json:"pre_existing_different"`

	// Case type
	PedestrianOrBicyclist int `toml:"pedestrian_or_bicyclist" json:"pedestrian_or_bicyclist"`
	CrosswalkBonus        int `toml:"crosswalk_bonus" json:"crosswalk_bonus"`
	NoHelmetPenalty       int `toml:"no_helmet_penalty" json:"no_helmet_penalty"`
	Rideshare             int `toml:"rideshare" json:"rideshare"`
	CommercialVehicle     int `toml:"commercial_vehicle" json:"commercial_vehicle"`
	HitAndRun             int `toml:"hit_and_run" json:"hit_and_run"`
	DUIOtherDriver        int `toml:"dui_other_driver" json:"dui_other_driver"`
	UMUIMApplicable       int `toml:"um_uim_applicable" json:"um_uim_applicable"`
	AirbagDeployed        int `toml:"airbag_deployed" json:"airbag_deployed"`
	SevereDamageBonus     int `toml:"severe_damage_bonus" json:"severe_damage_bonus"`

	// Recency
	Recent30d      int `toml:"recent_30d" json:"recent_30d"`
	Recent180d     int `toml:"recent_180d" json:"recent_180d"`
	OldIncident    int `toml:"old_incident" json:"old_incident"`
	RecentRelative int `toml:"recent_relative" json:"recent_relative"`

	// Time constants
	ERWithinHours      int `toml:"er_within_hours" json:"er_within_hours"`
	Treatment72hHours  int `toml:"treatment_72h_hours" json:"treatment_72h_hours"`
	Recent30dDays      int `toml:"recent_30d_days" json:"recent_30d_days"`
	Recent180dDays     int `toml:"recent_180d_days" json:"recent_180d_days"`
	OldIncidentDays    int `toml:"old_incident_days" json:"old_incident_days"`
	RecentRelativeDays int `toml:"recent_relative_days" json:"recent_relative_days"`

	// Bounds and decision thresholds
	MinScore         int `toml:"min_score" json:"min_score"`
	MaxScore         int `toml:"max_score" json:"max_score"`
	AcceptThreshold  int `toml:"accept_threshold" json:"accept_threshold"`
	DeclineThreshold int `toml:"decline_threshold" json:"decline_threshold"`
	ReviewNudgeMin   int `toml:"review_nudge_min" json:"review_nudge_min"`
	ReviewNudgeMax   int `toml:"review_nudge_max" json:"review_nudge_max"`
}

// Base is the built-in weight table shared by every case type.
var Base = Weights{
	RearEnded:         30,
	SlipFallNoSign:    25,
	SlipFallStore:     15,
	AdmissionOfFault:  -30,
	PoliceReport:      6,
	DefendantLocation: 4,
	WitnessPresent:    2,

	ERSameDay:        15,
	PhysicianPoints:  6,
	PhysicianCap:     12,
	ChiroPoints:      3,
	ChiroCap:         3,
	PTPoints:         3,
	PTCap:            6,
	PainCap:          10,
	WorkCap:          10,
	PromptTreatment:  5,
	Treatment72h:     2,
	DelayedTreatment: -5,

	Imaging:              3,
	Neurologic:           2,
	InsuranceNoted:       3,
	InsurerContact:       2,
	MinorDamage:          -4,
	PreExisting:          -6,
	PreExistingDifferent: -3,

	PedestrianOrBicyclist: 6,
	CrosswalkBonus:        4,
	NoHelmetPenalty:       -2,
	Rideshare:             5,
	CommercialVehicle:     6,
	HitAndRun:             -6,
	DUIOtherDriver:        4,
	UMUIMApplicable:       4,
	AirbagDeployed:        3,
	SevereDamageBonus:     3,

	Recent30d:      5,
	Recent180d:     3,
	OldIncident:    -10,
	RecentRelative: 5,

	ERWithinHours:      24,
	Treatment72hHours:  72,
	Recent30dDays:      30,
	Recent180dDays:     180,
	OldIncidentDays:    365,
	RecentRelativeDays: 14,

	MinScore:         1,
	MaxScore:         100,
	AcceptThreshold:  70,
	DeclineThreshold: 40,
	ReviewNudgeMin:   30,
	ReviewNudgeMax:   40,
}

// Profile overrides selected point weights for one case type. Nil fields
// keep the base value.
type Profile struct {
	RearEnded             *int `toml:"rear_ended" json:"rear_ended,omitempty"`
	SlipFallNoSign        *int `toml:"slipfall_no_sign" json:"slipfall_no_sign,omitempty"`
	SlipFallStore         *int `toml:"slipfall_store" json:"slipfall_store,omitempty"`
	AdmissionOfFault      *int `toml:"admission_of_fault" json:"admission_of_fault,omitempty"`
	PoliceReport          *int `toml:"police_report" json:"police_report,omitempty"`
	DefendantLocation     *int `toml:"defendant_location" json:"defendant_location,omitempty"`
	WitnessPresent        *int `toml:"witness_present" json:"witness_present,omitempty"`
	ERSameDay             *int `toml:"er_same_day" json:"er_same_day,omitempty"`
	Imaging               *int `toml:"imaging" json:"imaging,omitempty"`
	Neurologic            *int `toml:"neurologic" json:"neurologic,omitempty"`
	MinorDamage           *int `toml:"minor_damage" json:"minor_damage,omitempty"`
	PedestrianOrBicyclist *int `toml:"pedestrian_or_bicyclist" json:"pedestrian_or_bicyclist,omitempty"`
	Rideshare             *int `toml:"rideshare" json:"rideshare,omitempty"`
	CommercialVehicle     *int `toml:"commercial_vehicle" json:"commercial_vehicle,omitempty"`
	SevereDamageBonus     *int `toml:"severe_damage_bonus" json:"severe_damage_bonus,omitempty"`
}

func ptr(n int) *int { return &n }

var (
	mvaProfile = Profile{
		PoliceReport: ptr(8),
		MinorDamage:  ptr(-4),
	}
	premisesProfile = Profile{
		SlipFallNoSign:    ptr(30),
		DefendantLocation: ptr(6),
		MinorDamage:       ptr(0),
	}
)

// Profiles holds the built-in per-case-type overrides. OTHER has none.
var Profiles = map[features.CaseType]Profile{
	features.MVARearEnd: {
		RearEnded:    ptr(35),
		PoliceReport: ptr(8),
		MinorDamage:  ptr(-4),
	},
	features.MVALeftTurn:        mvaProfile,
	features.MVATBone:           mvaProfile,
	features.MVASideswipe:       mvaProfile,
	features.PremisesWetFloor:   premisesProfile,
	features.PremisesIceSnow:    premisesProfile,
	features.PremisesTripHazard: premisesProfile,
	features.DogBite: {
		MinorDamage:    ptr(0),
		WitnessPresent: ptr(4),
	},
	features.PedestrianOrBicycle: {
		PoliceReport:          ptr(8),
		MinorDamage:           ptr(0),
		PedestrianOrBicyclist: ptr(6),
	},
	features.RideshareMVA: {
		PoliceReport: ptr(8),
		MinorDamage:  ptr(-4),
		Rideshare:    ptr(5),
	},
}

// ProfileFor returns the built-in profile for ct, or an empty profile.
func ProfileFor(ct features.CaseType) Profile {
	return Profiles[ct]
}

// With returns a copy of w with every non-nil field of p applied.
func (w Weights) With(p Profile) Weights {
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&w.RearEnded, p.RearEnded)
	set(&w.SlipFallNoSign, p.SlipFallNoSign)
	set(&w.SlipFallStore, p.SlipFallStore)
	set(&w.AdmissionOfFault, p.AdmissionOfFault)
	set(&w.PoliceReport, p.PoliceReport)
	set(&w.DefendantLocation, p.DefendantLocation)
	set(&w.WitnessPresent, p.WitnessPresent)
	set(&w.ERSameDay, p.ERSameDay)
	set(&w.Imaging, p.Imaging)
	set(&w.Neurologic, p.Neurologic)
	set(&w.MinorDamage, p.MinorDamage)
	set(&w.PedestrianOrBicyclist, p.PedestrianOrBicyclist)
	set(&w.Rideshare, p.Rideshare)
	set(&w.CommercialVehicle, p.CommercialVehicle)
	set(&w.SevereDamageBonus, p.SevereDamageBonus)
	return w
}

// Table is a base weight table plus its case-type profiles.
type Table struct {
	Version  string
	Base     Weights
	Profiles map[features.CaseType]Profile
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	return &Table{
		Version:  DefaultWeightsVersion,
		Base:     Base,
		Profiles: Profiles,
	}
}

// For returns the active weights for ct.
func (t *Table) For(ct features.CaseType) Weights {
	return t.Base.With(t.Profiles[ct])
}
