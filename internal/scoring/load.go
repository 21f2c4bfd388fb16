package scoring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

// ErrInvalidWeights is returned when a weights file fails to parse or
// describes an inconsistent table.
var ErrInvalidWeights = errors.New("invalid weights")

type weightsFile struct {
	Version  string             `toml:"version"`
	Base     Weights            `toml:"base"`
	Profiles map[string]Profile `toml:"profiles"`
}

// LoadWeightsFile reads a TOML override file on top of the built-in table.
// Keys absent from [base] keep their built-in values. Each
// [profiles.<CASE_TYPE>] section overlays the built-in profile field by
// field. An empty path returns DefaultTable.
//
//	version = "firm-2024-10"
//
//	[base]
//	accept_threshold = 72
//
//	[profiles.DOG_BITE]
//	witness_present = 5
func LoadWeightsFile(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights file: %w", err)
	}
	t, err := ParseWeights(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseWeights decodes TOML weight overrides. See LoadWeightsFile.
func ParseWeights(data string) (*Table, error) {
	file := weightsFile{Base: Base}
	md, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidWeights, strings.Join(keys, ", "))
	}

	profiles := make(map[features.CaseType]Profile, len(Profiles))
	for ct, p := range Profiles {
		profiles[ct] = p
	}
	for name, over := range file.Profiles {
		ct := features.CaseType(name)
		if features.ParseCaseType(name) != ct {
			return nil, fmt.Errorf("%w: unknown case type %q", ErrInvalidWeights, name)
		}
		profiles[ct] = profiles[ct].overlay(over)
	}

	t := &Table{
		Version:  file.Version,
		Base:     file.Base,
		Profiles: profiles,
	}
	if t.Version == "" {
		t.Version = "custom"
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that bounds and thresholds are ordered sensibly.
func (t *Table) Validate() error {
	w := t.Base
	var errs []error
	if w.MinScore > w.MaxScore {
		errs = append(errs, fmt.Errorf("min_score %d exceeds max_score %d", w.MinScore, w.MaxScore))
	}
	if w.DeclineThreshold > w.AcceptThreshold {
		errs = append(errs, fmt.Errorf("decline_threshold %d exceeds accept_threshold %d", w.DeclineThreshold, w.AcceptThreshold))
	}
	if w.ReviewNudgeMin > w.ReviewNudgeMax {
		errs = append(errs, fmt.Errorf("review_nudge_min %d exceeds review_nudge_max %d", w.ReviewNudgeMin, w.ReviewNudgeMax))
	}
	for name, v := range map[string]int{
		"physician_cap":        w.PhysicianCap,
		"chiro_cap":            w.ChiroCap,
		"pt_cap":               w.PTCap,
		"pain_cap":             w.PainCap,
		"work_cap":             w.WorkCap,
		"er_within_hours":      w.ERWithinHours,
		"treatment_72h_hours":  w.Treatment72hHours,
		"recent_relative_days": w.RecentRelativeDays,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidWeights, errors.Join(errs...))
	}
	return nil
}

func (p Profile) overlay(over Profile) Profile {
	pick := func(base, o *int) *int {
		if o != nil {
			return o
		}
		return base
	}
	return Profile{
		RearEnded:             pick(p.RearEnded, over.RearEnded),
		SlipFallNoSign:        pick(p.SlipFallNoSign, over.SlipFallNoSign),
		SlipFallStore:         pick(p.SlipFallStore, over.SlipFallStore),
		AdmissionOfFault:      pick(p.AdmissionOfFault, over.AdmissionOfFault),
		PoliceReport:          pick(p.PoliceReport, over.PoliceReport),
		DefendantLocation:     pick(p.DefendantLocation, over.DefendantLocation),
		WitnessPresent:        pick(p.WitnessPresent, over.WitnessPresent),
		ERSameDay:             pick(p.ERSameDay, over.ERSameDay),
		Imaging:               pick(p.Imaging, over.Imaging),
		Neurologic:            pick(p.Neurologic, over.Neurologic),
		MinorDamage:           pick(p.MinorDamage, over.MinorDamage),
		PedestrianOrBicyclist: pick(p.PedestrianOrBicyclist, over.PedestrianOrBicyclist),
		Rideshare:             pick(p.Rideshare, over.Rideshare),
		CommercialVehicle:     pick(p.CommercialVehicle, over.CommercialVehicle),
		SevereDamageBonus:     pick(p.SevereDamageBonus, over.SevereDamageBonus),
	}
}
