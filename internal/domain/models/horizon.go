package models

import "fmt"

// PredictionClass names a forecast horizon family.
type PredictionClass string

const (
	ClassIntraday PredictionClass = "intraday"
	ClassSwing    PredictionClass = "swing"
	ClassPosition PredictionClass = "position"
)

// HorizonProfile defines label construction and target-date offset for a class.
type HorizonProfile struct {
	Name            PredictionClass `json:"name" yaml:"name"`
	HorizonDays     int             `json:"horizon_days" yaml:"horizon_days"`
	ReturnThreshold float64         `json:"return_threshold" yaml:"return_threshold"`
}

// DefaultProfiles returns the built-in horizon profiles.
func DefaultProfiles() []HorizonProfile {
	return []HorizonProfile{
		{Name: ClassIntraday, HorizonDays: 1, ReturnThreshold: 0.01},
		{Name: ClassSwing, HorizonDays: 5, ReturnThreshold: 0.02},
		{Name: ClassPosition, HorizonDays: 20, ReturnThreshold: 0.05},
	}
}

// Profiles is an immutable lookup of horizon profiles by class.
type Profiles struct {
	order []PredictionClass
	byKey map[PredictionClass]HorizonProfile
}

// NewProfiles validates and indexes the given profiles.
func NewProfiles(ps []HorizonProfile) (*Profiles, error) {
	out := &Profiles{byKey: make(map[PredictionClass]HorizonProfile, len(ps))}
	for _, p := range ps {
		if p.Name == "" {
			return nil, fmt.Errorf("profile name is required")
		}
		if p.HorizonDays <= 0 {
			return nil, fmt.Errorf("profile %s: horizon_days must be > 0", p.Name)
		}
		if _, dup := out.byKey[p.Name]; dup {
			return nil, fmt.Errorf("profile %s: duplicate", p.Name)
		}
		out.byKey[p.Name] = p
		out.order = append(out.order, p.Name)
	}
	return out, nil
}

// Get returns the profile for class or ErrUnknownClass.
func (p *Profiles) Get(class PredictionClass) (HorizonProfile, error) {
	hp, ok := p.byKey[class]
	if !ok {
		return HorizonProfile{}, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	return hp, nil
}

// Classes returns the configured classes in configuration order.
func (p *Profiles) Classes() []PredictionClass {
	out := make([]PredictionClass, len(p.order))
	copy(out, p.order)
	return out
}
