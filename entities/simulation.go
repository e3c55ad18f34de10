package entities

import "time"

// SeasonalProfile maps calendar months (index 0 = January) to multiplicative
// demand factors.
type SeasonalProfile [12]float64

// FlatProfile is the neutral profile: every month multiplies by 1.0.
func FlatProfile() SeasonalProfile {
	return SeasonalProfile{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
}

// ShockPeriod is a sustained demand shock (a pandemic wave or comparable
// disruption) with a ramp-up phase, a full-effect plateau and a cool-down
// phase. The applied effect is capped at 2.0.
type ShockPeriod struct {
	Start          time.Time `json:"start_date"`
	End            time.Time `json:"end_date"`
	PeakMultiplier float64   `json:"peak_multiplier"`
}

// CalendarEvent is a short demand spike around a single date (a festival or
// holiday), decaying linearly to neutral at five days distance. The applied
// effect is capped at 1.3.
type CalendarEvent struct {
	Date           time.Time `json:"event_date"`
	PeakMultiplier float64   `json:"peak_multiplier"`
}

// MedicineSpec declares one medicine of a region together with its base
// daily demand used by the usage generator.
type MedicineSpec struct {
	Name       string
	Category   string
	Unit       string
	BaseDemand float64
}

// RegionConfig drives synthetic data generation for one region.
type RegionConfig struct {
	Region           Region
	Medicines        []MedicineSpec
	SeasonalProfiles map[string]SeasonalProfile // keyed by medicine name
	DefaultProfile   SeasonalProfile
	ShockPeriods     []ShockPeriod
	Events           []CalendarEvent
}

// ProfileFor returns the seasonal profile for a medicine, falling back to
// the region default.
func (rc RegionConfig) ProfileFor(medicineName string) SeasonalProfile {
	if p, ok := rc.SeasonalProfiles[medicineName]; ok {
		return p
	}
	return rc.DefaultProfile
}
