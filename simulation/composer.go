// Package simulation generates synthetic demand history and stock batches
// for every (medicine, region) pair. The composer layers independent
// multiplicative effects over a base demand rate; each layer can be tested
// in isolation and capped effects keep coinciding shocks from compounding
// without bound.
package simulation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/medismart/forecast-api/entities"
)

// ErrInvalidProfile signals a malformed seasonal profile, shock period or
// calendar event configuration.
var ErrInvalidProfile = errors.New("invalid demand profile")

const (
	// Canonical noise and trend parameterization.
	baseNoiseSigma   = 0.05    // day-to-day randomness around the base rate
	finalNoiseSigma  = 0.02    // residual daily jitter applied last
	trendIncrement   = 0.00005 // per-day trend growth over the simulated range
	temperatureSwing = 0.10    // bounded swing of the day-of-year sinusoid

	shockEffectCap = 2.0
	eventEffectCap = 1.3
	eventReach     = 5 // days on each side of an event date
	maxRampDays    = 14
)

// weekdayPattern holds the fixed day-of-week multipliers, indexed by
// time.Weekday (Sunday = 0). Mondays peak as pharmacies restock after the
// weekend; Sundays are the trough.
var weekdayPattern = [7]float64{0.75, 1.2, 1.1, 1.0, 1.0, 1.1, 0.85}

// Composer turns a base demand rate and a calendar date into a simulated
// usage quantity. It is safe for sequential use only: the embedded RNG is
// not synchronized.
type Composer struct {
	profile entities.SeasonalProfile
	shocks  []entities.ShockPeriod
	events  []entities.CalendarEvent
	rng     *rand.Rand
}

// NewComposer validates the configuration and returns a composer seeded for
// deterministic replay.
func NewComposer(profile entities.SeasonalProfile, shocks []entities.ShockPeriod,
	events []entities.CalendarEvent, seed int64) (*Composer, error) {

	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}
	for _, s := range shocks {
		if !s.End.After(s.Start) {
			return nil, fmt.Errorf("%w: shock period ends %s before it starts %s",
				ErrInvalidProfile, s.End.Format(time.DateOnly), s.Start.Format(time.DateOnly))
		}
		if s.PeakMultiplier < 1 {
			return nil, fmt.Errorf("%w: shock multiplier %.2f below 1", ErrInvalidProfile, s.PeakMultiplier)
		}
	}
	for _, e := range events {
		if e.PeakMultiplier < 1 {
			return nil, fmt.Errorf("%w: event multiplier %.2f below 1", ErrInvalidProfile, e.PeakMultiplier)
		}
	}

	return &Composer{
		profile: profile,
		shocks:  shocks,
		events:  events,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// ValidateProfile checks that every monthly factor is a positive finite
// number.
func ValidateProfile(profile entities.SeasonalProfile) error {
	for month, factor := range profile {
		if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
			return fmt.Errorf("%w: month %d factor %v", ErrInvalidProfile, month+1, factor)
		}
	}
	return nil
}

// Compose produces the usage quantity for one day. dayOffset is the number
// of days since the start of the simulated range and drives the slow trend
// layer. The result is always >= 1.
func (c *Composer) Compose(baseDemand float64, date time.Time, dayOffset int) int {
	demand := baseDemand * (1 + c.rng.NormFloat64()*baseNoiseSigma)

	demand *= weekdayPattern[date.Weekday()]
	demand *= temperatureEffect(date)
	demand *= c.seasonalFactor(date)
	demand *= 1.0 + trendIncrement*float64(dayOffset)

	for _, s := range c.shocks {
		demand *= math.Min(ShockEffect(s, date), shockEffectCap)
	}
	for _, e := range c.events {
		demand *= math.Min(EventEffect(e, date), eventEffectCap)
	}

	demand *= 1 + c.rng.NormFloat64()*finalNoiseSigma

	quantity := int(math.Round(demand))
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}

// temperatureEffect is a smooth yearly cycle over day-of-year, bounded to
// +/- temperatureSwing.
func temperatureEffect(date time.Time) float64 {
	dayOfYear := float64(date.YearDay())
	return 1 + math.Sin(2*math.Pi*dayOfYear/365)*temperatureSwing
}

// seasonalFactor interpolates between the previous and current month's
// profile factor, weighted by day-of-month progress. January wraps back to
// December so the year boundary is as smooth as any other month boundary.
func (c *Composer) seasonalFactor(date time.Time) float64 {
	month := int(date.Month()) - 1
	prev := month - 1
	if prev < 0 {
		prev = 11
	}

	dayWeight := float64(date.Day()) / float64(daysInMonth(date))
	return c.profile[prev]*(1-dayWeight) + c.profile[month]*dayWeight
}

func daysInMonth(date time.Time) int {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	return first.AddDate(0, 1, -1).Day()
}

// ShockEffect computes the uncapped multiplier of a shock period at a date:
// a linear ramp-up over min(14, length/4) days, a plateau at the peak
// multiplier, and a symmetric ramp-down near the end. Outside the period the
// effect is neutral.
func ShockEffect(s entities.ShockPeriod, date time.Time) float64 {
	if date.Before(s.Start) || date.After(s.End) {
		return 1.0
	}

	totalDays := daysBetween(s.Start, s.End)
	rampDays := totalDays / 4
	if rampDays > maxRampDays {
		rampDays = maxRampDays
	}
	if rampDays == 0 {
		return s.PeakMultiplier
	}

	daysIn := daysBetween(s.Start, date)
	daysLeft := daysBetween(date, s.End)

	switch {
	case daysIn <= rampDays:
		return 1 + (s.PeakMultiplier-1)*float64(daysIn)/float64(rampDays)
	case daysLeft <= rampDays:
		return 1 + (s.PeakMultiplier-1)*float64(daysLeft)/float64(rampDays)
	default:
		return s.PeakMultiplier
	}
}

// EventEffect computes the uncapped multiplier of a calendar event at a
// date: the peak on the event day, decaying linearly to neutral at five days
// distance on either side.
func EventEffect(e entities.CalendarEvent, date time.Time) float64 {
	distance := daysBetween(e.Date, date)
	if distance < 0 {
		distance = -distance
	}
	if distance > eventReach {
		return 1.0
	}
	if distance == 0 {
		return e.PeakMultiplier
	}
	return 1 + (e.PeakMultiplier-1)*(1-float64(distance)/float64(eventReach))
}

// daysBetween returns calendar days from a to b, negative when b precedes a.
// Counting calendar-wise keeps day boundaries stable across DST transitions
// when dates carry a local zone.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}
