package simulation

import (
	"time"

	"github.com/medismart/forecast-api/entities"
)

// DefaultRegionConfigs returns the built-in delhi and kolkata market
// configurations, anchored to the generation window so shock periods and
// festival events always fall inside the simulated history. Shock offsets
// mirror the historical pandemic waves: a long first wave early in the
// window, a sharper second wave a year later, and a mild final wave.
func DefaultRegionConfigs(start, end time.Time) []entities.RegionConfig {
	return []entities.RegionConfig{
		{
			Region: entities.RegionDelhi,
			Medicines: []entities.MedicineSpec{
				{Name: "Paracetamol", Category: "Pain Relief", Unit: "tablets", BaseDemand: 100},
				{Name: "Ibuprofen", Category: "Anti-inflammatory", Unit: "tablets", BaseDemand: 80},
				{Name: "Amoxicillin", Category: "Antibiotic", Unit: "tablets", BaseDemand: 60},
				{Name: "Cetirizine", Category: "Antihistamine", Unit: "tablets", BaseDemand: 40},
				{Name: "Salbutamol", Category: "Bronchodilator", Unit: "puffs", BaseDemand: 30},
			},
			SeasonalProfiles: map[string]entities.SeasonalProfile{
				"Cetirizine":  {1.2, 1.4, 1.6, 1.7, 1.5, 1.2, 1.0, 1.0, 1.2, 1.3, 1.2, 1.2},
				"Paracetamol": {1.2, 1.1, 1.0, 0.9, 0.9, 1.0, 1.1, 1.2, 1.1, 1.0, 1.1, 1.2},
			},
			DefaultProfile: entities.SeasonalProfile{1.0, 1.0, 1.1, 1.1, 1.0, 0.9, 0.9, 1.0, 1.1, 1.1, 1.0, 1.0},
			ShockPeriods: []entities.ShockPeriod{
				{Start: start.AddDate(0, 0, 74), End: start.AddDate(0, 0, 212), PeakMultiplier: 1.8},
				{Start: start.AddDate(1, 3, 0), End: start.AddDate(1, 5, 29), PeakMultiplier: 1.6},
				{Start: start.AddDate(3, 0, 0), End: start.AddDate(3, 2, 29), PeakMultiplier: 1.4},
			},
			Events: festivalEvents(start, end, time.October, 25, 1.3),
		},
		{
			Region: entities.RegionKolkata,
			Medicines: []entities.MedicineSpec{
				{Name: "Paracetamol", Category: "Pain Relief", Unit: "tablets", BaseDemand: 90},
				{Name: "Ibuprofen", Category: "Anti-inflammatory", Unit: "tablets", BaseDemand: 70},
				{Name: "Amoxicillin", Category: "Antibiotic", Unit: "tablets", BaseDemand: 50},
				{Name: "Loperamide", Category: "Antidiarrheal", Unit: "tablets", BaseDemand: 45},
				{Name: "Metronidazole", Category: "Antiprotozoal", Unit: "tablets", BaseDemand: 35},
			},
			SeasonalProfiles: map[string]entities.SeasonalProfile{
				"Loperamide": {1.0, 1.0, 1.1, 1.2, 1.3, 1.5, 1.5, 1.4, 1.3, 1.2, 1.0, 1.0},
			},
			DefaultProfile: entities.SeasonalProfile{1.0, 1.0, 1.1, 1.1, 1.2, 1.2, 1.2, 1.1, 1.1, 1.0, 1.0, 1.0},
			ShockPeriods: []entities.ShockPeriod{
				{Start: start.AddDate(0, 4, 0), End: start.AddDate(0, 8, 29), PeakMultiplier: 2.0},
				{Start: start.AddDate(1, 4, 0), End: start.AddDate(1, 6, 30), PeakMultiplier: 1.8},
				{Start: start.AddDate(3, 5, 0), End: start.AddDate(3, 7, 30), PeakMultiplier: 1.5},
			},
			Events: festivalEvents(start, end, time.October, 20, 1.3),
		},
	}
}

// festivalEvents places one festival spike per simulated year on a fixed
// month and day, skipping occurrences outside the window.
func festivalEvents(start, end time.Time, month time.Month, day int, multiplier float64) []entities.CalendarEvent {
	var events []entities.CalendarEvent
	for year := start.Year(); year <= end.Year(); year++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, start.Location())
		if date.Before(start) || date.After(end) {
			continue
		}
		events = append(events, entities.CalendarEvent{Date: date, PeakMultiplier: multiplier})
	}
	return events
}
