// Package inventory derives stock advice from the usage history and the
// synthetic batch inventory: reorder points, days of cover and quantities at
// risk of expiry. Monetary-grade decimal arithmetic avoids float drift in
// the reported figures.
package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/forecasting"
	"github.com/medismart/forecast-api/interfaces"
)

const (
	// Replenishment assumptions shared by every pair.
	leadTimeDays    = 14
	safetyStockDays = 7

	// usageWindowDays is how much trailing history feeds the average.
	usageWindowDays = 90

	// nearExpiryWindowDays flags stock expiring soon enough to act on.
	nearExpiryWindowDays = 90
)

// Advice summarizes the stock position for one (medicine, region) pair.
type Advice struct {
	MedicineID    uint            `json:"medicine_id"`
	Region        entities.Region `json:"region"`
	AvgDailyUsage decimal.Decimal `json:"avg_daily_usage"`
	ReorderPoint  decimal.Decimal `json:"reorder_point"`
	StockOnHand   int             `json:"stock_on_hand"`
	DaysOfCover   decimal.Decimal `json:"days_of_cover"`
	NearExpiry    int             `json:"near_expiry_quantity"`
	ExpiredStock  int             `json:"expired_quantity"`
	ShouldReorder bool            `json:"should_reorder"`
}

// Advisor computes stock advice from the persisted usage and batches.
type Advisor struct {
	usage   interfaces.UsageStore
	batches interfaces.BatchStore
}

func NewAdvisor(usage interfaces.UsageStore, batches interfaces.BatchStore) *Advisor {
	return &Advisor{usage: usage, batches: batches}
}

// Advise computes the stock position for one pair as of now.
func (a *Advisor) Advise(medicineID uint, region entities.Region, now time.Time) (*Advice, error) {
	series, err := a.usage.UsageSeries(medicineID, region)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no usage history for medicine %d in %s",
			forecasting.ErrInsufficientData, medicineID, region)
	}

	window := series
	if len(window) > usageWindowDays {
		window = window[len(window)-usageWindowDays:]
	}

	total := 0
	for _, p := range window {
		total += p.QuantityUsed
	}
	avgDaily := decimal.NewFromInt(int64(total)).
		Div(decimal.NewFromInt(int64(len(window)))).
		Round(2)

	// Classic reorder point: demand over lead time plus safety stock.
	reorderPoint := avgDaily.
		Mul(decimal.NewFromInt(leadTimeDays + safetyStockDays)).
		Round(0)

	batches, err := a.batches.BatchesFor(medicineID, region)
	if err != nil {
		return nil, err
	}

	expiryCutoff := now.AddDate(0, 0, nearExpiryWindowDays)
	stockOnHand := 0
	nearExpiry := 0
	expired := 0
	for _, b := range batches {
		if !b.ExpiryDate.After(now) {
			expired += b.Quantity
			continue
		}
		stockOnHand += b.Quantity
		if !b.ExpiryDate.After(expiryCutoff) {
			nearExpiry += b.Quantity
		}
	}

	daysOfCover := decimal.Zero
	if avgDaily.IsPositive() {
		daysOfCover = decimal.NewFromInt(int64(stockOnHand)).Div(avgDaily).Round(1)
	}

	return &Advice{
		MedicineID:    medicineID,
		Region:        region,
		AvgDailyUsage: avgDaily,
		ReorderPoint:  reorderPoint,
		StockOnHand:   stockOnHand,
		DaysOfCover:   daysOfCover,
		NearExpiry:    nearExpiry,
		ExpiredStock:  expired,
		ShouldReorder: decimal.NewFromInt(int64(stockOnHand)).LessThan(reorderPoint),
	}, nil
}
