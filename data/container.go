// Package data provides thread-safe storage for the reference catalog of the
// forecast API: medicines, region configurations and the derived list of
// (medicine, region) training pairs. The catalog is built at startup and
// swapped atomically, so readers never block and never see a partial load.
package data

import (
	"sync/atomic"
	"time"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/interfaces"
	"github.com/medismart/forecast-api/logging"
)

// Compile-time check to ensure CatalogContainer implements Catalog
var _ interfaces.Catalog = (*CatalogContainer)(nil)

// CatalogContainer holds the reference data with atomic pointers for
// zero-downtime updates
type CatalogContainer struct {
	medicines     atomic.Value // []entities.Medicine
	medicinesMap  atomic.Value // map[uint]entities.Medicine
	regionConfigs atomic.Value // []entities.RegionConfig
	pairs         atomic.Value // []interfaces.Pair
	lastLoaded    atomic.Value // time.Time
	updating      atomic.Bool
}

// NewCatalogContainer creates a new CatalogContainer with empty data
func NewCatalogContainer() *CatalogContainer {
	cc := &CatalogContainer{}
	cc.medicines.Store(make([]entities.Medicine, 0))
	cc.medicinesMap.Store(make(map[uint]entities.Medicine))
	cc.regionConfigs.Store(make([]entities.RegionConfig, 0))
	cc.pairs.Store(make([]interfaces.Pair, 0))
	cc.lastLoaded.Store(time.Time{})
	return cc
}

// Thread-safe getters with type check

// GetMedicines returns the list of medicines
func (cc *CatalogContainer) GetMedicines() []entities.Medicine {
	if v := cc.medicines.Load(); v != nil {
		if medicines, ok := v.([]entities.Medicine); ok {
			return medicines
		}
	}

	logging.Warn("Medicines list is empty or invalid")
	return []entities.Medicine{}
}

// GetMedicinesMap returns the medicines map for O(1) lookups
func (cc *CatalogContainer) GetMedicinesMap() map[uint]entities.Medicine {
	if v := cc.medicinesMap.Load(); v != nil {
		if medicinesMap, ok := v.(map[uint]entities.Medicine); ok {
			return medicinesMap
		}
	}

	logging.Warn("MedicinesMap is empty or invalid")
	return make(map[uint]entities.Medicine)
}

// GetRegionConfigs returns the region market configurations
func (cc *CatalogContainer) GetRegionConfigs() []entities.RegionConfig {
	if v := cc.regionConfigs.Load(); v != nil {
		if configs, ok := v.([]entities.RegionConfig); ok {
			return configs
		}
	}

	logging.Warn("RegionConfigs list is empty or invalid")
	return []entities.RegionConfig{}
}

// GetPairs returns every (medicine, region) training pair
func (cc *CatalogContainer) GetPairs() []interfaces.Pair {
	if v := cc.pairs.Load(); v != nil {
		if pairs, ok := v.([]interfaces.Pair); ok {
			return pairs
		}
	}

	logging.Warn("Pairs list is empty or invalid")
	return []interfaces.Pair{}
}

// GetLastLoaded returns the timestamp of the last catalog load
func (cc *CatalogContainer) GetLastLoaded() time.Time {
	if v := cc.lastLoaded.Load(); v != nil {
		if lastLoaded, ok := v.(time.Time); ok {
			return lastLoaded
		}
	}

	logging.Warn("Could not get the last loaded value")
	return time.Time{}
}

// IsUpdating returns true if a catalog update is currently in progress
func (cc *CatalogContainer) IsUpdating() bool {
	return cc.updating.Load()
}

// UpdateCatalog atomically replaces all reference data in the container
func (cc *CatalogContainer) UpdateCatalog(medicines []entities.Medicine,
	medicinesMap map[uint]entities.Medicine, configs []entities.RegionConfig,
	pairs []interfaces.Pair) {

	// Atomic swap (zero downtime replacement)
	cc.medicines.Store(medicines)
	cc.medicinesMap.Store(medicinesMap)
	cc.regionConfigs.Store(configs)
	cc.pairs.Store(pairs)
	cc.lastLoaded.Store(time.Now())
}

// BeginUpdate marks the start of a catalog update operation
// Returns true if update can proceed, false if another update is in progress
func (cc *CatalogContainer) BeginUpdate() bool {
	return cc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a catalog update operation
func (cc *CatalogContainer) EndUpdate() {
	cc.updating.Store(false)
}
