package simulation

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/medismart/forecast-api/entities"
)

const qrAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// qrRegistry tracks every QR code handed out during one generation run so
// codes stay unique across all regions and medicines.
type qrRegistry struct {
	seen map[string]struct{}
}

func newQRRegistry() *qrRegistry {
	return &qrRegistry{seen: make(map[string]struct{})}
}

func (r *qrRegistry) next(rng *rand.Rand) string {
	for {
		code := make([]byte, 12)
		for i := range code {
			code[i] = qrAlphabet[rng.Intn(len(qrAlphabet))]
		}
		qr := string(code)
		if _, dup := r.seen[qr]; !dup {
			r.seen[qr] = struct{}{}
			return qr
		}
	}
}

// GenerateBatches produces synthetic stock lots for one medicine: one to
// three batches per 30-day step, each holding 1000-5000 units and expiring
// 6 months to 2 years after creation. Batch quantities are statistically
// unrelated to usage. The rng must be specific to the (medicine, region)
// pair; qrCodes is shared across the whole run.
func GenerateBatches(medicineID uint, region entities.Region, start, end time.Time,
	rng *rand.Rand, qrCodes *qrRegistry) []entities.Batch {

	var batches []entities.Batch
	for current := start; !current.After(end); current = current.AddDate(0, 0, 30) {
		count := 1 + rng.Intn(3)
		for i := 0; i < count; i++ {
			batches = append(batches, entities.Batch{
				ID:         uuid.NewString(),
				MedicineID: medicineID,
				Region:     region,
				Quantity:   1000 + rng.Intn(4001),
				ExpiryDate: current.AddDate(0, 0, 180+rng.Intn(551)),
				QRCode:     qrCodes.next(rng),
			})
		}
	}
	return batches
}
