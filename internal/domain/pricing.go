package domain

// markupBand is one tier of the sell-price markup schedule. The multiplier
// is in basis points (10000 = ×1.0) and applies to the slice of cost price
// falling inside the band, so the schedule is continuous: crossing a band
// boundary can never produce a sell price below the top of the band beneath.
type markupBand struct {
	from         int64 // inclusive lower cost bound, pence
	multiplierBP int64
}

// Cheap garments carry the steepest markup; the multiplier tapers off as
// cost rises. Bands are in ascending cost order and start at zero.
var markupBands = []markupBand{
	{from: 0, multiplierBP: 26000},    // ×2.6 under £5
	{from: 500, multiplierBP: 22000},  // ×2.2 to £15
	{from: 1500, multiplierBP: 18000}, // ×1.8 to £40
	{from: 4000, multiplierBP: 15000}, // ×1.5 above
}

// SellPrice derives the sell price (pence) from a cost price (pence) via
// the tiered markup schedule. Pure function: strictly increasing in cost,
// zero for non-positive cost.
func SellPrice(cost int64) int64 {
	if cost <= 0 {
		return 0
	}

	var sell int64
	for i, band := range markupBands {
		upper := cost
		if i+1 < len(markupBands) && markupBands[i+1].from < cost {
			upper = markupBands[i+1].from
		}
		if upper <= band.from {
			break
		}
		sell += (upper - band.from) * band.multiplierBP / 10000
	}
	return sell
}
