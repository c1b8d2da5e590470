package matching

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// Feasibility weights and shape constants. Volume adequacy saturates at
// volumeTarget; the spread curve peaks at spreadSweetPct and penalizes both
// tick noise below and implausible spreads above.
const (
	weightVolume  = 0.4
	weightBalance = 0.3
	weightSpread  = 0.3

	volumeTarget   = 100_000.0
	spreadSweetPct = 10.0

	confHighSpread = 0.05
	confHighVolume = 10_000.0
	confMedSpread  = 0.03
	confMedVolume  = 5_000.0
)

// buildOpportunity turns a matched pair into a scored opportunity, or drops
// it on the spread floor, the implausibility ceiling, or the liquidity
// floor.
func (e *Engine) buildOpportunity(pr pair, minSpread float64, detectedAt time.Time) (domain.Opportunity, bool) {
	buy, sell := pr.a.market, pr.b.market
	if *buy.YesPrice > *sell.YesPrice {
		buy, sell = sell, buy
	}
	buyPrice, sellPrice := *buy.YesPrice, *sell.YesPrice

	spread := sellPrice - buyPrice
	if spread < minSpread {
		return domain.Opportunity{}, false
	}
	spreadPct := spread / buyPrice * 100
	if spreadPct > e.cfg.MaxSpreadPct {
		// Spreads this wide are stale data, not profit.
		return domain.Opportunity{}, false
	}
	minVol := math.Min(buy.Volume, sell.Volume)
	if minVol < e.cfg.MinVolume {
		return domain.Opportunity{}, false
	}

	opp := domain.Opportunity{
		BuyLeg: domain.OpportunityLeg{
			Venue:         buy.Venue,
			VenueMarketID: buy.VenueMarketID,
			Title:         buy.Title,
			YesPrice:      buyPrice,
			Volume:        buy.Volume,
		},
		SellLeg: domain.OpportunityLeg{
			Venue:         sell.Venue,
			VenueMarketID: sell.VenueMarketID,
			Title:         sell.Title,
			YesPrice:      sellPrice,
			Volume:        sell.Volume,
		},
		Similarity:  pr.similarity,
		Spread:      spread,
		SpreadPct:   spreadPct,
		Feasibility: feasibility(buy.Volume, sell.Volume, spreadPct),
		Confidence:  confidence(spread, minVol),
		Strategy: fmt.Sprintf("buy YES on %s at %.2f, sell YES on %s at %.2f, gross edge %.1f%%",
			buy.Venue, buyPrice, sell.Venue, sellPrice, spreadPct),
		DetectedAt: detectedAt,
	}
	return opp, true
}

// feasibility blends log-scaled volume adequacy, volume balance between
// legs, and a spread-size curve into [0,1].
func feasibility(volA, volB, spreadPct float64) float64 {
	minVol, maxVol := math.Min(volA, volB), math.Max(volA, volB)

	adequacy := 0.0
	if minVol > 1 {
		adequacy = math.Log10(minVol) / math.Log10(volumeTarget)
		if adequacy > 1 {
			adequacy = 1
		}
	}

	balance := 0.0
	if maxVol > 0 {
		balance = minVol / maxVol
	}

	// Triangular curve peaking at the sweet spot; zero at 0 and at twice
	// the sweet spot and beyond.
	curve := 1 - math.Abs(spreadPct-spreadSweetPct)/spreadSweetPct
	if curve < 0 {
		curve = 0
	}

	return weightVolume*adequacy + weightBalance*balance + weightSpread*curve
}

func confidence(spread, minVol float64) domain.Confidence {
	switch {
	case spread >= confHighSpread && minVol >= confHighVolume:
		return domain.ConfidenceHigh
	case spread >= confMedSpread && minVol >= confMedVolume:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

var confidenceRank = map[domain.Confidence]int{
	domain.ConfidenceHigh:   0,
	domain.ConfidenceMedium: 1,
	domain.ConfidenceLow:    2,
}

// rankOpportunities sorts by confidence tier, then spread-percent
// descending. Remaining ties break on leg identity so repeated runs over
// identical data produce identical order.
func rankOpportunities(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		ri, rj := confidenceRank[opps[i].Confidence], confidenceRank[opps[j].Confidence]
		if ri != rj {
			return ri < rj
		}
		if opps[i].SpreadPct != opps[j].SpreadPct {
			return opps[i].SpreadPct > opps[j].SpreadPct
		}
		ki := opps[i].BuyLeg.Venue + opps[i].BuyLeg.VenueMarketID
		kj := opps[j].BuyLeg.Venue + opps[j].BuyLeg.VenueMarketID
		return ki < kj
	})
}
