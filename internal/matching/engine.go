package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// Params tunes one engine run. Zero values fall back to the engine defaults,
// so callers can override just the knobs a request parameterizes.
type Params struct {
	MinSimilarity float64
	MinSpread     float64
	Limit         int
}

// Config holds the engine's standing thresholds.
type Config struct {
	MinSimilarity      float64
	EventMinSimilarity float64
	MinSpread          float64
	MaxSpreadPct       float64
	MinVolume          float64
	ResultLimit        int
}

// Engine matches markets across two venues. It is stateless per invocation;
// callers cache results.
type Engine struct {
	markets domain.MarketStore
	venues  []string
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

// NewEngine creates an Engine scanning the given venues. Matching is
// pairwise across every venue pair.
func NewEngine(markets domain.MarketStore, venues []string, cfg Config, log *slog.Logger) *Engine {
	return &Engine{
		markets: markets,
		venues:  venues,
		cfg:     cfg,
		log:     log.With("component", "matching"),
		now:     time.Now,
	}
}

// candidate is one market prepared for matching.
type candidate struct {
	market   domain.Market
	entities Entities
}

// Match runs a full matching pass and returns ranked opportunities plus run
// stats. A venue whose market fetch fails contributes zero candidates and is
// logged, never fatal.
func (e *Engine) Match(ctx context.Context, p Params) (domain.MatchResult, error) {
	minSim := p.MinSimilarity
	if minSim <= 0 {
		minSim = e.cfg.MinSimilarity
	}
	minSpread := p.MinSpread
	if minSpread <= 0 {
		minSpread = e.cfg.MinSpread
	}
	limit := p.Limit
	if limit <= 0 {
		limit = e.cfg.ResultLimit
	}

	byVenue := make(map[string][]candidate, len(e.venues))
	scanned := 0
	for _, v := range e.venues {
		cands, err := e.loadCandidates(ctx, v)
		if err != nil {
			e.log.Warn("venue degraded to zero candidates", "venue", v, "error", err)
			continue
		}
		byVenue[v] = cands
		scanned += len(cands)
	}

	result := domain.MatchResult{Stats: domain.MatchStats{MarketsScanned: scanned}}
	detectedAt := e.now().UTC()

	for i := 0; i < len(e.venues); i++ {
		for j := i + 1; j < len(e.venues); j++ {
			pairs, vetoed := matchPairs(byVenue[e.venues[i]], byVenue[e.venues[j]], minSim)
			result.Stats.PairsMatched += len(pairs)
			result.Stats.PairsVetoed += vetoed
			for _, pr := range pairs {
				opp, ok := e.buildOpportunity(pr, minSpread, detectedAt)
				if !ok {
					continue
				}
				result.Opportunities = append(result.Opportunities, opp)
			}
		}
	}

	rankOpportunities(result.Opportunities)
	if len(result.Opportunities) > limit {
		result.Opportunities = result.Opportunities[:limit]
	}

	result.Stats.Opportunities = len(result.Opportunities)
	var sumPct float64
	for _, o := range result.Opportunities {
		sumPct += o.SpreadPct
	}
	if n := len(result.Opportunities); n > 0 {
		result.Stats.AvgSpreadPct = sumPct / float64(n)
	}

	e.log.Info("matching pass complete",
		"scanned", scanned,
		"pairs", result.Stats.PairsMatched,
		"vetoed", result.Stats.PairsVetoed,
		"opportunities", result.Stats.Opportunities)
	return result, nil
}

// EventMatch is a cross-venue pair at event-grouping confidence.
type EventMatch struct {
	A          domain.Market `json:"a"`
	B          domain.Market `json:"b"`
	Similarity float64       `json:"similarity"`
}

// MatchEvents pairs markets at the stricter event-grouping threshold,
// without opportunity construction. Results are cached for hours.
func (e *Engine) MatchEvents(ctx context.Context) ([]EventMatch, error) {
	byVenue := make(map[string][]candidate, len(e.venues))
	for _, v := range e.venues {
		cands, err := e.loadCandidates(ctx, v)
		if err != nil {
			e.log.Warn("venue degraded to zero candidates", "venue", v, "error", err)
			continue
		}
		byVenue[v] = cands
	}

	var out []EventMatch
	for i := 0; i < len(e.venues); i++ {
		for j := i + 1; j < len(e.venues); j++ {
			pairs, _ := matchPairs(byVenue[e.venues[i]], byVenue[e.venues[j]], e.cfg.EventMinSimilarity)
			for _, pr := range pairs {
				out = append(out, EventMatch{A: pr.a.market, B: pr.b.market, Similarity: pr.similarity})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

// loadCandidates pulls a venue's active markets and keeps only those with a
// usable YES price strictly inside (0.01, 0.99). Near-certain and
// near-impossible entries carry no tradeable signal and pollute matching.
func (e *Engine) loadCandidates(ctx context.Context, venueName string) ([]candidate, error) {
	markets, err := e.markets.ListActive(ctx, venueName)
	if err != nil {
		return nil, fmt.Errorf("matching: load %s markets: %w", venueName, err)
	}
	cands := make([]candidate, 0, len(markets))
	for _, m := range markets {
		if m.YesPrice == nil || *m.YesPrice <= 0.01 || *m.YesPrice >= 0.99 {
			continue
		}
		if m.Title == "" {
			continue
		}
		cands = append(cands, candidate{market: m, entities: ExtractEntities(m.Title)})
	}
	return cands, nil
}

type pair struct {
	a, b       candidate
	similarity float64
}

// matchPairs matches two candidate sets greedily one-to-one. The inverted
// index is built over the smaller set; each market in the larger set unions
// candidate lists across its entities, scores the still-unclaimed ones, and
// claims the best above threshold. First claimed wins; a market that would
// be the best match for two sources goes to whichever is processed first.
func matchPairs(setA, setB []candidate, minSim float64) ([]pair, int) {
	small, large := setA, setB
	swapped := false
	if len(large) < len(small) {
		small, large = large, small
		swapped = true
	}

	index := make(map[string][]int)
	for i, c := range small {
		for tok := range c.entities.Tokens {
			index[tok] = append(index[tok], i)
		}
	}

	claimed := make(map[int]bool, len(small))
	var pairs []pair
	vetoed := 0

	for _, src := range large {
		seen := make(map[int]bool)
		bestIdx, bestScore := -1, 0.0
		for tok := range src.entities.Tokens {
			for _, i := range index[tok] {
				if claimed[i] || seen[i] {
					continue
				}
				seen[i] = true
				score := Similarity(src.entities, small[i].entities, src.market.Title, small[i].market.Title)
				// Ties break toward the lower index so token iteration
				// order never changes the outcome.
				if score > bestScore || (score == bestScore && bestIdx >= 0 && i < bestIdx) {
					bestScore, bestIdx = score, i
				}
			}
		}
		if bestIdx < 0 || bestScore < minSim {
			continue
		}
		if _, ok := Veto(src.entities, small[bestIdx].entities); !ok {
			vetoed++
			continue
		}
		claimed[bestIdx] = true
		p := pair{a: src, b: small[bestIdx], similarity: bestScore}
		if swapped {
			p.a, p.b = p.b, p.a
		}
		pairs = append(pairs, p)
	}
	return pairs, vetoed
}
