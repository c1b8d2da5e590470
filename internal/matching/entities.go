// Package matching pairs semantically equivalent markets across venues and
// turns price divergence between pairs into scored arbitrage opportunities.
// Entity extraction and the semantic veto are rule tables so each heuristic
// can be tested in isolation and extended without touching the match loop.
package matching

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Entities is the normalized fact set extracted from one market title. Tokens
// feed the inverted index and Jaccard overlap; the typed fields feed the
// semantic veto.
type Entities struct {
	Tokens  map[string]struct{}
	Dollars []float64
	Years   []int
	Leagues []string
	Topics  []string
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "get": {}, "has": {}, "have": {},
	"hit": {}, "in": {}, "is": {}, "it": {}, "its": {}, "market": {},
	"of": {}, "on": {}, "or": {}, "reach": {}, "than": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "will": {}, "with": {}, "would": {},
}

// leagueAliases maps league and team mentions to a canonical league key.
// Alias groups exist so "NBA Finals" and "Lakers" resolve to the same league
// and never trip the league-mismatch veto against each other.
var leagueAliases = map[string]string{
	"nba": "nba", "basketball": "nba",
	"lakers": "nba", "celtics": "nba", "warriors": "nba", "knicks": "nba",
	"nuggets": "nba", "bucks": "nba", "heat": "nba", "thunder": "nba",

	"nfl": "nfl", "football": "nfl", "superbowl": "nfl", "super": "nfl",
	"chiefs": "nfl", "eagles": "nfl", "cowboys": "nfl", "patriots": "nfl",
	"49ers": "nfl", "bills": "nfl", "ravens": "nfl",

	"mlb": "mlb", "baseball": "mlb",
	"yankees": "mlb", "dodgers": "mlb", "mets": "mlb", "astros": "mlb",
	"braves": "mlb", "phillies": "mlb",

	"nhl": "nhl", "hockey": "nhl",
	"oilers": "nhl", "rangers": "nhl", "panthers": "nhl", "avalanche": "nhl",

	"ucl": "soccer", "uefa": "soccer", "epl": "soccer", "premier": "soccer",
	"liga": "soccer", "bundesliga": "soccer", "mls": "soccer",
	"arsenal": "soccer", "liverpool": "soccer", "chelsea": "soccer",
	"barcelona": "soccer", "madrid": "soccer",
}

// topicTerms are subjects specific enough that one title mentioning them and
// the candidate omitting them signals different underlying questions even
// when the remaining words overlap heavily.
var topicTerms = map[string]struct{}{
	"bitcoin": {}, "ethereum": {}, "solana": {}, "dogecoin": {},
	"etf": {}, "halving": {},
	"recession": {}, "inflation": {}, "shutdown": {}, "tariff": {},
	"impeachment": {}, "impeached": {},
	"fed": {}, "cpi": {},
	"oscar": {}, "oscars": {}, "grammy": {}, "grammys": {},
	"playoffs": {}, "finals": {}, "championship": {},
	"olympics": {}, "election": {},
}

var (
	// $75,000 / $75k / $1.5m
	dollarSignRe = regexp.MustCompile(`\$\s?([\d,]+(?:\.\d+)?)\s?([kmb])?\b`)
	// 75 thousand / 1.5 million (dollars)
	dollarWordRe = regexp.MustCompile(`\b([\d,]+(?:\.\d+)?)\s+(thousand|million|billion)\b`)
	yearRe       = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

// ExtractEntities builds the entity set for one market title.
func ExtractEntities(title string) Entities {
	lower := strings.ToLower(title)
	e := Entities{Tokens: make(map[string]struct{})}

	e.Dollars = extractDollars(lower)
	e.Years = extractYears(lower)

	seenLeague := make(map[string]struct{})
	for _, tok := range tokenize(lower) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		e.Tokens[tok] = struct{}{}
		if league, ok := leagueAliases[tok]; ok {
			if _, dup := seenLeague[league]; !dup {
				seenLeague[league] = struct{}{}
				e.Leagues = append(e.Leagues, league)
			}
		}
		if _, ok := topicTerms[tok]; ok {
			e.Topics = append(e.Topics, tok)
		}
	}

	// Capitalized runs in the original casing become phrase entities, so
	// "World Series" indexes as one unit as well as two tokens.
	for _, phrase := range properNounPhrases(title) {
		e.Tokens[phrase] = struct{}{}
	}

	return e
}

func tokenize(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func extractDollars(lower string) []float64 {
	var out []float64
	for _, m := range dollarSignRe.FindAllStringSubmatch(lower, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		out = append(out, v*suffixMultiplier(m[2]))
	}
	for _, m := range dollarWordRe.FindAllStringSubmatch(lower, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		out = append(out, v*suffixMultiplier(m[2]))
	}
	return out
}

func suffixMultiplier(s string) float64 {
	switch s {
	case "k", "thousand":
		return 1e3
	case "m", "million":
		return 1e6
	case "b", "billion":
		return 1e9
	default:
		return 1
	}
}

func extractYears(lower string) []int {
	var out []int
	for _, m := range yearRe.FindAllString(lower, -1) {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, y)
	}
	return out
}

// properNounPhrases returns lowercase multi-word phrases built from runs of
// two or more capitalized words. Single capitalized words already appear as
// plain tokens.
func properNounPhrases(title string) []string {
	words := strings.Fields(title)
	var phrases []string
	var run []string
	flush := func() {
		if len(run) >= 2 {
			phrases = append(phrases, strings.ToLower(strings.Join(run, " ")))
		}
		run = run[:0]
	}
	for _, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed == "" {
			flush()
			continue
		}
		r := []rune(trimmed)
		if unicode.IsUpper(r[0]) {
			run = append(run, strings.ToLower(trimmed))
			continue
		}
		flush()
	}
	flush()
	return phrases
}
