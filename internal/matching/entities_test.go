package matching

import (
	"testing"
)

func hasToken(e Entities, tok string) bool {
	_, ok := e.Tokens[tok]
	return ok
}

func TestExtractEntities_Dollars(t *testing.T) {
	cases := []struct {
		title string
		want  []float64
	}{
		{"Will Bitcoin reach $75,000 by March?", []float64{75000}},
		{"Will Bitcoin reach $75k by March?", []float64{75000}},
		{"Will Bitcoin reach 75 thousand by March?", []float64{75000}},
		{"BTC to $1.5m?", []float64{1.5e6}},
		{"Market cap above $2b?", []float64{2e9}},
		{"Deficit hits 3 billion?", []float64{3e9}},
		{"Will it rain tomorrow?", nil},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			got := ExtractEntities(tc.title).Dollars
			if len(got) != len(tc.want) {
				t.Fatalf("Dollars = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("Dollars[%d] = %g, want %g", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestExtractEntities_Years(t *testing.T) {
	e := ExtractEntities("Will the recession arrive in 2026 or 2027?")
	if len(e.Years) != 2 || e.Years[0] != 2026 || e.Years[1] != 2027 {
		t.Errorf("Years = %v, want [2026 2027]", e.Years)
	}

	// Plain numbers that are not years stay out.
	e = ExtractEntities("Will BTC hit 100000?")
	if len(e.Years) != 0 {
		t.Errorf("Years = %v, want none", e.Years)
	}
}

func TestExtractEntities_LeagueAliases(t *testing.T) {
	// A team name resolves to the same league as the league name.
	lakers := ExtractEntities("Will the Lakers win it all?")
	nba := ExtractEntities("NBA Finals winner 2026")

	if len(lakers.Leagues) != 1 || lakers.Leagues[0] != "nba" {
		t.Errorf("lakers leagues = %v, want [nba]", lakers.Leagues)
	}
	if len(nba.Leagues) != 1 || nba.Leagues[0] != "nba" {
		t.Errorf("nba leagues = %v, want [nba]", nba.Leagues)
	}
}

func TestExtractEntities_Topics(t *testing.T) {
	e := ExtractEntities("Will a Bitcoin ETF be approved?")
	wantTopics := map[string]bool{"bitcoin": false, "etf": false}
	for _, topic := range e.Topics {
		if _, ok := wantTopics[topic]; ok {
			wantTopics[topic] = true
		}
	}
	for topic, seen := range wantTopics {
		if !seen {
			t.Errorf("topic %q not extracted, got %v", topic, e.Topics)
		}
	}
}

func TestExtractEntities_StopWordsDropped(t *testing.T) {
	e := ExtractEntities("Will the Lakers win the NBA Finals?")
	for _, stop := range []string{"will", "the"} {
		if hasToken(e, stop) {
			t.Errorf("stop word %q kept as token", stop)
		}
	}
	for _, keep := range []string{"lakers", "win", "nba", "finals"} {
		if !hasToken(e, keep) {
			t.Errorf("token %q missing", keep)
		}
	}
}

func TestExtractEntities_ProperNounPhrases(t *testing.T) {
	e := ExtractEntities("Who wins the World Series in 2026?")
	if !hasToken(e, "world series") {
		t.Errorf("phrase token missing, tokens = %v", e.Tokens)
	}
}
