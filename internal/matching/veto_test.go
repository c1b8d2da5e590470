package matching

import "testing"

func TestVeto_DollarMismatch(t *testing.T) {
	a := ExtractEntities("Will Bitcoin reach $75,000 by December 2025?")
	b := ExtractEntities("Will Bitcoin reach $150,000 by December 2025?")

	rule, ok := Veto(a, b)
	if ok {
		t.Fatalf("want veto for $75k vs $150k")
	}
	if rule != "dollar_mismatch" {
		t.Errorf("rule = %q, want dollar_mismatch", rule)
	}
}

func TestVeto_SharedDollarPasses(t *testing.T) {
	a := ExtractEntities("Will Bitcoin reach $75,000 by December 2025?")
	b := ExtractEntities("Bitcoin above $75k before 2026?")

	if rule, ok := Veto(a, b); !ok {
		t.Errorf("vetoed by %q, want pass ($75,000 and $75k are the same amount)", rule)
	}
}

func TestVeto_TeamAndLeaguePass(t *testing.T) {
	// A team name and its league resolve to the same canonical league, so
	// the league rule must not fire.
	a := ExtractEntities("Will the Lakers win it all this year?")
	b := ExtractEntities("NBA champion 2026: Lakers?")

	if rule, ok := Veto(a, b); !ok {
		t.Errorf("vetoed by %q, want pass (Lakers resolves to nba)", rule)
	}
}

func TestVeto_LeagueMismatch(t *testing.T) {
	a := ExtractEntities("Will the Lakers win the championship?")
	b := ExtractEntities("Will the Chiefs win the championship?")

	rule, ok := Veto(a, b)
	if ok {
		t.Fatalf("want veto for nba vs nfl")
	}
	if rule != "league_mismatch" {
		t.Errorf("rule = %q, want league_mismatch", rule)
	}
}

func TestVeto_OneSidedTopic(t *testing.T) {
	a := ExtractEntities("Will a Bitcoin ETF be approved by June?")
	b := ExtractEntities("Will Bitcoin rise by June?")

	rule, ok := Veto(a, b)
	if ok {
		t.Fatalf("want veto when only one side mentions the ETF")
	}
	if rule != "one_sided_topic" {
		t.Errorf("rule = %q, want one_sided_topic", rule)
	}
}

func TestVeto_YearGap(t *testing.T) {
	a := ExtractEntities("Presidential election winner 2026")
	b := ExtractEntities("Presidential election winner 2028")

	rule, ok := Veto(a, b)
	if ok {
		t.Fatalf("want veto for years two apart")
	}
	if rule != "year_gap" {
		t.Errorf("rule = %q, want year_gap", rule)
	}
}

func TestVeto_AdjacentYearsPass(t *testing.T) {
	// Season-spanning questions straddle year ends; adjacent years are
	// tolerated.
	a := ExtractEntities("Will the recession start in 2025?")
	b := ExtractEntities("Recession declared by early 2026?")

	if rule, ok := Veto(a, b); !ok {
		t.Errorf("vetoed by %q, want pass for adjacent years", rule)
	}
}

func TestVeto_NoEntitiesPasses(t *testing.T) {
	a := ExtractEntities("Will it happen?")
	b := ExtractEntities("Will that occur?")

	if rule, ok := Veto(a, b); !ok {
		t.Errorf("vetoed by %q, want pass when no typed entities exist", rule)
	}
}
