package matching

// Semantic veto: cheap high-precision checks that reject a lexically similar
// pair whose underlying facts diverge. Each rule is an independent table
// entry; the first rule that fires wins and its name is reported for tuning.

type vetoRule struct {
	name string
	// fires reports whether the pair must be rejected.
	fires func(a, b Entities) bool
}

var vetoRules = []vetoRule{
	{name: "dollar_mismatch", fires: dollarMismatch},
	{name: "league_mismatch", fires: leagueMismatch},
	{name: "one_sided_topic", fires: oneSidedTopic},
	{name: "year_gap", fires: yearGap},
}

// Veto returns the name of the first rule rejecting the pair, or ok=true.
func Veto(a, b Entities) (rule string, ok bool) {
	for _, r := range vetoRules {
		if r.fires(a, b) {
			return r.name, false
		}
	}
	return "", true
}

// dollarMismatch fires when both titles state explicit dollar amounts and no
// amount is shared. "$75,000 by 2025" vs "$150,000 by 2025" is two different
// questions no matter how the rest of the words overlap.
func dollarMismatch(a, b Entities) bool {
	if len(a.Dollars) == 0 || len(b.Dollars) == 0 {
		return false
	}
	for _, x := range a.Dollars {
		for _, y := range b.Dollars {
			if x == y {
				return false
			}
		}
	}
	return true
}

// leagueMismatch fires when both titles resolve to leagues and the sets are
// disjoint. Resolution goes through the alias table first, so a team name on
// one side and its league name on the other never count as a mismatch.
func leagueMismatch(a, b Entities) bool {
	if len(a.Leagues) == 0 || len(b.Leagues) == 0 {
		return false
	}
	for _, x := range a.Leagues {
		for _, y := range b.Leagues {
			if x == y {
				return false
			}
		}
	}
	return true
}

// oneSidedTopic fires when one title names a specific topic the other omits
// entirely.
func oneSidedTopic(a, b Entities) bool {
	return hasUnsharedTopic(a, b) || hasUnsharedTopic(b, a)
}

func hasUnsharedTopic(from, other Entities) bool {
	for _, topic := range from.Topics {
		if _, ok := other.Tokens[topic]; !ok {
			return true
		}
	}
	return false
}

// yearGap fires when both titles state explicit years and every pairing is
// two or more years apart. Adjacent years are tolerated for season-spanning
// questions.
func yearGap(a, b Entities) bool {
	if len(a.Years) == 0 || len(b.Years) == 0 {
		return false
	}
	for _, x := range a.Years {
		for _, y := range b.Years {
			d := x - y
			if d < 0 {
				d = -d
			}
			if d <= 1 {
				return false
			}
		}
	}
	return true
}
