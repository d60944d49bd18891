package tracker

import (
	"strings"

	"github.com/dk-butsuri/keihan-tracker/position"
)

// Witness stations for category inference. The presence or absence of
// these stations in a train's stop set decides its service tier.
const (
	stInnerHub      = 4  // 京橋: every main-line service tier calls here except the skip-hub patterns
	stAlwaysLocal   = 5  // 野江: served by all-stops trains only
	stCitySide      = 2  // 北浜: short city-side witness for trains that skip the hub
	stLadderLocal   = 6  // 関目
	stLadderSemiExp = 16 // 萱島: where the inner all-stops section ends
	stLadderSubExp  = 19 // 光善寺
	stLadderExp     = 11 // 守口市
	stBoundary      = 21 // 枚方市: boundary marker between the two termini
	stExpressOnly   = 37 // 七条: called at only by the top express tiers
)

// linerMark selects the liner sub-tier by name substring. The check runs
// against the train number/name frozen from the live feed; schedule-only
// trains carry no name and never infer the liner tier.
const linerMark = "ライナー"

// inferenceInput is the digested stop set a rule inspects.
type inferenceInput struct {
	stops    map[int]bool
	minTrunk int // lowest trunk station stopped at, 0 when none
	maxTrunk int
	nameHint string
}

// categoryRule is one (predicate, result) entry of the inference table.
type categoryRule struct {
	name  string
	apply func(in inferenceInput) (Category, bool)
}

func witness(station int, c Category) func(inferenceInput) (Category, bool) {
	return func(in inferenceInput) (Category, bool) {
		if in.stops[station] {
			return c, true
		}
		return "", false
	}
}

// categoryRules is evaluated top to bottom; the first match wins and
// anything that falls through is a local.
var categoryRules = []categoryRule{
	{name: "branch local", apply: func(in inferenceInput) (Category, bool) {
		for n := range in.stops {
			if !offTrunkStations[n] {
				return "", false
			}
		}
		return CategoryLocal, true
	}},
	{name: "all-stops witness", apply: witness(stAlwaysLocal, CategoryLocal)},
	{name: "skips inner hub", apply: func(in inferenceInput) (Category, bool) {
		if in.stops[stInnerHub] {
			return "", false
		}
		if in.stops[stCitySide] {
			return CategoryLocal, true
		}
		if in.minTrunk < stBoundary && in.maxTrunk > stBoundary {
			if strings.Contains(in.nameHint, linerMark) {
				return CategoryLiner, true
			}
			return CategoryRapidExpress, true
		}
		return CategoryExpress, true
	}},
	{name: "ladder local", apply: witness(stLadderLocal, CategoryLocal)},
	{name: "ladder semi-express", apply: witness(stLadderSemiExp, CategorySemiExpress)},
	{name: "ladder sub-express", apply: witness(stLadderSubExp, CategorySubExpress)},
	{name: "ladder express", apply: witness(stLadderExp, CategoryExpress)},
	{name: "express-only witness", apply: func(in inferenceInput) (Category, bool) {
		if !in.stops[stExpressOnly] {
			return "", false
		}
		if !in.stops[stBoundary] {
			return CategoryRapidLimitedExpress, true
		}
		if strings.Contains(in.nameHint, linerMark) {
			return CategoryLiner, true
		}
		return CategoryLimitedExpress, true
	}},
	{name: "boundary rapid", apply: witness(stBoundary, CategoryRapidExpress)},
}

// offTrunkStations are the branch and junction stations: a train whose
// stop set never leaves them runs entirely off the trunk.
var offTrunkStations = func() map[int]bool {
	set := map[int]bool{3: true, 21: true, 28: true}
	for n := 51; n <= 54; n++ {
		set[n] = true
	}
	for n := 61; n <= 67; n++ {
		set[n] = true
	}
	for n := 71; n <= 77; n++ {
		set[n] = true
	}
	return set
}()

// InferCategory classifies a train by the set of stations it stops at.
// It is used only when no authoritative category from the live feed is
// cached. The classification is heuristic: the upstream feed itself
// labels some trains inconsistently, and absence of any match always
// falls through to the lowest tier rather than failing.
func InferCategory(route []StopEvent, nameHint string) Category {
	in := inferenceInput{stops: map[int]bool{}, nameHint: nameHint}
	for _, ev := range route {
		if !ev.IsStop {
			continue
		}
		n := ev.Station.Number
		in.stops[n] = true
		if n >= 1 && n <= 42 {
			if in.minTrunk == 0 || n < in.minTrunk {
				in.minTrunk = n
			}
			if n > in.maxTrunk {
				in.maxTrunk = n
			}
		}
	}
	if len(in.stops) == 0 {
		return CategoryLocal
	}
	for _, r := range categoryRules {
		if c, ok := r.apply(in); ok {
			return c
		}
	}
	return CategoryLocal
}

// Trains terminating at a branch terminus have a fixed direction: the
// trunk station-number comparison cannot see branch numbering.
var branchTerminusDirection = map[int]position.Direction{
	77: position.DirectionDown, // 宇治
	67: position.DirectionDown, // 私市
	54: position.DirectionDown, // 中之島
}

// InferDirection deduces the direction of travel from the route's
// endpoints. Trains leaving a branch run up toward its junction; on the
// trunk, a destination with a lower number than the origin means down
// (toward the city center).
func InferDirection(route []StopEvent) position.Direction {
	var origin, dest int
	for _, ev := range route {
		if ev.IsStart {
			origin = ev.Station.Number
		}
		if ev.IsFinal {
			dest = ev.Station.Number
		}
	}
	if origin == 0 || dest == 0 {
		return position.DirectionDown
	}
	if d, ok := branchTerminusDirection[dest]; ok {
		return d
	}
	if origin >= 51 {
		return position.DirectionUp
	}
	if dest < origin {
		return position.DirectionDown
	}
	return position.DirectionUp
}
