package roster

import (
	"sort"
	"strconv"
	"strings"

	"rosterinjector/pkg/domain"
)

// Match pairs each roster player with the database player of the same name
// and records the properties that differ. Unmatched roster players are kept
// with IsMatched false so callers can report them.
func Match(rosterPlayers, dbPlayers []domain.Player) []domain.Comparison {
	byName := make(map[string]int, len(dbPlayers))
	for i, p := range dbPlayers {
		if _, dup := byName[p.Name]; !dup {
			byName[p.Name] = i
		}
	}
	out := make([]domain.Comparison, 0, len(rosterPlayers))
	for _, rp := range rosterPlayers {
		c := domain.Comparison{Roster: rp}
		if i, ok := byName[rp.Name]; ok {
			matched := dbPlayers[i]
			c.Matched = &matched
			c.IsMatched = true
			c.Diffs = Diffs(rp, matched)
		}
		out = append(out, c)
	}
	return out
}

// Diffs lists the properties on which the roster and database records
// disagree. Variant-specific properties are compared only when both sides
// are the same variant.
func Diffs(rp, dp domain.Player) []domain.Diff {
	var diffs []domain.Diff
	add := func(prop, display, r, d string) {
		if r != d {
			diffs = append(diffs, domain.Diff{Property: prop, DisplayName: display, Roster: r, Database: d})
		}
	}
	num := strconv.Itoa
	flag := strconv.FormatBool

	add("position", "Position", string(rp.Position), string(dp.Position))
	add("bat", "Bat", string(rp.Bat), string(dp.Bat))
	add("throw", "Throw", string(rp.Throw), string(dp.Throw))
	add("power", "Power", num(rp.Power), num(dp.Power))
	add("contact", "Contact", num(rp.Contact), num(dp.Contact))
	add("speed", "Speed", num(rp.Speed), num(dp.Speed))
	add("field", "Field", num(rp.Field), num(dp.Field))
	add("chemistry", "Chemistry", string(rp.Chemistry), string(dp.Chemistry))
	add("traits", "Traits", traitSet(rp), traitSet(dp))

	switch {
	case rp.Pitching != nil && dp.Pitching != nil:
		r, d := rp.Pitching, dp.Pitching
		add("velocity", "Velocity", num(r.Velocity), num(d.Velocity))
		add("junk", "Junk", num(r.Junk), num(d.Junk))
		add("accuracy", "Accuracy", num(r.Accuracy), num(d.Accuracy))
		add("fourseam", "4F", flag(r.Pitches.FourSeam), flag(d.Pitches.FourSeam))
		add("twoseam", "2F", flag(r.Pitches.TwoSeam), flag(d.Pitches.TwoSeam))
		add("cutter", "CF", flag(r.Pitches.Cutter), flag(d.Pitches.Cutter))
		add("change", "CH", flag(r.Pitches.Change), flag(d.Pitches.Change))
		add("curve", "CB", flag(r.Pitches.Curve), flag(d.Pitches.Curve))
		add("slider", "SL", flag(r.Pitches.Slider), flag(d.Pitches.Slider))
		add("fork", "FK", flag(r.Pitches.Fork), flag(d.Pitches.Fork))
		add("screw", "SB", flag(r.Pitches.Screwball), flag(d.Pitches.Screwball))
		add("angle", "Arm Angle", string(r.ArmAngle), string(d.ArmAngle))
	case rp.Fielding != nil && dp.Fielding != nil:
		r, d := rp.Fielding, dp.Fielding
		add("secondaryPosition", "Secondary Position", string(r.SecondaryPosition), string(d.SecondaryPosition))
		add("arm", "Arm", num(r.Arm), num(d.Arm))
	}
	return diffs
}

// traitSet renders the set trait slots sorted, or "--" when there are none.
func traitSet(p domain.Player) string {
	ts := p.Traits()
	if len(ts) == 0 {
		return string(domain.NoTrait)
	}
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = string(t)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
