package domain

// Position is a fielding position or pitcher role as displayed to players.
type Position string

// Positions known to the game.
const (
	PositionNone        Position = "-"
	PositionPitcher     Position = "P"
	PositionStarter     Position = "SP"
	PositionSwingman    Position = "SP/RP"
	PositionReliever    Position = "RP"
	PositionCloser      Position = "CP"
	PositionCatcher     Position = "C"
	PositionFirstBase   Position = "1B"
	PositionSecondBase  Position = "2B"
	PositionThirdBase   Position = "3B"
	PositionShortStop   Position = "SS"
	PositionLeftField   Position = "LF"
	PositionCenterField Position = "CF"
	PositionRightField  Position = "RF"
	PositionInfield     Position = "IF"
	PositionOutfield    Position = "OF"
	PositionFirstOrOF   Position = "1B/OF"
	PositionIFOrOF      Position = "IF/OF"
)

// IsPitcher reports whether p belongs to the pitcher category {SP, SP/RP, RP, CP}.
func (p Position) IsPitcher() bool {
	switch p {
	case PositionStarter, PositionSwingman, PositionReliever, PositionCloser:
		return true
	}
	return false
}

// BattingHand is L, R or S.
type BattingHand string

// ThrowingHand is L or R.
type ThrowingHand string

// Batting and throwing hands.
const (
	BatLeft    BattingHand  = "L"
	BatRight   BattingHand  = "R"
	BatSwitch  BattingHand  = "S"
	ThrowLeft  ThrowingHand = "L"
	ThrowRight ThrowingHand = "R"
)

// Chemistry is the player's clubhouse chemistry type.
type Chemistry string

// Chemistry values.
const (
	ChemistryCompetitive Chemistry = "Competitive"
	ChemistrySpirited    Chemistry = "Spirited"
	ChemistryDisciplined Chemistry = "Disciplined"
	ChemistryScholarly   Chemistry = "Scholarly"
	ChemistryCrafty      Chemistry = "Crafty"
)

// ArmAngle is a pitcher's delivery slot.
type ArmAngle string

// Arm angles.
const (
	ArmAngleSub  ArmAngle = "Sub"
	ArmAngleLow  ArmAngle = "Low"
	ArmAngleMid  ArmAngle = "Mid"
	ArmAngleHigh ArmAngle = "High"
)

// Trait is a catalog trait name such as "Clutch (+)".
type Trait string

// NoTrait marks an empty trait slot. It is never stored.
const NoTrait Trait = "--"

// IsSet reports whether t names a trait.
func (t Trait) IsSet() bool { return t != "" && t != NoTrait }

// PlayerKind tags the Player variant.
type PlayerKind int

// Player variants.
const (
	KindPositionPlayer PlayerKind = iota
	KindPitcher
)

func (k PlayerKind) String() string {
	if k == KindPitcher {
		return "pitcher"
	}
	return "position player"
}

// PitchSet holds the eight independent pitch-type flags.
type PitchSet struct {
	FourSeam  bool `json:"fourseam"`
	TwoSeam   bool `json:"twoseam"`
	Cutter    bool `json:"cutter"`
	Change    bool `json:"change"`
	Curve     bool `json:"curve"`
	Slider    bool `json:"slider"`
	Fork      bool `json:"fork"`
	Screwball bool `json:"screw"`
}

// Count returns the number of pitches thrown.
func (s PitchSet) Count() int {
	n := 0
	for _, v := range []bool{s.FourSeam, s.TwoSeam, s.Cutter, s.Change, s.Curve, s.Slider, s.Fork, s.Screwball} {
		if v {
			n++
		}
	}
	return n
}

// Fielding carries the position-player-only attributes.
type Fielding struct {
	SecondaryPosition Position `json:"secondary_position"`
	Arm               int      `json:"arm"`
}

// Pitching carries the pitcher-only attributes.
type Pitching struct {
	Velocity int      `json:"velocity"`
	Junk     int      `json:"junk"`
	Accuracy int      `json:"accuracy"`
	ArmAngle ArmAngle `json:"angle"`
	Pitches  PitchSet `json:"pitches"`
}

// Player is the normalized roster record. Exactly one of Fielding or Pitching
// is set and Kind says which; the variant is decided once when the record is built.
type Player struct {
	GUID      string       `json:"guid,omitempty"`
	Name      string       `json:"name"`
	Kind      PlayerKind   `json:"kind"`
	Position  Position     `json:"position"`
	Bat       BattingHand  `json:"bat"`
	Throw     ThrowingHand `json:"throw"`
	Power     int          `json:"power"`
	Contact   int          `json:"contact"`
	Speed     int          `json:"speed"`
	Field     int          `json:"field"`
	Chemistry Chemistry    `json:"chemistry"`
	Trait1    Trait        `json:"trait1"`
	Trait2    Trait        `json:"trait2"`
	Fielding  *Fielding    `json:"fielding,omitempty"`
	Pitching  *Pitching    `json:"pitching,omitempty"`
}

// KindFor returns the variant implied by a resolved position.
func KindFor(p Position) PlayerKind {
	if p.IsPitcher() {
		return KindPitcher
	}
	return KindPositionPlayer
}

// IsPitcher reports whether the record is the pitcher variant.
func (p Player) IsPitcher() bool { return p.Kind == KindPitcher }

// Traits returns the set trait slots in order.
func (p Player) Traits() []Trait {
	out := make([]Trait, 0, 2)
	for _, t := range []Trait{p.Trait1, p.Trait2} {
		if t.IsSet() {
			out = append(out, t)
		}
	}
	return out
}

// Comparison pairs an externally supplied roster player with the database
// player of the same name, when one exists.
type Comparison struct {
	Roster    Player  `json:"roster"`
	Matched   *Player `json:"matched,omitempty"`
	IsMatched bool    `json:"is_matched"`
	Diffs     []Diff  `json:"diffs,omitempty"`
}

// Diff records one differing property between roster and database values.
type Diff struct {
	Property    string `json:"property"`
	DisplayName string `json:"display_name"`
	Roster      string `json:"roster"`
	Database    string `json:"database"`
}
