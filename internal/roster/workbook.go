// Package roster loads an externally maintained roster workbook and compares
// it with the players stored in a league database.
package roster

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"rosterinjector/pkg/domain"
)

// SheetName is the worksheet holding the roster.
const SheetName = "Roster"

// Row layout of the roster sheet. Players occupy even rows only.
const (
	firstPitcherRow = 6
	lastPitcherRow  = 22
	firstHitterRow  = 26
	lastHitterRow   = 52
)

// Column letters of the roster sheet.
const (
	colName      = "B"
	colPosition  = "H"
	colSecondary = "J"
	colBat       = "L"
	colThrow     = "N"
	colPower     = "P"
	colContact   = "S"
	colSpeed     = "V"
	colField     = "Y"
	colArm       = "AB"
	colVelocity  = "AE"
	colJunk      = "AH"
	colAccuracy  = "AK"
	colChemistry = "AN"
	colTrait1    = "AS"
	colTrait2    = "AZ"
	colAngle     = "BT"
)

// pitchColumns are BL..BS in sheet order.
var pitchColumns = []struct {
	col string
	set func(*domain.PitchSet, bool)
}{
	{"BL", func(s *domain.PitchSet, v bool) { s.FourSeam = v }},
	{"BM", func(s *domain.PitchSet, v bool) { s.TwoSeam = v }},
	{"BN", func(s *domain.PitchSet, v bool) { s.Cutter = v }},
	{"BO", func(s *domain.PitchSet, v bool) { s.Change = v }},
	{"BP", func(s *domain.PitchSet, v bool) { s.Curve = v }},
	{"BQ", func(s *domain.PitchSet, v bool) { s.Slider = v }},
	{"BR", func(s *domain.PitchSet, v bool) { s.Fork = v }},
	{"BS", func(s *domain.PitchSet, v bool) { s.Screwball = v }},
}

var (
	pitcherPositions = []domain.Position{
		domain.PositionStarter, domain.PositionSwingman, domain.PositionReliever, domain.PositionCloser,
	}
	fieldPositions = []domain.Position{
		domain.PositionCatcher, domain.PositionFirstBase, domain.PositionSecondBase, domain.PositionThirdBase,
		domain.PositionShortStop, domain.PositionLeftField, domain.PositionCenterField, domain.PositionRightField,
		domain.PositionInfield, domain.PositionOutfield, domain.PositionFirstOrOF, domain.PositionIFOrOF,
		domain.PositionNone,
	}
)

// LoadWorkbookFile opens path and loads its roster sheet.
func LoadWorkbookFile(path string) ([]domain.Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.IOError{Op: "open", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	return LoadWorkbook(f)
}

// LoadWorkbook reads pitchers then position players from the Roster sheet.
// Rows with an empty name are ignored; an unknown position fails the load.
func LoadWorkbook(r io.Reader) ([]domain.Player, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.FormatError{Reason: "open roster workbook", Err: err}
	}
	defer func() { _ = f.Close() }()
	idx, err := f.GetSheetIndex(SheetName)
	if err != nil || idx < 0 {
		return nil, domain.NotFoundError{Entity: "sheet", ID: SheetName}
	}
	s := sheet{f: f}

	var players []domain.Player
	for row := firstPitcherRow; row <= lastPitcherRow; row += 2 {
		p, ok, err := s.pitcher(row)
		if err != nil {
			return nil, err
		}
		if ok {
			players = append(players, p)
		}
	}
	for row := firstHitterRow; row <= lastHitterRow; row += 2 {
		p, ok, err := s.hitter(row)
		if err != nil {
			return nil, err
		}
		if ok {
			players = append(players, p)
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return players, nil
}

type sheet struct {
	f   *excelize.File
	err error
}

func (s *sheet) text(col string, row int) string {
	v, err := s.f.GetCellValue(SheetName, fmt.Sprintf("%s%d", col, row))
	if err != nil && s.err == nil {
		s.err = fmt.Errorf("read %s%d: %w", col, row, err)
	}
	return strings.TrimSpace(v)
}

// number parses a numeric cell, treating anything unparsable as 0.
func (s *sheet) number(col string, row int) int {
	v, err := strconv.ParseFloat(s.text(col, row), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}

func (s *sheet) flag(col string, row int) bool {
	return strings.EqualFold(s.text(col, row), "TRUE")
}

func (s *sheet) trait(col string, row int) domain.Trait {
	if v := s.text(col, row); v != "" {
		return domain.Trait(v)
	}
	return domain.NoTrait
}

func oneOf(p domain.Position, allowed []domain.Position) bool {
	for _, a := range allowed {
		if a == p {
			return true
		}
	}
	return false
}

func positionList(ps []domain.Position) string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return strings.Join(out, ", ")
}

func (s *sheet) pitcher(row int) (domain.Player, bool, error) {
	name := s.text(colName, row)
	if name == "" {
		return domain.Player{}, false, nil
	}
	pos := domain.Position(s.text(colPosition, row))
	if !oneOf(pos, pitcherPositions) {
		return domain.Player{}, false, domain.ValidationError{
			Field:  fmt.Sprintf("%s%d", colPosition, row),
			Reason: fmt.Sprintf("invalid pitcher position %q, must be one of: %s", pos, positionList(pitcherPositions)),
		}
	}
	p := domain.Player{
		Name:      name,
		Kind:      domain.KindPitcher,
		Position:  pos,
		Bat:       domain.BattingHand(s.text(colBat, row)),
		Throw:     domain.ThrowingHand(s.text(colThrow, row)),
		Power:     s.number(colPower, row),
		Contact:   s.number(colContact, row),
		Speed:     s.number(colSpeed, row),
		Field:     s.number(colField, row),
		Chemistry: domain.Chemistry(s.text(colChemistry, row)),
		Trait1:    s.trait(colTrait1, row),
		Trait2:    s.trait(colTrait2, row),
		Pitching: &domain.Pitching{
			Velocity: s.number(colVelocity, row),
			Junk:     s.number(colJunk, row),
			Accuracy: s.number(colAccuracy, row),
			ArmAngle: domain.ArmAngle(s.text(colAngle, row)),
		},
	}
	for _, pc := range pitchColumns {
		pc.set(&p.Pitching.Pitches, s.flag(pc.col, row))
	}
	return p, true, nil
}

func (s *sheet) hitter(row int) (domain.Player, bool, error) {
	name := s.text(colName, row)
	if name == "" {
		return domain.Player{}, false, nil
	}
	pos := domain.Position(s.text(colPosition, row))
	if !oneOf(pos, fieldPositions) {
		return domain.Player{}, false, domain.ValidationError{
			Field:  fmt.Sprintf("%s%d", colPosition, row),
			Reason: fmt.Sprintf("invalid position %q, must be one of: %s", pos, positionList(fieldPositions)),
		}
	}
	secondary := domain.Position(s.text(colSecondary, row))
	if secondary == "" {
		secondary = domain.PositionNone
	}
	if !oneOf(secondary, fieldPositions) {
		return domain.Player{}, false, domain.ValidationError{
			Field:  fmt.Sprintf("%s%d", colSecondary, row),
			Reason: fmt.Sprintf("invalid secondary position %q, must be one of: %s", secondary, positionList(fieldPositions)),
		}
	}
	p := domain.Player{
		Name:      name,
		Kind:      domain.KindPositionPlayer,
		Position:  pos,
		Bat:       domain.BattingHand(orDefault(s.text(colBat, row), string(domain.BatRight))),
		Throw:     domain.ThrowingHand(orDefault(s.text(colThrow, row), string(domain.ThrowRight))),
		Power:     s.number(colPower, row),
		Contact:   s.number(colContact, row),
		Speed:     s.number(colSpeed, row),
		Field:     s.number(colField, row),
		Chemistry: domain.Chemistry(orDefault(s.text(colChemistry, row), string(domain.ChemistryCompetitive))),
		Trait1:    s.trait(colTrait1, row),
		Trait2:    s.trait(colTrait2, row),
		Fielding:  &domain.Fielding{SecondaryPosition: secondary, Arm: s.number(colArm, row)},
	}
	return p, true, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
