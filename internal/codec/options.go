package codec

import "rosterinjector/pkg/domain"

// OptionKey identifies a row in the per-player options table.
type OptionKey int

// Option keys used by the player options table.
const (
	OptionThrowingHand      OptionKey = 4
	OptionBattingHand       OptionKey = 5
	OptionArmAngle          OptionKey = 49
	OptionPrimaryPosition   OptionKey = 54
	OptionSecondaryPosition OptionKey = 55
	OptionPitchRole         OptionKey = 57
	OptionFourSeam          OptionKey = 58
	OptionTwoSeam           OptionKey = 59
	OptionScrewball         OptionKey = 60
	OptionChangeUp          OptionKey = 61
	OptionFork              OptionKey = 62
	OptionCurveball         OptionKey = 63
	OptionSlider            OptionKey = 64
	OptionCutter            OptionKey = 65
	OptionChemistry         OptionKey = 107
)

// OptionType is the discriminator stored next to each option value.
type OptionType int

// Option value types.
const (
	OptionTypeEnum OptionType = 0
	OptionTypeFlag OptionType = 1
)

var optionTypes = map[OptionKey]OptionType{
	OptionThrowingHand:      OptionTypeEnum,
	OptionBattingHand:       OptionTypeEnum,
	OptionArmAngle:          OptionTypeEnum,
	OptionPrimaryPosition:   OptionTypeEnum,
	OptionSecondaryPosition: OptionTypeEnum,
	OptionPitchRole:         OptionTypeEnum,
	OptionFourSeam:          OptionTypeFlag,
	OptionTwoSeam:           OptionTypeFlag,
	OptionScrewball:         OptionTypeFlag,
	OptionChangeUp:          OptionTypeFlag,
	OptionFork:              OptionTypeFlag,
	OptionCurveball:         OptionTypeFlag,
	OptionSlider:            OptionTypeFlag,
	OptionCutter:            OptionTypeFlag,
	OptionChemistry:         OptionTypeEnum,
}

// TypeOf returns the fixed type discriminator for key.
func TypeOf(key OptionKey) (OptionType, bool) {
	t, ok := optionTypes[key]
	return t, ok
}

// PitchOption binds a pitch flag to its option key and display label.
type PitchOption struct {
	Key   OptionKey
	Label string
	Get   func(domain.PitchSet) bool
	Set   func(*domain.PitchSet, bool)
}

// PitchOptions lists the eight pitch flags in option key order.
var PitchOptions = []PitchOption{
	{OptionFourSeam, "4-Seam", func(s domain.PitchSet) bool { return s.FourSeam }, func(s *domain.PitchSet, v bool) { s.FourSeam = v }},
	{OptionTwoSeam, "2-Seam", func(s domain.PitchSet) bool { return s.TwoSeam }, func(s *domain.PitchSet, v bool) { s.TwoSeam = v }},
	{OptionScrewball, "Screwball", func(s domain.PitchSet) bool { return s.Screwball }, func(s *domain.PitchSet, v bool) { s.Screwball = v }},
	{OptionChangeUp, "Changeup", func(s domain.PitchSet) bool { return s.Change }, func(s *domain.PitchSet, v bool) { s.Change = v }},
	{OptionFork, "Fork", func(s domain.PitchSet) bool { return s.Fork }, func(s *domain.PitchSet, v bool) { s.Fork = v }},
	{OptionCurveball, "Curveball", func(s domain.PitchSet) bool { return s.Curve }, func(s *domain.PitchSet, v bool) { s.Curve = v }},
	{OptionSlider, "Slider", func(s domain.PitchSet) bool { return s.Slider }, func(s *domain.PitchSet, v bool) { s.Slider = v }},
	{OptionCutter, "Cutter", func(s domain.PitchSet) bool { return s.Cutter }, func(s *domain.PitchSet, v bool) { s.Cutter = v }},
}
