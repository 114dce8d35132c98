package updater

import (
	"rosterinjector/internal/codec"
	"rosterinjector/pkg/domain"
)

// Validate checks that a roster player carries every field its variant needs
// and that its enumerations are known.
func Validate(p domain.Player) error {
	if p.Name == "" {
		return domain.ValidationError{Field: "name", Reason: "required"}
	}
	if p.Bat == "" {
		return domain.ValidationError{Field: "bat", Reason: "required"}
	}
	if p.Throw == "" {
		return domain.ValidationError{Field: "throw", Reason: "required"}
	}
	if _, err := codec.BattingHandCode(p.Bat); err != nil {
		return err
	}
	if _, err := codec.ThrowingHandCode(p.Throw); err != nil {
		return err
	}
	if _, err := codec.ChemistryCode(p.Chemistry); err != nil {
		return err
	}
	if p.Kind != domain.KindFor(p.Position) {
		return domain.ValidationError{Field: "position", Reason: "position " + string(p.Position) + " does not match the " + p.Kind.String() + " variant"}
	}
	if p.IsPitcher() {
		if p.Pitching == nil {
			return domain.ValidationError{Field: "pitching", Reason: "pitcher attributes required"}
		}
		if p.Pitching.ArmAngle == "" {
			return domain.ValidationError{Field: "angle", Reason: "required"}
		}
		if !codec.ValidArmAngle(p.Pitching.ArmAngle) {
			return domain.ValidationError{Field: "angle", Reason: "unknown arm angle " + string(p.Pitching.ArmAngle)}
		}
		return nil
	}
	if p.Fielding == nil {
		return domain.ValidationError{Field: "fielding", Reason: "position player attributes required"}
	}
	return nil
}
