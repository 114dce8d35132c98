package codec

import (
	"fmt"

	"rosterinjector/pkg/domain"
)

var positionNames = map[int64]domain.Position{
	0:  "",
	1:  domain.PositionPitcher,
	2:  domain.PositionCatcher,
	3:  domain.PositionFirstBase,
	4:  domain.PositionSecondBase,
	5:  domain.PositionThirdBase,
	6:  domain.PositionShortStop,
	7:  domain.PositionLeftField,
	8:  domain.PositionCenterField,
	9:  domain.PositionRightField,
	10: domain.PositionInfield,
	11: domain.PositionOutfield,
	12: domain.PositionFirstOrOF,
	13: domain.PositionIFOrOF,
}

var pitchRoles = map[int64]domain.Position{
	1: domain.PositionStarter,
	2: domain.PositionSwingman,
	3: domain.PositionReliever,
	4: domain.PositionCloser,
}

var battingHands = map[int64]domain.BattingHand{
	0: domain.BatLeft,
	1: domain.BatRight,
	2: domain.BatSwitch,
}

var throwingHands = map[int64]domain.ThrowingHand{
	0: domain.ThrowLeft,
	1: domain.ThrowRight,
}

var chemistries = map[int64]domain.Chemistry{
	0: domain.ChemistryCompetitive,
	1: domain.ChemistrySpirited,
	2: domain.ChemistryDisciplined,
	3: domain.ChemistryScholarly,
	4: domain.ChemistryCrafty,
}

var armAngles = map[int64]domain.ArmAngle{
	0: domain.ArmAngleSub,
	1: domain.ArmAngleLow,
	2: domain.ArmAngleMid,
	3: domain.ArmAngleHigh,
}

// PlayerPosition resolves a stored primary position code. A pitcher primary
// with a known pitch role resolves to that role; unknown codes degrade to "-".
func PlayerPosition(code int64, pitchRole *int64) domain.Position {
	if code == 1 && pitchRole != nil {
		if role, ok := pitchRoles[*pitchRole]; ok {
			return role
		}
	}
	if pos, ok := positionNames[code]; ok && pos != "" {
		return pos
	}
	return domain.PositionNone
}

// PositionCode is the reverse of PlayerPosition for fielding positions.
// "-", empty and pitcher roles map to 0 (none).
func PositionCode(p domain.Position) int64 {
	if p == "" || p == domain.PositionNone {
		return 0
	}
	for code, name := range positionNames {
		if name == p {
			return code
		}
	}
	return 0
}

// PitchRoleCode returns the pitch role code for a pitcher position, or 0.
func PitchRoleCode(p domain.Position) int64 {
	for code, role := range pitchRoles {
		if role == p {
			return code
		}
	}
	return 0
}

// BattingHand resolves a stored batting hand; unknown values are corrupt data.
func BattingHand(code int64) (domain.BattingHand, error) {
	if v, ok := battingHands[code]; ok {
		return v, nil
	}
	return "", domain.IntegrityError{Reason: fmt.Sprintf("invalid batting hand value %d", code)}
}

// BattingHandCode is the reverse of BattingHand.
func BattingHandCode(v domain.BattingHand) (int64, error) {
	for code, name := range battingHands {
		if name == v {
			return code, nil
		}
	}
	return 0, domain.ValidationError{Field: "bat", Reason: fmt.Sprintf("unknown batting hand %q", v)}
}

// ThrowingHand resolves a stored throwing hand.
func ThrowingHand(code int64) (domain.ThrowingHand, error) {
	if v, ok := throwingHands[code]; ok {
		return v, nil
	}
	return "", domain.IntegrityError{Reason: fmt.Sprintf("invalid throwing hand value %d", code)}
}

// ThrowingHandCode is the reverse of ThrowingHand.
func ThrowingHandCode(v domain.ThrowingHand) (int64, error) {
	for code, name := range throwingHands {
		if name == v {
			return code, nil
		}
	}
	return 0, domain.ValidationError{Field: "throw", Reason: fmt.Sprintf("unknown throwing hand %q", v)}
}

// Chemistry resolves a stored chemistry value.
func Chemistry(code int64) (domain.Chemistry, error) {
	if v, ok := chemistries[code]; ok {
		return v, nil
	}
	return "", domain.IntegrityError{Reason: fmt.Sprintf("invalid chemistry value %d", code)}
}

// ChemistryCode is the reverse of Chemistry.
func ChemistryCode(v domain.Chemistry) (int64, error) {
	for code, name := range chemistries {
		if name == v {
			return code, nil
		}
	}
	return 0, domain.ValidationError{Field: "chemistry", Reason: fmt.Sprintf("unknown chemistry %q", v)}
}

// ArmAngle resolves a stored arm angle, degrading to "" when unknown.
func ArmAngle(code int64) domain.ArmAngle {
	return armAngles[code]
}

// ArmAngleCode is the reverse of ArmAngle. Unknown angles default to Mid.
func ArmAngleCode(v domain.ArmAngle) int64 {
	for code, name := range armAngles {
		if name == v {
			return code
		}
	}
	return 2
}

// ValidArmAngle reports whether v is one of the four known angles.
func ValidArmAngle(v domain.ArmAngle) bool {
	for _, name := range armAngles {
		if name == v {
			return true
		}
	}
	return false
}
