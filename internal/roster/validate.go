package roster

import (
	"errors"
	"fmt"
	"strings"

	"rosterinjector/internal/updater"
	"rosterinjector/pkg/domain"
)

// Size is the number of players a complete roster carries.
const Size = 22

// MinPitches is the smallest pitch repertoire a pitcher may have.
const MinPitches = 2

// ValidatePlayer checks one roster player before it is written.
func ValidatePlayer(p domain.Player) error {
	if err := updater.Validate(p); err != nil {
		return err
	}
	if p.Trait1.IsSet() && p.Trait1 == p.Trait2 {
		return domain.ValidationError{Field: "traits", Reason: fmt.Sprintf("duplicate trait %q", p.Trait1)}
	}
	if p.IsPitcher() && p.Pitching.Pitches.Count() < MinPitches {
		return domain.ValidationError{
			Field:  "pitches",
			Reason: fmt.Sprintf("pitcher must have at least %d pitch types, has %d", MinPitches, p.Pitching.Pitches.Count()),
		}
	}
	return nil
}

// ValidateRoster checks the roster size and every player. All player
// failures are joined so one run reports them together.
func ValidateRoster(players []domain.Player) error {
	var errs []error
	if len(players) != Size {
		errs = append(errs, domain.ValidationError{
			Field:  "roster",
			Reason: fmt.Sprintf("found %d players, a roster must contain exactly %d", len(players), Size),
		})
	}
	for _, p := range players {
		if err := ValidatePlayer(p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", displayName(p), err))
		}
	}
	return errors.Join(errs...)
}

// ValidateTeamName rejects a donor team name that another team in the
// target league already uses. The team being replaced is excluded.
func ValidateTeamName(target domain.League, replacedGUID, name string) error {
	for _, t := range target.Teams {
		if t.GUID == replacedGUID {
			continue
		}
		if strings.EqualFold(t.Name, name) {
			return domain.ValidationError{
				Field:  "team_name",
				Reason: fmt.Sprintf("team name %q already exists in league %q", name, target.Name),
			}
		}
	}
	return nil
}

func displayName(p domain.Player) string {
	if p.Name == "" {
		return "unnamed player"
	}
	return p.Name
}
