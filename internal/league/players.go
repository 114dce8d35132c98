package league

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"rosterinjector/internal/codec"
	"rosterinjector/pkg/domain"
)

const playersQuery = `
SELECT
    p.GUID,
    vbpi.firstName,
    vbpi.lastName,
    p.power, p.contact, p.speed, p.fielding, p.arm,
    p.velocity, p.junk, p.accuracy,
    vbpi.primaryPosition,
    secondaryPosition.optionValue,
    vbpi.pitcherRole,
    batting.optionValue,
    throwing.optionValue,
    chemistry.optionValue,
    fourSeam.optionValue,
    twoSeam.optionValue,
    SB.optionValue,
    CH.optionValue,
    FK.optionValue,
    CB.optionValue,
    SL.optionValue,
    CF.optionValue,
    armAngle.optionValue,
    (SELECT json_group_array(json_object('traitId', tr.trait, 'subtypeId', tr.subType))
       FROM (SELECT trait, subType FROM t_baseball_player_traits
              WHERE baseballPlayerLocalID = lid.localID
              ORDER BY rowid LIMIT 2) tr) AS traits
FROM t_baseball_players p
INNER JOIN t_baseball_player_local_ids lid
    ON lid.GUID = p.GUID
INNER JOIN v_baseball_player_info vbpi
    ON vbpi.baseballPlayerGUID = lid.GUID
INNER JOIN t_baseball_player_options batting
    ON batting.baseballPlayerLocalID = lid.localID AND batting.optionKey = 5
INNER JOIN t_baseball_player_options throwing
    ON throwing.baseballPlayerLocalID = lid.localID AND throwing.optionKey = 4
INNER JOIN t_baseball_player_options chemistry
    ON chemistry.baseballPlayerLocalID = lid.localID AND chemistry.optionKey = 107
LEFT JOIN t_baseball_player_options secondaryPosition
    ON secondaryPosition.baseballPlayerLocalID = lid.localID AND secondaryPosition.optionKey = 55
LEFT JOIN t_baseball_player_options fourSeam
    ON fourSeam.baseballPlayerLocalID = lid.localID AND fourSeam.optionKey = 58
LEFT JOIN t_baseball_player_options twoSeam
    ON twoSeam.baseballPlayerLocalID = lid.localID AND twoSeam.optionKey = 59
LEFT JOIN t_baseball_player_options SB
    ON SB.baseballPlayerLocalID = lid.localID AND SB.optionKey = 60
LEFT JOIN t_baseball_player_options CH
    ON CH.baseballPlayerLocalID = lid.localID AND CH.optionKey = 61
LEFT JOIN t_baseball_player_options FK
    ON FK.baseballPlayerLocalID = lid.localID AND FK.optionKey = 62
LEFT JOIN t_baseball_player_options CB
    ON CB.baseballPlayerLocalID = lid.localID AND CB.optionKey = 63
LEFT JOIN t_baseball_player_options SL
    ON SL.baseballPlayerLocalID = lid.localID AND SL.optionKey = 64
LEFT JOIN t_baseball_player_options CF
    ON CF.baseballPlayerLocalID = lid.localID AND CF.optionKey = 65
LEFT JOIN t_baseball_player_options armAngle
    ON armAngle.baseballPlayerLocalID = lid.localID AND armAngle.optionKey = 49
WHERE p.teamGUID = ?
ORDER BY lid.localID`

type playerRow struct {
	guid                                 []byte
	first, last                          string
	power, contact, speed, fielding, arm sql.NullInt64
	velocity, junk, accuracy             sql.NullInt64
	primary, secondary, role             sql.NullInt64
	batting, throwing, chemistry         int64
	pitches                              [8]sql.NullInt64 // same order as codec.PitchOptions
	armAngle                             sql.NullInt64
	traits                               sql.NullString
}

// ReadPlayers returns every player on the team, in local id order.
func (r *Reader) ReadPlayers(ctx context.Context, q Querier, teamGUID string) ([]domain.Player, error) {
	blob, err := codec.GUIDBytes(teamGUID)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, playersQuery, blob)
	if err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var players []domain.Player
	for rows.Next() {
		var pr playerRow
		dest := []any{
			&pr.guid, &pr.first, &pr.last,
			&pr.power, &pr.contact, &pr.speed, &pr.fielding, &pr.arm,
			&pr.velocity, &pr.junk, &pr.accuracy,
			&pr.primary, &pr.secondary, &pr.role,
			&pr.batting, &pr.throwing, &pr.chemistry,
		}
		for i := range pr.pitches {
			dest = append(dest, &pr.pitches[i])
		}
		dest = append(dest, &pr.armAngle, &pr.traits)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p, err := pr.toDomain()
		if err != nil {
			return nil, fmt.Errorf("player %s %s: %w", pr.first, pr.last, err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

func (pr playerRow) toDomain() (domain.Player, error) {
	guid, err := codec.GUIDString(pr.guid)
	if err != nil {
		return domain.Player{}, err
	}
	var role *int64
	if pr.role.Valid {
		role = &pr.role.Int64
	}
	position := codec.PlayerPosition(pr.primary.Int64, role)

	p := domain.Player{
		GUID:     guid,
		Name:     strings.TrimSpace(pr.first + " " + pr.last),
		Kind:     domain.KindFor(position),
		Position: position,
		Power:    int(pr.power.Int64),
		Contact:  int(pr.contact.Int64),
		Speed:    int(pr.speed.Int64),
		Field:    int(pr.fielding.Int64),
	}
	if p.Bat, err = codec.BattingHand(pr.batting); err != nil {
		return domain.Player{}, err
	}
	if p.Throw, err = codec.ThrowingHand(pr.throwing); err != nil {
		return domain.Player{}, err
	}
	if p.Chemistry, err = codec.Chemistry(pr.chemistry); err != nil {
		return domain.Player{}, err
	}
	traits, err := decodeTraits(pr.traits)
	if err != nil {
		return domain.Player{}, err
	}
	p.Trait1, p.Trait2 = domain.NoTrait, domain.NoTrait
	if len(traits) > 0 {
		p.Trait1 = traits[0]
	}
	if len(traits) > 1 {
		p.Trait2 = traits[1]
	}

	if p.Kind == domain.KindPitcher {
		pitching := &domain.Pitching{
			Velocity: int(pr.velocity.Int64),
			Junk:     int(pr.junk.Int64),
			Accuracy: int(pr.accuracy.Int64),
		}
		if pr.armAngle.Valid {
			pitching.ArmAngle = codec.ArmAngle(pr.armAngle.Int64)
		}
		for i, opt := range codec.PitchOptions {
			opt.Set(&pitching.Pitches, pr.pitches[i].Valid && pr.pitches[i].Int64 == 1)
		}
		p.Pitching = pitching
		return p, nil
	}

	secondary := domain.PositionNone
	if pr.secondary.Valid {
		secondary = codec.PlayerPosition(pr.secondary.Int64, nil)
	}
	p.Fielding = &domain.Fielding{SecondaryPosition: secondary, Arm: int(pr.arm.Int64)}
	return p, nil
}

type storedTrait struct {
	TraitID   int64 `json:"traitId"`
	SubtypeID int64 `json:"subtypeId"`
}

func decodeTraits(raw sql.NullString) ([]domain.Trait, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var stored []storedTrait
	if err := json.Unmarshal([]byte(raw.String), &stored); err != nil {
		return nil, fmt.Errorf("decode traits: %w", err)
	}
	out := make([]domain.Trait, 0, len(stored))
	for _, st := range stored {
		name, err := codec.TraitName(st.TraitID, st.SubtypeID)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}
