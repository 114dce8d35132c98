package transplant

import "fmt"

// KeyKind says how a dependent table references the roster being replaced.
type KeyKind int

// Dependent key kinds.
const (
	// KeyLocalID tables reference t_baseball_player_local_ids.localID.
	KeyLocalID KeyKind = iota
	// KeyGUID tables reference t_baseball_players.GUID.
	KeyGUID
	// KeyTeam is the player core table, selected by team GUID.
	KeyTeam
)

func (k KeyKind) String() string {
	switch k {
	case KeyLocalID:
		return "local_id"
	case KeyGUID:
		return "guid"
	case KeyTeam:
		return "team"
	}
	return fmt.Sprintf("KeyKind(%d)", int(k))
}

// Dependent is one (table, column) edge in the roster's dependency closure.
type Dependent struct {
	Table  string
	Column string
	Key    KeyKind
}

const (
	playersTable   = "t_baseball_players"
	localIDsTable  = "t_baseball_player_local_ids"
	optionsTable   = "t_baseball_player_options"
	traitsTable    = "t_baseball_player_traits"
	colorsTable    = "t_baseball_player_colors"
	localIDColumn  = "baseballPlayerLocalID"
	playerGUIDCol  = "baseballPlayerGUID"
	teamGUIDColumn = "teamGUID"
)

var closure = []Dependent{
	{"t_stats_batting", localIDColumn, KeyLocalID},
	{"t_stats_pitching", localIDColumn, KeyLocalID},
	{"t_draft_pool", localIDColumn, KeyLocalID},
	{"t_free_agents", localIDColumn, KeyLocalID},
	{"t_season_pitch_counts", localIDColumn, KeyLocalID},
	{"t_pending_players", localIDColumn, KeyLocalID},
	{"t_available_players", localIDColumn, KeyLocalID},
	{"t_news_references", localIDColumn, KeyLocalID},
	{"t_manager_moments", localIDColumn, KeyLocalID},
	{"t_game_results", "winningPitcherLocalID", KeyLocalID},
	{"t_game_results", "losingPitcherLocalID", KeyLocalID},
	{"t_game_results", "savingPitcherLocalID", KeyLocalID},
	{optionsTable, localIDColumn, KeyLocalID},
	{traitsTable, localIDColumn, KeyLocalID},
	{colorsTable, localIDColumn, KeyLocalID},

	{"t_batting_orders", playerGUIDCol, KeyGUID},
	{"t_defensive_positions", playerGUIDCol, KeyGUID},
	{"t_pitching_rotations", playerGUIDCol, KeyGUID},
	{"t_salary", playerGUIDCol, KeyGUID},
	{"t_training", playerGUIDCol, KeyGUID},
	{"t_retirements", playerGUIDCol, KeyGUID},
	{"t_contract_extensions", playerGUIDCol, KeyGUID},
	{"t_unavailable_players", playerGUIDCol, KeyGUID},

	{localIDsTable, "GUID", KeyGUID},
	{playersTable, teamGUIDColumn, KeyTeam},
}

// Closure returns the roster dependency closure in deletion order: local id
// dependents, then GUID dependents, then the local id mapping, then the
// player core rows. Every entry must be deleted before anything it points at.
func Closure() []Dependent {
	out := make([]Dependent, len(closure))
	copy(out, closure)
	return out
}

// deleteSQL renders the delete for d. The single parameter is the target team GUID.
func (d Dependent) deleteSQL() string {
	switch d.Key {
	case KeyLocalID:
		return fmt.Sprintf(`DELETE FROM main.%s WHERE %s IN (
    SELECT lid.localID FROM main.%s lid
    JOIN main.%s p ON p.GUID = lid.GUID
    WHERE p.teamGUID = ?)`, d.Table, d.Column, localIDsTable, playersTable)
	case KeyGUID:
		return fmt.Sprintf(`DELETE FROM main.%s WHERE %s IN (
    SELECT GUID FROM main.%s WHERE teamGUID = ?)`, d.Table, d.Column, playersTable)
	default:
		return fmt.Sprintf(`DELETE FROM main.%s WHERE %s = ?`, d.Table, d.Column)
	}
}

// orphanSQL counts rows of d pointing at nothing in the target database.
func (d Dependent) orphanSQL() string {
	switch d.Key {
	case KeyLocalID:
		return fmt.Sprintf(`SELECT COUNT(*) FROM main.%s WHERE %s IS NOT NULL AND %s NOT IN (SELECT localID FROM main.%s)`,
			d.Table, d.Column, d.Column, localIDsTable)
	case KeyGUID:
		return fmt.Sprintf(`SELECT COUNT(*) FROM main.%s WHERE %s IS NOT NULL AND %s NOT IN (SELECT GUID FROM main.%s)`,
			d.Table, d.Column, d.Column, playersTable)
	default:
		return ""
	}
}
