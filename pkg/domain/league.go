// Package domain defines the league, team and player records shared by the
// save-file codec, the reader, the attribute updater and the transplant engine.
package domain

// League is an immutable snapshot of one league database file.
type League struct {
	GUID         string `json:"guid"`
	Name         string `json:"name"`
	DatabasePath string `json:"database_path"`
	Teams        []Team `json:"teams"`
}

// Team describes a team and its display colors (#rrggbb, colorKey order).
type Team struct {
	GUID   string   `json:"guid"`
	Name   string   `json:"name"`
	Colors []string `json:"colors,omitempty"`
}

// FindTeam returns the team with the given GUID.
func (l League) FindTeam(guid string) (Team, bool) {
	for _, t := range l.Teams {
		if t.GUID == guid {
			return t, true
		}
	}
	return Team{}, false
}
