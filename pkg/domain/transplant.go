package domain

import "fmt"

// TransplantPlan keeps the identity of one team and donates the name,
// cosmetics and roster of a team from another database.
type TransplantPlan struct {
	// KeepIdentity is the target team whose GUID and local id survive.
	KeepIdentity string
	// DonateContentFrom is the source team whose content is copied.
	DonateContentFrom string
	// SourcePath is the database file the donor team lives in.
	SourcePath string
}

// Validate checks that both team references are set.
func (p TransplantPlan) Validate() error {
	if p.KeepIdentity == "" {
		return ValidationError{Field: "keep_identity", Reason: "target team is required"}
	}
	if p.DonateContentFrom == "" {
		return ValidationError{Field: "donate_content_from", Reason: "source team is required"}
	}
	if p.SourcePath == "" {
		return ValidationError{Field: "source_path", Reason: "source database path is required"}
	}
	return nil
}

func (p TransplantPlan) String() string {
	return fmt.Sprintf("%s <- %s (%s)", p.KeepIdentity, p.DonateContentFrom, p.SourcePath)
}
