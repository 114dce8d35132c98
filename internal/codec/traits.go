package codec

import (
	"fmt"

	"rosterinjector/pkg/domain"
)

// TraitKey is the composite (traitId, subtypeId) catalog key.
type TraitKey struct {
	TraitID   int64
	SubtypeID int64
}

func (k TraitKey) String() string { return fmt.Sprintf("%d-%d", k.TraitID, k.SubtypeID) }

var traitCatalog = map[TraitKey]domain.Trait{
	{0, 0}:   "POW vs RHP (+)",
	{0, 1}:   "POW vs LHP (+)",
	{1, 0}:   "CON vs RHP (+)",
	{1, 1}:   "CON vs LHP (+)",
	{2, 6}:   "RBI Hero (+)",
	{2, 7}:   "RBI Zero (-)",
	{3, 2}:   "High Pitch (+)",
	{3, 3}:   "Low Pitch (+)",
	{3, 4}:   "Inside Pitch (+)",
	{3, 5}:   "Outside Pitch (+)",
	{4, 6}:   "Tough Out (+)",
	{4, 7}:   "Whiffer (-)",
	{5, 12}:  "Specialist (+)",
	{5, 13}:  "Reverse Splits (+)",
	{6, 6}:   "Composed (+)",
	{6, 7}:   "BB Prone (-)",
	{7, 6}:   "K Collector (+)",
	{7, 7}:   "K Neglector (-)",
	{8, 6}:   "Stealer (+)",
	{8, 7}:   "Bad Jumps (-)",
	{9, 6}:   "Utility (+)",
	{10, 8}:  "Fastball Hitter (+)",
	{10, 9}:  "Off-Speed Hitter (+)",
	{11, 6}:  "Bad Ball Hitter (+)",
	{12, 10}: "Big Hack (+)",
	{12, 11}: "Little Hack (+)",
	{13, 6}:  "Rally Starter (+)",
	{14, 6}:  "First Pitch Slayer (+)",
	{14, 7}:  "First Pitch Prayer (-)",
	{15, 6}:  "Pinch Perfect (+)",
	{16, 6}:  "Ace Exterminator (+)",
	{17, 6}:  "Mind Gamer (+)",
	{17, 7}:  "Easy Target (-)",
	{18, 6}:  "Pick Officer (+)",
	{18, 7}:  "Easy Jumps (-)",
	{19, 6}:  "Gets Ahead (+)",
	{19, 7}:  "Falls Behind (-)",
	{20, 6}:  "Rally Stopper (+)",
	{20, 7}:  "Surrounded (-)",
	{21, 7}:  "Crossed Up (-)",
	{22, 14}: "Elite 4F (+)",
	{22, 15}: "Elite 2F (+)",
	{22, 16}: "Elite CF (+)",
	{22, 17}: "Elite CB (+)",
	{22, 18}: "Elite SL (+)",
	{22, 19}: "Elite CH (+)",
	{22, 20}: "Elite SB (+)",
	{22, 21}: "Elite FK (+)",
	{23, 6}:  "Workhorse (+)",
	{24, 22}: "Two Way (OF) (+)",
	{24, 23}: "Two Way (IF) (+)",
	{24, 24}: "Two Way (C) (+)",
	{25, 6}:  "Metal Head (+)",
	{26, 6}:  "Sprinter (+)",
	{26, 7}:  "Slow Poke (-)",
	{27, 6}:  "Base Rounder (+)",
	{27, 7}:  "Base Jogger (-)",
	{28, 6}:  "Distractor (+)",
	{29, 6}:  "Magic Hands (+)",
	{29, 7}:  "Butter Fingers (-)",
	{30, 7}:  "Wild Thrower (-)",
	{31, 7}:  "Wild Thing (-)",
	{32, 6}:  "Clutch (+)",
	{32, 7}:  "Choker (-)",
	{33, 25}: "Consistent (+)",
	{33, 26}: "Volatile (+)",
	{34, 6}:  "Durable (+)",
	{34, 7}:  "Injury Prone (-)",
	{35, 6}:  "Stimulated (+)",
	{36, 6}:  "Cannon Arm (+)",
	{36, 7}:  "Noodle Arm (-)",
	{37, 6}:  "Dive Wizard (+)",
	{38, 6}:  "Sign Stealer (+)",
	{39, 7}:  "Meltdown (-)",
	{40, 6}:  "Bunter (+)",
}

var traitKeys = func() map[domain.Trait]TraitKey {
	out := make(map[domain.Trait]TraitKey, len(traitCatalog))
	for k, v := range traitCatalog {
		out[v] = k
	}
	return out
}()

// TraitName resolves a stored trait pair. An unknown pair means the file is
// corrupt, so the lookup is strict.
func TraitName(traitID, subtypeID int64) (domain.Trait, error) {
	k := TraitKey{TraitID: traitID, SubtypeID: subtypeID}
	if name, ok := traitCatalog[k]; ok {
		return name, nil
	}
	return "", domain.IntegrityError{Reason: fmt.Sprintf("invalid trait combination traitId=%d subtypeId=%d", traitID, subtypeID)}
}

// TraitIDs returns the catalog key for a trait name. Unset slots and unknown
// names report false.
func TraitIDs(t domain.Trait) (TraitKey, bool) {
	if !t.IsSet() {
		return TraitKey{}, false
	}
	k, ok := traitKeys[t]
	return k, ok
}

// TraitCatalogSize is the number of known traits.
func TraitCatalogSize() int { return len(traitCatalog) }
