package stations

import "strings"

// SynonymConflict records a synonym claimed by more than one station.
// The first claimant is kept.
type SynonymConflict struct {
	Key     string
	Kept    string
	Ignored string
}

// SynonymIndex maps uppercase names and synonyms to canonical station names.
// It is built once and never modified, so concurrent reads are safe.
type SynonymIndex struct {
	names     map[string]string
	conflicts []SynonymConflict
}

// BuildSynonymIndex indexes every canonical name, then every synonym.
//
// Canonical names are registered first so a synonym can never shadow another
// station's own name. Within each pass the first writer wins.
func BuildSynonymIndex(records []Record) *SynonymIndex {
	ix := &SynonymIndex{names: make(map[string]string, len(records)*2)}

	for i := range records {
		ix.add(records[i].Name, records[i].Name)
	}
	for i := range records {
		for _, syn := range records[i].Synonyms {
			ix.add(syn, records[i].Name)
		}
	}

	return ix
}

func (ix *SynonymIndex) add(key, name string) {
	key = normalizeKey(key)
	if key == "" {
		return
	}
	existing, ok := ix.names[key]
	if !ok {
		ix.names[key] = name
		return
	}
	if existing != name {
		ix.conflicts = append(ix.conflicts, SynonymConflict{Key: key, Kept: existing, Ignored: name})
	}
}

// Resolve returns the canonical name for a name or synonym. Lookup ignores
// case and surrounding whitespace.
func (ix *SynonymIndex) Resolve(nameOrSynonym string) (string, bool) {
	if ix == nil {
		return "", false
	}
	name, ok := ix.names[normalizeKey(nameOrSynonym)]
	return name, ok
}

// Len returns the number of indexed keys.
func (ix *SynonymIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.names)
}

// Conflicts returns the synonyms that were claimed by more than one station.
func (ix *SynonymIndex) Conflicts() []SynonymConflict {
	if ix == nil {
		return nil
	}
	return append([]SynonymConflict(nil), ix.conflicts...)
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
