package records

import (
	"errors"
	"path"
	"sort"
	"sync"

	"compat-merger/core/xdb"
	"compat-merger/feature/catalog"

	"github.com/beevik/etree"
)

// ErrMissingRequiredFile is returned when a file every run depends on is
// absent from the installation.
var ErrMissingRequiredFile = errors.New("missing required file")

// MapState is the cache state of a MapRecord.
type MapState int

const (
	MapUnparsed MapState = iota
	MapParsed
	MapFailed
)

func (s MapState) String() string {
	switch s {
	case MapUnparsed:
		return "unparsed"
	case MapParsed:
		return "parsed"
	case MapFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MapRecord holds the bytes of one map file and parses them on first use.
type MapRecord struct {
	// Path is the map file's path inside the game's virtual filesystem.
	Path     string
	Category Category
	// Archive supplies the map file.
	Archive string

	mu    sync.Mutex
	data  []byte
	state MapState
	doc   *etree.Document
	err   error
}

// NewMapRecord returns an unparsed record.
func NewMapRecord(p string, cat Category, archive string, data []byte) *MapRecord {
	return &MapRecord{Path: p, Category: cat, Archive: archive, data: data}
}

// Dir is the folder holding the map and its scripts.
func (r *MapRecord) Dir() string {
	return path.Dir(r.Path)
}

// Tree returns the parsed map. The first call parses; later calls return the
// same tree or the same parse error. Callers that modify the tree work on a Copy.
func (r *MapRecord) Tree() (*etree.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == MapUnparsed {
		doc, err := xdb.Parse(r.data)
		if err != nil {
			r.state, r.err = MapFailed, err
		} else {
			r.state, r.doc = MapParsed, doc
		}
		r.data = nil
	}
	return r.doc, r.err
}

// State reports whether the record has been parsed.
func (r *MapRecord) State() MapState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// HeroRecord is a parsed AdvMapHeroShared record.
type HeroRecord struct {
	Path    string
	Archive string
	Doc     *etree.Document
}

// Marker reports whether a mod's marker file is installed and which
// archive supplies it.
type Marker struct {
	Present bool   `json:"present"`
	Archive string `json:"archive,omitempty"`
}

// ModStatus lists the supported mods found in the installation.
type ModStatus struct {
	AllHeroes          Marker `json:"all_heroes"`
	AllSpellsArtifacts Marker `json:"all_spells_artifacts"`
	RacialBoost        Marker `json:"racial_boost"`
}

// HeroesAvailable reports whether hero records can be patched.
func (m ModStatus) HeroesAvailable() bool {
	return m.RacialBoost.Present
}

// Store is the result of a preload. It is read-only after Preload returns.
type Store struct {
	maps    map[Category][]*MapRecord
	heroes  []*HeroRecord
	catalog *catalog.Catalog
	mods    ModStatus
}

// Maps returns the map records of a category ordered by path.
func (s *Store) Maps(cat Category) []*MapRecord {
	return s.maps[cat]
}

// MapCount returns the number of map records across the given categories.
func (s *Store) MapCount(cats ...Category) int {
	n := 0
	for _, c := range cats {
		n += len(s.maps[c])
	}
	return n
}

// Heroes returns the hero records ordered by path.
func (s *Store) Heroes() []*HeroRecord {
	return s.heroes
}

// Catalog returns the creature catalog.
func (s *Store) Catalog() *catalog.Catalog {
	return s.catalog
}

// Mods returns the detected mod markers.
func (s *Store) Mods() ModStatus {
	return s.mods
}

func sortedMaps(byKey map[string]*MapRecord) []*MapRecord {
	out := make([]*MapRecord, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
