package resources

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"compat-merger/core/luascript"
	"compat-merger/core/xdb"

	"github.com/beevik/etree"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/ini.v1"
)

// Bundled file layout.
const (
	TownsDir                = "towns"
	ArtificerDir            = "artificer"
	AllSpellsFile           = "all_spells.xml"
	AllArtifactsFile        = "all_artifacts.xml"
	PerkSwapsFile           = "perk_swaps.ini"
	SpecializationSwapsFile = "specialization_swaps.ini"
	MapScriptXDB            = "MapScript.xdb"
	MapScriptLua            = "MapScript.lua"
)

// ErrMissingResource is returned when a bundled file is absent or unusable.
var ErrMissingResource = errors.New("missing bundled resource")

// Fragment is a map object template keyed by the name the map uses for it.
// Element is shared; callers insert a Copy.
type Fragment struct {
	Name    string
	Element *etree.Element
}

// PerkSwap replaces a perk when the hero holds Prerequisite.
type PerkSwap struct {
	Replacement  string
	Prerequisite string
}

// SpecializationSwap replaces a specialization and its three display references.
type SpecializationSwap struct {
	Replacement string
	NameRef     string
	DescRef     string
	Icon        string
}

// MapScript is the script pair installed into maps with no script of their own.
type MapScript struct {
	XDB []byte
	Lua []byte
}

// Bundle serves the bundled templates. Each file is read once; concurrent
// callers asking for the same file share a single load.
type Bundle struct {
	fs     billy.Filesystem
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]any
	sf    singleflight.Group
}

// New returns a bundle reading from fs.
func New(fs billy.Filesystem, logger *zap.Logger) *Bundle {
	return &Bundle{
		fs:     fs,
		logger: logger,
		cache:  make(map[string]any),
	}
}

func (b *Bundle) load(key string, fn func() (any, error)) (any, error) {
	b.mu.RLock()
	v, ok := b.cache[key]
	b.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err, _ := b.sf.Do(key, func() (any, error) {
		b.mu.RLock()
		v, ok := b.cache[key]
		b.mu.RUnlock()
		if ok {
			return v, nil
		}

		v, err := fn()
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[key] = v
		b.mu.Unlock()
		return v, nil
	})
	return v, err
}

func (b *Bundle) read(name string) ([]byte, error) {
	data, err := util.ReadFile(b.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingResource, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Towns returns the faction starter-town fragments keyed by town name.
func (b *Bundle) Towns() ([]Fragment, error) {
	v, err := b.load(TownsDir, func() (any, error) {
		return b.fragments(TownsDir, "AdvMapTown/Name")
	})
	if err != nil {
		return nil, err
	}
	return v.([]Fragment), nil
}

// Artificer returns the artificer artifact fragments keyed by artifact name.
func (b *Bundle) Artificer() ([]Fragment, error) {
	v, err := b.load(ArtificerDir, func() (any, error) {
		return b.fragments(ArtificerDir, "AdvMapArtifact/Name")
	})
	if err != nil {
		return nil, err
	}
	return v.([]Fragment), nil
}

func (b *Bundle) fragments(dir, namePath string) ([]Fragment, error) {
	infos, err := b.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingResource, dir, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	var out []Fragment
	for _, fi := range infos {
		if fi.IsDir() || !strings.EqualFold(path.Ext(fi.Name()), ".xdb") {
			continue
		}
		p := path.Join(dir, fi.Name())
		data, err := b.read(p)
		if err != nil {
			return nil, err
		}
		el, err := xdb.ParseElement(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMissingResource, p, err)
		}
		name := xdb.Text(el, namePath)
		if name == "" {
			b.logger.Warn("Fragment has no name, ignoring", zap.String("file", p))
			continue
		}
		out = append(out, Fragment{Name: name, Element: el})
	}
	return out, nil
}

// AllSpells returns every spell id, in file order.
func (b *Bundle) AllSpells() ([]string, error) {
	return b.itemList(AllSpellsFile, false)
}

// AllArtifacts returns every artifact id, in file order.
func (b *Bundle) AllArtifacts() ([]string, error) {
	return b.itemList(AllArtifactsFile, false)
}

// ClassSpells returns the lesson list for a hero class such as
// HERO_CLASS_NECROMANCER. A class without a list has no lessons.
func (b *Bundle) ClassSpells(class string) ([]string, error) {
	name := fmt.Sprintf("spells_%s.xml", strings.TrimPrefix(class, "HERO_CLASS_"))
	return b.itemList(name, true)
}

func (b *Bundle) itemList(name string, optional bool) ([]string, error) {
	v, err := b.load(name, func() (any, error) {
		data, err := b.read(name)
		if err != nil {
			if optional && errors.Is(err, ErrMissingResource) {
				return []string{}, nil
			}
			return nil, err
		}
		doc, err := xdb.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMissingResource, name, err)
		}
		items := []string{}
		for _, el := range doc.Root().SelectElements("Item") {
			items = append(items, el.Text())
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// PerkSwaps returns the perk swap table keyed by the perk being replaced.
func (b *Bundle) PerkSwaps() (map[string]PerkSwap, error) {
	v, err := b.load(PerkSwapsFile, func() (any, error) {
		f, err := b.loadINI(PerkSwapsFile)
		if err != nil {
			return nil, err
		}
		out := make(map[string]PerkSwap)
		for _, s := range f.Sections() {
			if s.Name() == ini.DefaultSection {
				continue
			}
			swap := PerkSwap{
				Replacement:  s.Key("replacement").String(),
				Prerequisite: s.Key("prerequisite").String(),
			}
			if swap.Replacement == "" || swap.Prerequisite == "" {
				b.logger.Warn("Incomplete perk swap, ignoring", zap.String("perk", s.Name()))
				continue
			}
			out[s.Name()] = swap
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]PerkSwap), nil
}

// SpecializationSwaps returns the specialization swap table keyed by the
// specialization being replaced.
func (b *Bundle) SpecializationSwaps() (map[string]SpecializationSwap, error) {
	v, err := b.load(SpecializationSwapsFile, func() (any, error) {
		f, err := b.loadINI(SpecializationSwapsFile)
		if err != nil {
			return nil, err
		}
		out := make(map[string]SpecializationSwap)
		for _, s := range f.Sections() {
			if s.Name() == ini.DefaultSection {
				continue
			}
			swap := SpecializationSwap{
				Replacement: s.Key("replacement").String(),
				NameRef:     s.Key("name").String(),
				DescRef:     s.Key("description").String(),
				Icon:        s.Key("icon").String(),
			}
			if swap.Replacement == "" {
				b.logger.Warn("Incomplete specialization swap, ignoring", zap.String("specialization", s.Name()))
				continue
			}
			out[s.Name()] = swap
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]SpecializationSwap), nil
}

func (b *Bundle) loadINI(name string) (*ini.File, error) {
	data, err := b.read(name)
	if err != nil {
		return nil, err
	}
	// hrefs carry XPointer fragments, so '#' is part of the value.
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingResource, name, err)
	}
	return f, nil
}

// MapScript returns the default map script pair. The Lua half must parse.
func (b *Bundle) MapScript() (MapScript, error) {
	v, err := b.load(MapScriptXDB, func() (any, error) {
		x, err := b.read(MapScriptXDB)
		if err != nil {
			return nil, err
		}
		l, err := b.read(MapScriptLua)
		if err != nil {
			return nil, err
		}
		if err := luascript.Validate(MapScriptLua, l); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingResource, err)
		}
		return MapScript{XDB: x, Lua: l}, nil
	})
	if err != nil {
		return MapScript{}, err
	}
	return v.(MapScript), nil
}
