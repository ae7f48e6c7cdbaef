package overlay

import "strings"

// Root is an install subfolder scanned for archives with one file suffix.
type Root struct {
	Dir      string
	Suffix   string
	Required bool
}

// DefaultRoots returns the game's archive folders in precedence order.
func DefaultRoots() []Root {
	return []Root{
		{Dir: "data", Suffix: ".pak", Required: true},
		{Dir: "UserMods", Suffix: ".h5u"},
		{Dir: "Maps", Suffix: ".h5m"},
	}
}

// Filter selects the archive entries that enter the manifest. An entry must
// match one prefix and one suffix. Matching is case-insensitive.
type Filter struct {
	Prefixes []string
	Suffixes []string
}

// DefaultFilter returns the entry filter covering maps, mod markers, map
// objects, scripts and game mechanics tables.
func DefaultFilter() Filter {
	return Filter{
		Prefixes: []string{"maps/", "ttberein/", "mapobjects/", "scripts/", "gamemechanics/"},
		Suffixes: []string{".xdb", ".chk", ".lua"},
	}
}

// Match reports whether the lowercase logical path passes the filter.
func (f Filter) Match(logical string) bool {
	return hasAny(logical, f.Prefixes, strings.HasPrefix) && hasAny(logical, f.Suffixes, strings.HasSuffix)
}

func hasAny(s string, candidates []string, fn func(string, string) bool) bool {
	for _, c := range candidates {
		if fn(s, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

// Normalize turns an archive-internal path into its logical form.
func Normalize(p string) string {
	return strings.ToLower(strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/"))
}

// normalizePrefix lowercases a directory prefix, strips a leading slash and
// guarantees a trailing one.
func normalizePrefix(prefix string) string {
	p := strings.ToLower(strings.ReplaceAll(prefix, "\\", "/"))
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return strings.TrimPrefix(p, "/")
}

func excluded(archive string, suffixes []string) bool {
	name := strings.ToLower(archive)
	for _, s := range suffixes {
		if strings.HasSuffix(name, strings.ToLower(s)) {
			return true
		}
	}
	return false
}
