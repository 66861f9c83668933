package core

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"acsync/internal/domain"
	"acsync/internal/logging"

	"github.com/rs/zerolog"
)

// Listing is the flattened content of an extraction directory
type Listing struct {
	Root    string         // absolute extraction directory
	Entries []domain.Entry // relative to Root
}

// Rule is one classification policy. Match returns instructions whose Source is a
// slash path relative to the listing root, or nothing when the layout is not its own.
type Rule interface {
	Match(t *Tree) []domain.PlacementInstruction
}

// RuleFunc adapts a function to the Rule interface
type RuleFunc func(t *Tree) []domain.PlacementInstruction

func (f RuleFunc) Match(t *Tree) []domain.PlacementInstruction {
	return f(t)
}

// Resolver turns an extracted tree into ordered placement instructions
type Resolver struct {
	rules  []Rule
	logger zerolog.Logger
}

// NewResolver creates a resolver trying rules in order. With no rules,
// DefaultRules is used.
func NewResolver(rules ...Rule) *Resolver {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Resolver{
		rules:  rules,
		logger: logging.L("resolver"),
	}
}

// Resolve returns the instructions of the first rule that recognises the listing.
// Sources are absolute (under listing.Root), targets relative to the installation root.
// Instructions are sorted by source and never nest.
func (r *Resolver) Resolve(listing Listing) ([]domain.PlacementInstruction, error) {
	tree := NewTree(listing.Entries)

	for i, rule := range r.rules {
		units := rule.Match(tree)
		if len(units) == 0 {
			continue
		}

		instrs := finalize(listing.Root, units)
		r.logger.Debug().
			Int("rule", i).
			Int("entries", len(listing.Entries)).
			Int("instructions", len(instrs)).
			Msg("Layout recognised")
		return instrs, nil
	}

	return nil, domain.WithKind(domain.ErrResolve, domain.ErrUnrecognizedLayout)
}

// finalize sorts units by source, drops units nested in an earlier one and
// makes sources absolute.
func finalize(root string, units []domain.PlacementInstruction) []domain.PlacementInstruction {
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Source < units[j].Source
	})

	result := make([]domain.PlacementInstruction, 0, len(units))
	var kept []string
	for _, u := range units {
		if nested(u.Source, kept) {
			continue
		}
		kept = append(kept, u.Source)
		result = append(result, domain.PlacementInstruction{
			Source: filepath.Join(root, filepath.FromSlash(u.Source)),
			Target: u.Target,
		})
	}
	return result
}

// nested reports whether source is one of kept or lies below one of them.
// Siblings like "a.b" sort between "a" and "a/x", so every kept source is checked.
func nested(source string, kept []string) bool {
	for _, k := range kept {
		if source == k || strings.HasPrefix(source, k+"/") {
			return true
		}
	}
	return false
}

// Tree is a case-insensitive index over a listing
type Tree struct {
	isDir    map[string]bool
	byLower  map[string]string
	children map[string][]string
}

// NewTree indexes entries. Parent directories missing from the listing are implied.
func NewTree(entries []domain.Entry) *Tree {
	t := &Tree{
		isDir:    make(map[string]bool),
		byLower:  make(map[string]string),
		children: make(map[string][]string),
	}
	for _, e := range entries {
		p := strings.Trim(path.Clean("/"+e.Path), "/")
		if p == "" {
			continue
		}
		t.add(p, e.IsDir)
	}
	for parent := range t.children {
		sort.Strings(t.children[parent])
	}
	return t
}

func (t *Tree) add(p string, isDir bool) {
	if _, ok := t.isDir[p]; ok {
		if isDir {
			t.isDir[p] = true
		}
		return
	}
	t.isDir[p] = isDir
	t.byLower[strings.ToLower(p)] = p

	parent := path.Dir(p)
	if parent == "." {
		parent = ""
	} else {
		t.add(parent, true)
	}
	t.children[parent] = append(t.children[parent], p)
}

// Lookup finds p ignoring case and returns its actual spelling
func (t *Tree) Lookup(p string) (string, bool) {
	actual, ok := t.byLower[strings.ToLower(p)]
	return actual, ok
}

// IsDir reports whether p is a directory in the listing
func (t *Tree) IsDir(p string) bool {
	return t.isDir[p]
}

// Children returns the direct children of dir ("" for the root), sorted
func (t *Tree) Children(dir string) []string {
	return t.children[dir]
}

// Dirs returns every directory in the listing, sorted
func (t *Tree) Dirs() []string {
	var dirs []string
	for p, isDir := range t.isDir {
		if isDir {
			dirs = append(dirs, p)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Files returns every file at or below dir, sorted
func (t *Tree) Files(dir string) []string {
	var files []string
	for _, child := range t.children[dir] {
		if t.isDir[child] {
			files = append(files, t.Files(child)...)
		} else {
			files = append(files, child)
		}
	}
	return files
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// rel strips the dir prefix from p
func rel(dir, p string) string {
	if dir == "" {
		return p
	}
	return strings.TrimPrefix(p, dir+"/")
}

// Well-known top-level directories of an Assetto Corsa installation
var (
	unitRoots  = []string{"content", "apps"}
	mergeRoots = []string{"system", "extension"}
)

// Category directories under content/ and apps/ as the game spells them,
// keyed by lower-case name
var categories = map[string]string{
	"cars":      "cars",
	"tracks":    "tracks",
	"showroom":  "showroom",
	"driver":    "driver",
	"weather":   "weather",
	"fonts":     "fonts",
	"gui":       "gui",
	"sfx":       "sfx",
	"texture":   "texture",
	"objects3d": "objects3D",
	"python":    "python",
	"lua":       "lua",
}

// categoryTarget builds the target of a path below top/, using the game's spelling
// for a known category directory
func categoryTarget(top, relPath string) string {
	first, rest, found := strings.Cut(relPath, "/")
	if canonical, ok := categories[strings.ToLower(first)]; ok {
		first = canonical
	}
	if !found {
		return top + "/" + first
	}
	return top + "/" + first + "/" + rest
}

// DefaultRules returns the Assetto Corsa classification policy:
// an archive laid out like the installation root, then loose car, track and app folders.
func DefaultRules() []Rule {
	return []Rule{
		RuleFunc(installRootRule),
		RuleFunc(folderRule),
	}
}

// installRootRule handles archives that mirror the installation tree, possibly
// below a wrapper directory.
func installRootRule(t *Tree) []domain.PlacementInstruction {
	root, ok := findInstallRoot(t)
	if !ok {
		return nil
	}

	var units []domain.PlacementInstruction
	for _, top := range unitRoots {
		topDir, ok := t.Lookup(join(root, top))
		if !ok || !t.IsDir(topDir) {
			continue
		}
		for _, category := range t.Children(topDir) {
			if !t.IsDir(category) {
				units = append(units, domain.PlacementInstruction{Source: category, Target: categoryTarget(top, rel(topDir, category))})
				continue
			}
			for _, item := range t.Children(category) {
				units = append(units, domain.PlacementInstruction{Source: item, Target: categoryTarget(top, rel(topDir, item))})
			}
		}
	}

	for _, top := range mergeRoots {
		topDir, ok := t.Lookup(join(root, top))
		if !ok || !t.IsDir(topDir) {
			continue
		}
		for _, file := range t.Files(topDir) {
			units = append(units, domain.PlacementInstruction{Source: file, Target: top + "/" + rel(topDir, file)})
		}
	}

	return units
}

// findInstallRoot returns the shallowest directory holding a well-known top directory
func findInstallRoot(t *Tree) (string, bool) {
	candidates := append([]string{""}, t.Dirs()...)
	best, bestDepth := "", -1
	for _, dir := range candidates {
		depth := 0
		if dir != "" {
			depth = strings.Count(dir, "/") + 1
		}
		if bestDepth >= 0 && depth >= bestDepth {
			continue
		}
		if hasWellKnownChild(t, dir) {
			best, bestDepth = dir, depth
		}
	}
	return best, bestDepth >= 0
}

func hasWellKnownChild(t *Tree, dir string) bool {
	for _, roots := range [][]string{unitRoots, mergeRoots} {
		for _, top := range roots {
			if p, ok := t.Lookup(join(dir, top)); ok && t.IsDir(p) {
				return true
			}
		}
	}
	return false
}

// folderRule places loose car, track and python app folders by their marker files.
// Every match is placed, so packs of several cars resolve too.
func folderRule(t *Tree) []domain.PlacementInstruction {
	var units []domain.PlacementInstruction
	for _, dir := range t.Dirs() {
		name := path.Base(dir)
		var target string
		switch {
		case isCarFolder(t, dir):
			target = "content/cars/" + name
		case isTrackFolder(t, dir):
			target = "content/tracks/" + name
		case isAppFolder(t, dir, name):
			target = "apps/python/" + name
		default:
			continue
		}
		units = append(units, domain.PlacementInstruction{Source: dir, Target: target})
	}
	return units
}

func isCarFolder(t *Tree, dir string) bool {
	return hasFile(t, join(dir, "data.acd")) || hasFile(t, join(dir, "ui/ui_car.json"))
}

func isTrackFolder(t *Tree, dir string) bool {
	if hasFile(t, join(dir, "ui/ui_track.json")) {
		return true
	}
	ui, ok := t.Lookup(join(dir, "ui"))
	if !ok {
		return false
	}
	// Multi-layout tracks keep one ui_track.json per layout
	for _, layout := range t.Children(ui) {
		if t.IsDir(layout) && hasFile(t, join(layout, "ui_track.json")) {
			return true
		}
	}
	return false
}

func isAppFolder(t *Tree, dir, name string) bool {
	return hasFile(t, join(dir, name+".py"))
}

func hasFile(t *Tree, p string) bool {
	actual, ok := t.Lookup(p)
	return ok && !t.IsDir(actual)
}
