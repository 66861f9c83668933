// Package steam finds games installed through Steam.
package steam

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AssettoCorsaAppID is the Steam app of Assetto Corsa
const AssettoCorsaAppID = "244210"

// ErrNotFound means no Steam library has the app installed
var ErrNotFound = errors.New("not installed in any Steam library")

// AppManifest holds the fields of an appmanifest_*.acf file we use
type AppManifest struct {
	AppID      string
	Name       string
	InstallDir string
}

// ParseAppManifest parses the content of an appmanifest_*.acf file
func ParseAppManifest(data string) (AppManifest, error) {
	root, err := ParseVDF(strings.NewReader(data))
	if err != nil {
		return AppManifest{}, err
	}
	state := root.Block("AppState")
	if state == nil {
		return AppManifest{}, fmt.Errorf("vdf: missing AppState")
	}
	return AppManifest{
		AppID:      state.String("appid"),
		Name:       state.String("name"),
		InstallDir: state.String("installdir"),
	}, nil
}

// DefaultRoots returns the Steam installations present on this machine, in search order.
// STEAM_ROOT, when set, comes first.
func DefaultRoots() []string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		os.Getenv("STEAM_ROOT"),
		filepath.Join(home, ".steam", "steam"),
		filepath.Join(home, ".local", "share", "Steam"),
		filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
	}

	var out []string
	seen := map[string]bool{}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		// ~/.steam/steam is usually a symlink to one of the others
		resolved, err := filepath.EvalSymlinks(p)
		if err != nil || seen[resolved] {
			continue
		}
		if info, err := os.Stat(resolved); err != nil || !info.IsDir() {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out
}

// LibraryPaths returns the library folders of a Steam installation. A root without
// libraryfolders.vdf is its own only library.
func LibraryPaths(steamRoot string) ([]string, error) {
	vdfPath := filepath.Join(steamRoot, "steamapps", "libraryfolders.vdf")
	data, err := os.ReadFile(vdfPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{steamRoot}, nil
		}
		return nil, fmt.Errorf("reading libraryfolders: %w", err)
	}

	root, err := ParseVDF(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing libraryfolders: %w", err)
	}

	// Library entries are numbered "0", "1", ...
	folders := root.Block("libraryfolders")
	var paths []string
	for i := 0; ; i++ {
		entry := folders.Block(fmt.Sprint(i))
		if entry == nil {
			break
		}
		if p := entry.String("path"); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return []string{steamRoot}, nil
	}
	return paths, nil
}

// FindApp returns the install directory of appID in the first library of roots
// that has it. Libraries that cannot be read are skipped.
func FindApp(roots []string, appID string) (string, error) {
	manifestName := "appmanifest_" + appID + ".acf"
	for _, root := range roots {
		libraries, err := LibraryPaths(root)
		if err != nil {
			continue
		}
		for _, lib := range libraries {
			data, err := os.ReadFile(filepath.Join(lib, "steamapps", manifestName))
			if err != nil {
				continue
			}
			manifest, err := ParseAppManifest(string(data))
			if err != nil || manifest.AppID != appID || manifest.InstallDir == "" {
				continue
			}
			dir := filepath.Join(lib, "steamapps", "common", manifest.InstallDir)
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				return dir, nil
			}
		}
	}
	return "", fmt.Errorf("steam app %s: %w", appID, ErrNotFound)
}
