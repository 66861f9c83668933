package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"acsync/internal/core"
	"acsync/internal/domain"
	"acsync/internal/steam"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginCmd(t *testing.T) {
	setupDirs(t)
	server := modServer(t, nil, nil)
	serverURL = server.URL

	_, err := execute(t, "wrong\n", "login", "driver")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)

	out, err := execute(t, "secret\n", "login", "driver")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in to "+server.URL+" as driver.")

	// the saved login is offered as the default
	out, err = execute(t, "\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Login [driver]: ")

	out, err = execute(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed saved credentials")
}

func TestListCmd_NeedsLogin(t *testing.T) {
	setupDirs(t)
	serverURL = modServer(t, nil, nil).URL

	_, err := execute(t, "", "list")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Contains(t, err.Error(), "acsync login")
}

func TestListCmd_JSON(t *testing.T) {
	setupDirs(t)
	mods := []domain.ModDescriptor{
		{Checksum: "a", Filename: "a.zip", Size: 3 << 20},
		{Checksum: "b", Filename: "b.rar", Size: 1},
	}
	serverURL = modServer(t, mods, nil).URL
	t.Setenv("ACSYNC_LOGIN", "driver")
	t.Setenv("ACSYNC_PASSWORD", "secret")

	out, err := execute(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "a.zip")
	assert.Contains(t, out, "3M")

	out, err = execute(t, "", "list", "--json")
	require.NoError(t, err)

	var rows []listJSON
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "b.rar", rows[1].Filename)
	assert.False(t, rows[1].Installed)
}

func TestPathCmd(t *testing.T) {
	setupDirs(t)

	out, err := execute(t, "", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "No game directory set")

	_, err = execute(t, "", "path", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrInvalidInstallPath)

	dir := gameDir(t)
	out, err = execute(t, "", "path", dir)
	require.NoError(t, err)
	assert.Contains(t, out, dir)

	out, err = execute(t, "", "path")
	require.NoError(t, err)
	assert.Equal(t, dir+"\n", out)
}

func TestInstallCmd_NeedsPath(t *testing.T) {
	setupDirs(t)

	_, err := execute(t, "", "install", "--all")
	assert.ErrorIs(t, err, domain.ErrInvalidInstallPath)
}

func TestInstallCmd_EndToEnd(t *testing.T) {
	setupDirs(t)
	carZip := zipPayload(t, map[string]string{"ks_car/data.acd": "car"})
	car := descriptorFor("ks_car.zip", carZip)
	broken := domain.ModDescriptor{Checksum: "gone", Filename: "gone.zip", Size: 9}
	serverURL = modServer(t, []domain.ModDescriptor{car, broken}, map[string][]byte{car.Checksum: carZip}).URL
	t.Setenv("ACSYNC_LOGIN", "driver")
	t.Setenv("ACSYNC_PASSWORD", "secret")

	root := gameDir(t)
	_, err := execute(t, "", "path", root)
	require.NoError(t, err)

	out, err := execute(t, "", "install", "--all")
	require.Error(t, err, "a failed mod makes the command fail")
	assert.Contains(t, out, "1 mods installed successfully.")
	assert.Contains(t, out, "mod gone.zip: download failed")
	assert.FileExists(t, filepath.Join(root, "content", "cars", "ks_car", "data.acd"))

	// the car is recorded and skipped next time
	installAll = false
	out, err = execute(t, "", "install", "ks_car.zip")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to install")

	out, err = execute(t, "", "forget", car.Checksum)
	require.NoError(t, err)
	assert.Contains(t, out, "Forgot "+car.Checksum)

	out, err = execute(t, "", "install", "ks_car.zip", "--json")
	require.NoError(t, err)
	var result installJSON
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{car.Checksum}, result.Successful)
	assert.Empty(t, result.Errors)
}

func TestForgetCmd_Unknown(t *testing.T) {
	setupDirs(t)

	_, err := execute(t, "", "forget", "nope")
	assert.ErrorIs(t, err, domain.ErrModNotFound)
}

func TestSelectMods(t *testing.T) {
	entries := []core.CatalogEntry{
		{ModDescriptor: domain.ModDescriptor{Checksum: "aa", Filename: "Car.zip"}},
		{ModDescriptor: domain.ModDescriptor{Checksum: "bb", Filename: "track.rar"}},
		{ModDescriptor: domain.ModDescriptor{Checksum: "cc", Filename: "app.7z"}},
	}

	tests := []struct {
		name    string
		args    []string
		all     bool
		want    []string
		wantErr string
	}{
		{name: "all", all: true, want: []string{"aa", "bb", "cc"}},
		{name: "by checksum and filename in catalog order", args: []string{"app.7z", "aa"}, want: []string{"aa", "cc"}},
		{name: "filename is case-insensitive", args: []string{"car.ZIP"}, want: []string{"aa"}},
		{name: "same mod twice", args: []string{"aa", "Car.zip"}, want: []string{"aa"}},
		{name: "unknown", args: []string{"aa", "zz"}, wantErr: "mod not found: zz"},
		{name: "nothing", wantErr: "no mods given"},
		{name: "all with names", args: []string{"aa"}, all: true, wantErr: "cannot be combined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mods, err := selectMods(entries, tt.args, tt.all)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			var got []string
			for _, m := range mods {
				got = append(got, m.Checksum)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a-very...", truncate("a-very-long-name.zip", 9))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestPathCmd_Detect(t *testing.T) {
	setupDirs(t)
	t.Cleanup(func() { pathDetect = false })

	steamRoot := t.TempDir()
	game := filepath.Join(steamRoot, "steamapps", "common", "assettocorsa")
	require.NoError(t, os.MkdirAll(game, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(game, "acs.exe"), []byte("MZ"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(steamRoot, "steamapps", "appmanifest_244210.acf"),
		[]byte("\"AppState\"\n{\n\t\"appid\"\t\t\"244210\"\n\t\"installdir\"\t\t\"assettocorsa\"\n}\n"), 0644))

	orig := steamRoots
	steamRoots = func() []string { return []string{steamRoot} }
	t.Cleanup(func() { steamRoots = orig })

	out, err := execute(t, "", "path", "--detect")
	require.NoError(t, err)
	assert.Contains(t, out, "Game directory set to "+game)

	steamRoots = func() []string { return nil }
	_, err = execute(t, "", "path", "--detect")
	assert.ErrorIs(t, err, steam.ErrNotFound)
}
