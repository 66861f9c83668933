package domain

import "time"

// ModDescriptor is one entry of the remote mod catalog.
// The checksum identifies the mod everywhere: download address, dedup and installed state.
type ModDescriptor struct {
	Checksum string `json:"checksum_md5"`
	Filename string `json:"filename"`
	Size     uint64 `json:"size_in_bytes"`
}

// SizeMB returns the size in whole mebibytes, as shown in listings.
func (m ModDescriptor) SizeMB() uint64 {
	return m.Size / 1024 / 1024
}

// Entry is one path of an extracted archive, relative to the extraction dir, slash-separated.
type Entry struct {
	Path  string
	IsDir bool
}

// PlacementInstruction moves Source (inside the scratch area) to Target (relative to the installation root).
type PlacementInstruction struct {
	Source string
	Target string
}

// InstalledMod is a row of the installed-mods record
type InstalledMod struct {
	Checksum    string
	InstalledAt time.Time
}
