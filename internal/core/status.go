package core

import (
	"sync"

	"acsync/internal/domain"
)

// StatusFinished is the status text of a completed run
const StatusFinished = "Finished"

// Snapshot is a consistent copy of a run's state
type Snapshot struct {
	Text       string
	Errors     []string
	Successful []string // checksums, in task order
	Finished   bool

	Total         int          // mods in the task list
	Attempted     int          // mods that left Pending
	Current       int          // 1-based index of the mod in progress, 0 when idle
	CurrentName   string       // filename of the mod in progress
	Stage         domain.Stage // stage of the mod in progress
	Downloaded    int64        // bytes of the current download so far
	DownloadTotal int64        // expected bytes of the current download
}

// Status is the state of one pipeline run. The pipeline goroutine is its only
// writer; any number of goroutines may read it at any time.
type Status struct {
	mu   sync.RWMutex
	snap Snapshot
}

func newStatus(total int) *Status {
	return &Status{snap: Snapshot{Total: total}}
}

// Text returns the current status line
func (s *Status) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Text
}

// Errors returns the errors recorded so far
func (s *Status) Errors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snap.Errors...)
}

// Successful returns the checksums installed so far
func (s *Status) Successful() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snap.Successful...)
}

// Finished reports whether the run has ended. Once true it stays true.
func (s *Status) Finished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Finished
}

// Snapshot returns a copy of the whole state taken under one lock
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Errors = append([]string(nil), s.snap.Errors...)
	snap.Successful = append([]string(nil), s.snap.Successful...)
	return snap
}

func (s *Status) enter(index int, mod domain.ModDescriptor, stage domain.Stage, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Finished {
		return
	}
	if s.snap.Current != index {
		s.snap.Attempted++
		s.snap.Downloaded, s.snap.DownloadTotal = 0, int64(mod.Size)
	}
	s.snap.Current = index
	s.snap.CurrentName = mod.Filename
	s.snap.Stage = stage
	s.snap.Text = text
}

func (s *Status) progress(downloaded, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Downloaded = downloaded
	if total > 0 {
		s.snap.DownloadTotal = total
	}
}

func (s *Status) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Finished {
		return
	}
	s.snap.Errors = append(s.snap.Errors, msg)
	s.snap.Stage = domain.StageFailed
}

func (s *Status) succeed(checksum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Finished {
		return
	}
	s.snap.Successful = append(s.snap.Successful, checksum)
	s.snap.Stage = domain.StageSucceeded
}

func (s *Status) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Finished = true
	s.snap.Text = StatusFinished
	s.snap.Current = 0
	s.snap.CurrentName = ""
}

// Fraction estimates how much of the run is done, from 0 to 1.
// Only the download of the current mod is weighted within the mod.
func (s Snapshot) Fraction() float64 {
	if s.Finished || s.Total == 0 {
		return 1
	}
	if s.Current == 0 {
		return 0
	}
	done := float64(s.Current - 1)
	switch {
	case s.Stage == domain.StageDownloading && s.DownloadTotal > 0:
		part := float64(s.Downloaded) / float64(s.DownloadTotal)
		if part > 1 {
			part = 1
		}
		done += part / 2
	case s.Stage > domain.StageDownloading:
		done += 0.5 + 0.1*float64(s.Stage-domain.StageDownloading)
		if s.Stage >= domain.StageSucceeded {
			done = float64(s.Current)
		}
	}
	return done / float64(s.Total)
}
