package core_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"acsync/internal/core"
	"acsync/internal/domain"
	"acsync/internal/placement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const downloadPath = "/mod_management/download"

// newModServer serves payloads by the hash query parameter; unknown hashes are 404
func newModServer(t *testing.T, payloads map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := payloads[r.URL.Query().Get("hash")]
		if !ok || r.URL.Path != downloadPath {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func descriptor(name, checksum string, payload []byte) domain.ModDescriptor {
	return domain.ModDescriptor{Checksum: checksum, Filename: name, Size: uint64(len(payload))}
}

// unpackSpy records which archives reached extraction
type unpackSpy struct {
	core.Unpacker
	mu       sync.Mutex
	archives []string
}

func (s *unpackSpy) Unpack(archivePath string) (string, error) {
	s.mu.Lock()
	s.archives = append(s.archives, filepath.Base(archivePath))
	s.mu.Unlock()
	return s.Unpacker.Unpack(archivePath)
}

type failingPlacer struct {
	core.Placer
	target string
}

func (p failingPlacer) ApplyAll(instrs []domain.PlacementInstruction, root string) error {
	for _, in := range instrs {
		if strings.Contains(in.Target, p.target) {
			return domain.WithKind(domain.ErrPlacement, errors.New("disk full"))
		}
	}
	return p.Placer.ApplyAll(instrs, root)
}

type cancellingFetcher struct {
	core.Fetcher
	cancel context.CancelFunc
}

func (f cancellingFetcher) Download(ctx context.Context, mod domain.ModDescriptor, dir string, fn core.ProgressFunc) (*core.DownloadResult, error) {
	res, err := f.Fetcher.Download(ctx, mod, dir, fn)
	f.cancel()
	return res, err
}

type blockingFetcher struct {
	core.Fetcher
	release chan struct{}
}

func (f blockingFetcher) Download(ctx context.Context, mod domain.ModDescriptor, dir string, fn core.ProgressFunc) (*core.DownloadResult, error) {
	<-f.release
	return f.Fetcher.Download(ctx, mod, dir, fn)
}

type pipelineEnv struct {
	server  *httptest.Server
	scratch string
	root    string
	spy     *unpackSpy
}

func newPipelineEnv(t *testing.T, payloads map[string][]byte) *pipelineEnv {
	scratch := t.TempDir()
	return &pipelineEnv{
		server:  newModServer(t, payloads),
		scratch: scratch,
		root:    t.TempDir(),
		spy:     &unpackSpy{Unpacker: core.NewExtractor(scratch)},
	}
}

func (e *pipelineEnv) options() core.PipelineOptions {
	return core.PipelineOptions{
		Fetcher:     core.NewDownloader(e.server.Client(), e.server.URL+downloadPath+"?hash="),
		Unpacker:    e.spy,
		Resolver:    core.NewResolver(),
		Placer:      placement.NewExecutor(nil),
		ScratchRoot: e.scratch,
	}
}

func TestPipeline_PartialFailureScenario(t *testing.T) {
	payloadA := zipBytes(t, map[string]string{"car_a/data.acd": "a"})
	payloadB := zipBytes(t, map[string]string{"car_b/data.acd": "b"})
	payloadC := zipBytes(t, map[string]string{"track_c/ui/ui_track.json": "{}"})

	env := newPipelineEnv(t, map[string][]byte{"aaa": payloadA, "bbb": payloadB, "ccc": payloadC})

	modB := descriptor("B.zip", "bbb", payloadB)
	modB.Size++

	tasks := []domain.ModDescriptor{
		descriptor("A.zip", "aaa", payloadA),
		modB,
		descriptor("C.zip", "ccc", payloadC),
	}

	status := core.NewPipeline(tasks, env.options()).Run(context.Background(), env.root)

	assert.True(t, status.Finished())
	assert.Equal(t, core.StatusFinished, status.Text())
	assert.Equal(t, []string{"aaa", "ccc"}, status.Successful())

	errs := status.Errors()
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0], "mod B.zip: "), errs[0])
	assert.Contains(t, errs[0], "size mismatch")

	assert.Equal(t, []string{"A.zip", "C.zip"}, env.spy.archives, "a size mismatch never reaches extraction")
	assert.FileExists(t, filepath.Join(env.root, "content", "cars", "car_a", "data.acd"))
	assert.FileExists(t, filepath.Join(env.root, "content", "tracks", "track_c", "ui", "ui_track.json"))
	assert.NoDirExists(t, filepath.Join(env.root, "content", "cars", "car_b"))

	snap := status.Snapshot()
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 3, snap.Attempted)
}

func TestPipeline_FailureIsolationPerStage(t *testing.T) {
	good1 := zipBytes(t, map[string]string{"first/data.acd": "1"})
	good2 := zipBytes(t, map[string]string{"last/data.acd": "2"})

	tests := []struct {
		name    string
		payload []byte // nil: not served
		placer  func(core.Placer) core.Placer
		wantMsg string
	}{
		{
			name:    "download",
			wantMsg: "mod bad.zip: download failed: HTTP error: 404 Not Found",
		},
		{
			name:    "extract",
			payload: []byte("this is not an archive"),
			wantMsg: "mod bad.zip: extract failed: ",
		},
		{
			name:    "resolve",
			payload: zipBytes(t, map[string]string{"readme.txt": "hi"}),
			wantMsg: "mod bad.zip: resolve failed: unrecognized archive layout",
		},
		{
			name:    "install",
			payload: zipBytes(t, map[string]string{"bad_car/data.acd": "x"}),
			placer: func(inner core.Placer) core.Placer {
				return failingPlacer{Placer: inner, target: "bad_car"}
			},
			wantMsg: "mod bad.zip: install failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payloads := map[string][]byte{"one": good1, "two": good2}
			bad := domain.ModDescriptor{Checksum: "bad", Filename: "bad.zip", Size: 10}
			if tt.payload != nil {
				payloads["bad"] = tt.payload
				bad.Size = uint64(len(tt.payload))
			}

			env := newPipelineEnv(t, payloads)
			opts := env.options()
			if tt.placer != nil {
				opts.Placer = tt.placer(opts.Placer)
			}

			tasks := []domain.ModDescriptor{descriptor("one.zip", "one", good1), bad, descriptor("two.zip", "two", good2)}
			status := core.NewPipeline(tasks, opts).Run(context.Background(), env.root)

			assert.Equal(t, []string{"one", "two"}, status.Successful())
			errs := status.Errors()
			require.Len(t, errs, 1)
			assert.True(t, strings.HasPrefix(errs[0], tt.wantMsg), "got %q", errs[0])
			assert.Equal(t, 3, status.Snapshot().Attempted)
		})
	}
}

func TestPipeline_ScratchCreationIsFatal(t *testing.T) {
	payload := zipBytes(t, map[string]string{"car/data.acd": "a"})
	env := newPipelineEnv(t, map[string][]byte{"a": payload})

	notADir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0644))

	opts := env.options()
	opts.ScratchRoot = notADir

	tasks := []domain.ModDescriptor{
		descriptor("a.zip", "a", payload),
		descriptor("b.zip", "b", payload),
		descriptor("c.zip", "c", payload),
	}
	status := core.NewPipeline(tasks, opts).Run(context.Background(), env.root)

	snap := status.Snapshot()
	assert.True(t, snap.Finished)
	assert.Equal(t, core.StatusFinished, snap.Text)
	assert.Empty(t, snap.Successful)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "cannot create scratch directory")
	assert.Equal(t, 0, snap.Attempted)
	assert.Equal(t, 3, snap.Total)
	assert.Empty(t, env.spy.archives)
}

func TestPipeline_EmptyTaskList(t *testing.T) {
	env := newPipelineEnv(t, nil)
	status := core.NewPipeline(nil, env.options()).Run(context.Background(), env.root)

	assert.True(t, status.Finished())
	assert.Equal(t, core.StatusFinished, status.Text())
	assert.Empty(t, status.Errors())
	assert.Empty(t, status.Successful())
}

func TestPipeline_CleansScratch(t *testing.T) {
	payload := zipBytes(t, map[string]string{"car/data.acd": "a"})
	env := newPipelineEnv(t, map[string][]byte{"a": payload, "bad": []byte("nope")})

	tasks := []domain.ModDescriptor{descriptor("a.zip", "a", payload), descriptor("bad.zip", "bad", []byte("nope"))}
	core.NewPipeline(tasks, env.options()).Run(context.Background(), env.root)

	entries, err := os.ReadDir(env.scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "download and extraction directories should be removed")
}

func TestPipeline_CancelBetweenMods(t *testing.T) {
	payload := zipBytes(t, map[string]string{"car/data.acd": "a"})
	env := newPipelineEnv(t, map[string][]byte{"1": payload, "2": payload, "3": payload})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := env.options()
	opts.Fetcher = cancellingFetcher{Fetcher: opts.Fetcher, cancel: cancel}

	tasks := []domain.ModDescriptor{
		descriptor("1.zip", "1", payload),
		descriptor("2.zip", "2", payload),
		descriptor("3.zip", "3", payload),
	}
	status := core.NewPipeline(tasks, opts).Run(ctx, env.root)

	assert.Equal(t, []string{"1"}, status.Successful(), "the mod in progress completes")
	assert.Equal(t, []string{"installation cancelled: 2 mod(s) not attempted"}, status.Errors())
	assert.True(t, status.Finished())
	assert.Equal(t, 1, status.Snapshot().Attempted)
}

func TestPipeline_StatusTextWhileRunning(t *testing.T) {
	payload := zipBytes(t, map[string]string{"car/data.acd": "a"})
	env := newPipelineEnv(t, map[string][]byte{"a": payload, "b": payload})

	release := make(chan struct{})
	opts := env.options()
	opts.Fetcher = blockingFetcher{Fetcher: opts.Fetcher, release: release}

	tasks := []domain.ModDescriptor{descriptor("a.zip", "a", payload), descriptor("b.zip", "b", payload)}
	p := core.NewPipeline(tasks, opts)
	done := p.Start(context.Background(), env.root)

	assert.Eventually(t, func() bool {
		return p.Status().Text() == "Downloading mod a.zip (1/2)"
	}, time.Second, 5*time.Millisecond)

	snap := p.Status().Snapshot()
	assert.Equal(t, domain.StageDownloading, snap.Stage)
	assert.Equal(t, 1, snap.Current)
	assert.Equal(t, "a.zip", snap.CurrentName)
	assert.False(t, snap.Finished)

	release <- struct{}{}
	assert.Eventually(t, func() bool {
		return p.Status().Text() == "Downloading mod b.zip (2/2)"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, p.Status().Successful())

	close(release)
	<-done
	assert.Equal(t, core.StatusFinished, p.Status().Text())
}

func TestPipeline_StartOnce(t *testing.T) {
	payload := zipBytes(t, map[string]string{"car/data.acd": "a"})
	env := newPipelineEnv(t, map[string][]byte{"a": payload})

	p := core.NewPipeline([]domain.ModDescriptor{descriptor("a.zip", "a", payload)}, env.options())
	first := p.Start(context.Background(), env.root)
	second := p.Start(context.Background(), env.root)
	assert.Equal(t, first, second)

	<-first
	status := p.Run(context.Background(), env.root)
	assert.Equal(t, []string{"a"}, status.Successful(), "a finished pipeline does not run again")
	assert.Len(t, env.spy.archives, 1)
}

func TestPipeline_MonotonicUnderConcurrentReaders(t *testing.T) {
	payloads := map[string][]byte{}
	var tasks []domain.ModDescriptor
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
		p := zipBytes(t, map[string]string{id + "/data.acd": id})
		payloads[id] = p
		tasks = append(tasks, descriptor(id+".zip", id, p))
	}
	payloads["m3"] = []byte("corrupt")
	tasks[2].Size = uint64(len("corrupt"))
	delete(payloads, "m5")

	env := newPipelineEnv(t, payloads)
	p := core.NewPipeline(tasks, env.options())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastErrs, lastOK int
			var wasFinished bool
			for {
				snap := p.Status().Snapshot()
				assert.GreaterOrEqual(t, len(snap.Errors), lastErrs)
				assert.GreaterOrEqual(t, len(snap.Successful), lastOK)
				if wasFinished {
					assert.True(t, snap.Finished, "finished must never revert")
					assert.Equal(t, core.StatusFinished, snap.Text)
					return
				}
				lastErrs, lastOK = len(snap.Errors), len(snap.Successful)
				wasFinished = snap.Finished
				_ = p.Status().Text()
				_ = p.Status().Errors()
			}
		}()
	}

	<-p.Start(context.Background(), env.root)
	wg.Wait()

	assert.Equal(t, []string{"m1", "m2", "m4", "m6"}, p.Status().Successful())
	assert.Len(t, p.Status().Errors(), 2)
}

func TestPipeline_ReportsDownloadProgress(t *testing.T) {
	payload := zipBytes(t, map[string]string{"car/data.acd": strings.Repeat("x", 4096)})
	env := newPipelineEnv(t, map[string][]byte{"a": payload})

	var p *core.Pipeline
	var maxSeen int64
	opts := env.options()
	inner := opts.Placer
	opts.Placer = placerFunc(func(instrs []domain.PlacementInstruction, root string) error {
		maxSeen = p.Status().Snapshot().Downloaded
		return inner.ApplyAll(instrs, root)
	})
	p = core.NewPipeline([]domain.ModDescriptor{descriptor("a.zip", "a", payload)}, opts)
	p.Run(context.Background(), env.root)

	assert.Equal(t, int64(len(payload)), maxSeen)
}

type placerFunc func([]domain.PlacementInstruction, string) error

func (f placerFunc) ApplyAll(instrs []domain.PlacementInstruction, root string) error {
	return f(instrs, root)
}

func TestPipeline_CancelDuringDownloadFinishesMod(t *testing.T) {
	payload := zipBytes(t, map[string]string{"car/data.acd": strings.Repeat("x", 8192)})
	resume := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		half := len(payload) / 2
		w.Write(payload[:half])
		w.(http.Flusher).Flush()
		<-resume
		w.Write(payload[half:])
	}))
	t.Cleanup(server.Close)

	env := newPipelineEnv(t, nil)
	opts := env.options()
	opts.Fetcher = core.NewDownloader(server.Client(), server.URL+downloadPath+"?hash=")

	tasks := []domain.ModDescriptor{descriptor("m.zip", "m", payload), descriptor("n.zip", "n", payload)}
	p := core.NewPipeline(tasks, opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := p.Start(ctx, env.root)

	assert.Eventually(t, func() bool {
		return p.Status().Snapshot().Downloaded > 0
	}, time.Second, 5*time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(resume)
	<-done

	assert.Equal(t, []string{"m"}, p.Status().Successful(), "the mod being downloaded completes")
	assert.Equal(t, []string{"installation cancelled: 1 mod(s) not attempted"}, p.Status().Errors())
	assert.FileExists(t, filepath.Join(env.root, "content", "cars", "car", "data.acd"))
}
