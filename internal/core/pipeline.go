package core

import (
	"context"
	"fmt"
	"os"
	"sync"

	"acsync/internal/domain"
	"acsync/internal/logging"

	"github.com/rs/zerolog"
)

// Fetcher downloads a mod archive without judging its size
type Fetcher interface {
	Download(ctx context.Context, mod domain.ModDescriptor, destDir string, progressFn ProgressFunc) (*DownloadResult, error)
}

// Unpacker extracts an archive into a fresh directory owned by the caller
type Unpacker interface {
	Unpack(archivePath string) (string, error)
}

// LayoutResolver decides where extracted content belongs
type LayoutResolver interface {
	Resolve(listing Listing) ([]domain.PlacementInstruction, error)
}

// Placer applies placement instructions, stopping at the first failure
type Placer interface {
	ApplyAll(instrs []domain.PlacementInstruction, root string) error
}

// PipelineOptions wires the stages of a pipeline
type PipelineOptions struct {
	Fetcher  Fetcher
	Unpacker Unpacker
	Resolver LayoutResolver
	Placer   Placer

	// ScratchRoot is where the run's download directory is created.
	// Empty means the system temp dir.
	ScratchRoot string
}

// Pipeline installs a task list sequentially: download, verify, extract,
// resolve and place each mod. A failing mod is recorded and skipped; the
// rest of the list is still processed.
type Pipeline struct {
	tasks  []domain.ModDescriptor
	opts   PipelineOptions
	status *Status
	logger zerolog.Logger

	once sync.Once
	done chan struct{}
}

// NewPipeline creates a pipeline for tasks. A pipeline runs at most once.
func NewPipeline(tasks []domain.ModDescriptor, opts PipelineOptions) *Pipeline {
	if opts.Resolver == nil {
		opts.Resolver = NewResolver()
	}
	return &Pipeline{
		tasks:  append([]domain.ModDescriptor(nil), tasks...),
		opts:   opts,
		status: newStatus(len(tasks)),
		logger: logging.L("pipeline"),
		done:   make(chan struct{}),
	}
}

// Status returns the read-only view of the run
func (p *Pipeline) Status() *Status {
	return p.status
}

// Done is closed when the run has finished
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Start launches the run in the background against the installation root.
// Later calls do nothing and return the same channel.
// Cancelling ctx stops the run before the next mod, never in the middle of one.
func (p *Pipeline) Start(ctx context.Context, root string) <-chan struct{} {
	p.once.Do(func() {
		go func() {
			defer close(p.done)
			p.run(ctx, root)
		}()
	})
	return p.done
}

// Run is Start followed by waiting for the run to finish
func (p *Pipeline) Run(ctx context.Context, root string) *Status {
	<-p.Start(ctx, root)
	return p.status
}

func (p *Pipeline) run(ctx context.Context, root string) {
	defer p.status.finish()

	done := logging.LogOperationStart(p.logger, "install run")
	defer done()

	downloadDir, err := os.MkdirTemp(p.opts.ScratchRoot, "acsync-download-*")
	if err != nil {
		p.logger.Error().Err(err).Str("scratchRoot", p.opts.ScratchRoot).Msg("Cannot create scratch directory")
		p.status.fail(fmt.Sprintf("%v: %v", domain.ErrScratchCreation, err))
		return
	}
	defer os.RemoveAll(downloadDir)

	p.logger.Info().Int("mods", len(p.tasks)).Str("root", root).Msg("Starting installation")

	// Cancellation is only honoured between mods; a started mod runs to the end.
	stageCtx := context.WithoutCancel(ctx)

	for i, mod := range p.tasks {
		if ctx.Err() != nil {
			remaining := len(p.tasks) - i
			p.logger.Warn().Int("remaining", remaining).Msg("Installation cancelled")
			p.status.fail(fmt.Sprintf("installation cancelled: %d mod(s) not attempted", remaining))
			return
		}

		if err := p.install(stageCtx, i+1, mod, downloadDir, root); err != nil {
			p.logger.Error().Err(err).Str("mod", mod.Filename).Msg("Mod failed")
			p.status.fail(err.Error())
			continue
		}

		p.logger.Info().Str("mod", mod.Filename).Str("checksum", mod.Checksum).Msg("Mod installed")
		p.status.succeed(mod.Checksum)
	}
}

// install runs every stage for one mod. Scratch files of the mod are gone when it returns.
func (p *Pipeline) install(ctx context.Context, index int, mod domain.ModDescriptor, downloadDir, root string) error {
	fail := func(stage domain.Stage, err error) error {
		return &domain.StageError{Mod: mod.Filename, Stage: stage, Err: err}
	}

	p.enter(index, mod, domain.StageDownloading)
	result, err := p.opts.Fetcher.Download(ctx, mod, downloadDir, func(pr DownloadProgress) {
		p.status.progress(pr.Downloaded, pr.TotalBytes)
	})
	if err != nil {
		return fail(domain.StageDownloading, err)
	}
	defer os.Remove(result.Path)

	p.enter(index, mod, domain.StageVerifying)
	if err := VerifySize(mod, result.Size); err != nil {
		return fail(domain.StageVerifying, err)
	}

	p.enter(index, mod, domain.StageExtracting)
	dir, err := p.opts.Unpacker.Unpack(result.Path)
	if err != nil {
		return fail(domain.StageExtracting, err)
	}
	defer os.RemoveAll(dir)

	p.enter(index, mod, domain.StageResolving)
	entries, err := ListTree(dir)
	if err != nil {
		return fail(domain.StageResolving, domain.WithKind(domain.ErrResolve, err))
	}
	instrs, err := p.opts.Resolver.Resolve(Listing{Root: dir, Entries: entries})
	if err != nil {
		return fail(domain.StageResolving, err)
	}

	p.enter(index, mod, domain.StagePlacing)
	if err := p.opts.Placer.ApplyAll(instrs, root); err != nil {
		return fail(domain.StagePlacing, err)
	}

	return nil
}

func (p *Pipeline) enter(index int, mod domain.ModDescriptor, stage domain.Stage) {
	text := fmt.Sprintf("%s mod %s (%d/%d)", stage.Verb(), mod.Filename, index, len(p.tasks))
	p.logger.Debug().Str("mod", mod.Filename).Str("stage", stage.String()).Msg(text)
	p.status.enter(index, mod, stage, text)
}
