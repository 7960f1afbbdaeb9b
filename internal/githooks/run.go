package githooks

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/commitlm/commitlm/internal/artifact"
	"github.com/commitlm/commitlm/internal/config"
	"github.com/commitlm/commitlm/internal/gitrepo"
	"github.com/commitlm/commitlm/internal/llm"
)

// GenerateFunc is the generation entry point the Runner drives. It matches
// the factory's Generate method and is replaceable in tests.
type GenerateFunc func(ctx context.Context, request llm.GenerationRequest) (llm.GenerationResult, error)

// Runner executes hook-time pipelines. Every failure path inside a Runner
// method logs and returns nil: a hook outcome must never block a git
// operation, and the exit code of the hook process stays zero.
type Runner struct {
	repositoryRoot string
	settings       config.Settings
	generate       GenerateFunc
	logger         *zap.Logger
	now            func() time.Time
}

// NewRunner constructs a Runner rooted at repositoryRoot.
func NewRunner(repositoryRoot string, settings config.Settings, generate GenerateFunc, logger *zap.Logger) *Runner {
	return &Runner{
		repositoryRoot: repositoryRoot,
		settings:       settings,
		generate:       generate,
		logger:         logger,
		now:            time.Now,
	}
}

// generateBounded runs one generation under the configured hook timeout. The
// select on the bounded context guarantees the hook returns by the deadline
// even when a client ignores cancellation.
func (runner *Runner) generateBounded(ctx context.Context, request llm.GenerationRequest) (llm.GenerationResult, error) {
	boundedContext, cancel := context.WithTimeout(ctx, runner.settings.HookTimeout)
	defer cancel()

	var result llm.GenerationResult
	group, groupContext := errgroup.WithContext(boundedContext)
	group.Go(func() error {
		generationResult, generationError := runner.generate(groupContext, request)
		if generationError != nil {
			return generationError
		}
		result = generationResult
		return nil
	})

	waitChannel := make(chan error, 1)
	go func() { waitChannel <- group.Wait() }()

	select {
	case waitError := <-waitChannel:
		if waitError != nil {
			return llm.GenerationResult{}, waitError
		}
		return result, nil
	case <-boundedContext.Done():
		return llm.GenerationResult{}, fmt.Errorf("generation exceeded hook timeout of %s: %w", runner.settings.HookTimeout, boundedContext.Err())
	}
}

// PrepareCommitMessage drafts a commit message from the staged diff and writes
// it to out. An empty staged diff is a silent no-op, and any failure leaves
// out untouched so git proceeds with its normal template.
func (runner *Runner) PrepareCommitMessage(ctx context.Context, out io.Writer) error {
	stagedDiff, diffError := gitrepo.StagedDiff(ctx, runner.repositoryRoot)
	if diffError != nil {
		runner.logger.Warn("reading staged diff failed, skipping commit message generation", zap.Error(diffError))
		return nil
	}
	if strings.TrimSpace(stagedDiff) == "" {
		runner.logger.Debug("staged diff is empty, nothing to generate")
		return nil
	}

	result, generationError := runner.generateBounded(ctx, llm.GenerationRequest{
		Task: config.TaskCommitMessage,
		Diff: stagedDiff,
	})
	if generationError != nil {
		runner.logger.Warn("commit message generation failed, git continues without a draft", zap.Error(generationError))
		return nil
	}

	message := strings.TrimSpace(result.Text)
	if message == "" {
		runner.logger.Warn("commit message generation returned empty text")
		return nil
	}
	if result.FellBackToLocal {
		runner.logger.Info("commit message generated by local fallback",
			zap.String("provider", result.Provider), zap.String("model", result.Model))
	}
	fmt.Fprintln(out, message)
	return nil
}

// PostCommit generates a documentation artifact for the commit that just
// completed and writes it under the configured output directory. A missing
// artifact is acceptable, so every failure logs and returns nil.
func (runner *Runner) PostCommit(ctx context.Context) error {
	commitDiff, diffError := gitrepo.HeadCommitDiff(ctx, runner.repositoryRoot)
	if diffError != nil {
		runner.logger.Warn("reading commit diff failed, skipping documentation", zap.Error(diffError))
		return nil
	}
	if strings.TrimSpace(commitDiff) == "" {
		runner.logger.Debug("commit diff is empty, nothing to document")
		return nil
	}

	shortHash, hashError := gitrepo.HeadShortHash(ctx, runner.repositoryRoot)
	if hashError != nil {
		runner.logger.Warn("reading commit hash failed, skipping documentation", zap.Error(hashError))
		return nil
	}
	commitMessage, messageError := gitrepo.HeadMessage(ctx, runner.repositoryRoot)
	if messageError != nil {
		runner.logger.Warn("reading commit message failed, skipping documentation", zap.Error(messageError))
		return nil
	}

	result, generationError := runner.generateBounded(ctx, llm.GenerationRequest{
		Task: config.TaskDocGeneration,
		Diff: commitDiff,
	})
	if generationError != nil {
		runner.logger.Warn("documentation generation failed", zap.Error(generationError))
		return nil
	}

	outputDirectory := runner.settings.OutputDirectory
	if !filepath.IsAbs(outputDirectory) {
		outputDirectory = filepath.Join(runner.repositoryRoot, outputDirectory)
	}
	writtenPath, writeError := artifact.Write(outputDirectory, artifact.Document{
		ShortHash:      shortHash,
		CommitMessage:  commitMessage,
		RepositoryName: gitrepo.RepositoryName(runner.repositoryRoot),
		GeneratedAt:    runner.now(),
		Body:           result.Text,
	})
	if writeError != nil {
		runner.logger.Warn("writing documentation artifact failed", zap.Error(writeError))
		return nil
	}

	runner.logger.Info("documentation artifact written",
		zap.String("path", writtenPath),
		zap.String("provider", result.Provider),
		zap.String("model", result.Model))
	return nil
}
