// Package rag orchestrates the retrieval-augmented answering pipeline. It
// assembles the corpus for the requested scope, builds a request-scoped
// embedding index, retrieves the top-k segments for the query, composes the
// context block, renders the prompt for the active chat mode, calls the
// generative model once, and post-processes the answer into the final result.
package rag

import (
	"context"
	"errors"
	"log/slog"

	"github.com/RNS-Forge/Collexa.AI/engine/domain"
	"github.com/RNS-Forge/Collexa.AI/engine/semantic"
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CorpusAssembler resolves a chat scope into segments.
type CorpusAssembler interface {
	Assemble(ctx context.Context, scope domain.Scope) ([]domain.Segment, error)
}

// Options configures the answering pipeline.
type Options struct {
	// TopK is the number of segments retrieved per query.
	TopK int
}

// DefaultOptions returns the default pipeline configuration.
func DefaultOptions() Options {
	return Options{TopK: semantic.DefaultTopK}
}

// noDocumentsAnswer is returned without a model call when a document-grounded
// request has no retrievable context.
const noDocumentsAnswer = "There are no documents available to answer from yet. " +
	"Upload course materials (PDF, DOCX, or TXT) and ask again."

// Service answers chat turns. The embedder may be nil, in which case
// retrieval is skipped and requests degrade to general-knowledge answering;
// a nil generator makes every request fail with ErrServiceUnavailable.
type Service struct {
	assembler CorpusAssembler
	embedder  semantic.Embedder
	generator Generator
	opts      Options
	logger    *slog.Logger
}

// New creates an answering Service.
func New(assembler CorpusAssembler, embedder semantic.Embedder, generator Generator, opts Options, logger *slog.Logger) *Service {
	if opts.TopK <= 0 {
		opts.TopK = semantic.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		assembler: assembler,
		embedder:  embedder,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Answer runs the full pipeline for one chat turn.
//
// Degenerate paths are normal control flow, not errors: an empty corpus or
// empty context in documents mode returns a canned advisory answer with zero
// model calls, and a missing embedder downgrades the turn to the no-context
// template of its mode. Every dependency failure is wrapped with the stage it
// came from; no partial result is ever returned.
func (s *Service) Answer(ctx context.Context, turn domain.ChatTurn) (*domain.AnswerResult, error) {
	if s.generator == nil {
		return nil, domain.ErrServiceUnavailable
	}
	if err := domain.ValidateChatTurn(turn); err != nil {
		return nil, err
	}

	segments, err := s.assembler.Assemble(ctx, turn.Scope)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.NewStageError("resolve scope", err)
	}
	s.logger.Info("rag: scope resolved",
		"scope", turn.Scope.Kind.String(), "mode", string(turn.Mode), "segments", len(segments))

	if len(segments) == 0 && turn.Mode == domain.ModeDocuments {
		return noDocumentsResult(), nil
	}

	if s.embedder == nil {
		s.logger.Warn("rag: embedder unavailable, answering without retrieval")
	}
	index := semantic.BuildIndex(ctx, s.embedder, segments, s.logger)

	results, err := index.Search(ctx, s.embedder, turn.Query, s.opts.TopK)
	if err != nil {
		return nil, domain.NewStageError("retrieve", err)
	}

	contextBlock := ComposeContext(results)
	if contextBlock == "" && turn.Mode == domain.ModeDocuments {
		return noDocumentsResult(), nil
	}

	prompt := BuildPrompt(turn.Mode, turn.Query, contextBlock)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, domain.NewStageError("generate", err)
	}

	return &domain.AnswerResult{
		Answer:         answer,
		Sources:        ExtractSources(results),
		VideoLinks:     ExtractVideoLinks(answer),
		HasFileContext: contextBlock != "",
	}, nil
}

func noDocumentsResult() *domain.AnswerResult {
	return &domain.AnswerResult{
		Answer:     noDocumentsAnswer,
		Sources:    []string{},
		VideoLinks: []string{},
	}
}
