package client

import (
	"context"
	"encoding/json"
	"fmt"

	"goa.design/utcp/pkg/postprocess"
	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/repository"
	"goa.design/utcp/pkg/search"
	"goa.design/utcp/pkg/telemetry"
	"goa.design/utcp/pkg/variables"
)

// Client is the UTCP façade (spec §4.9): it owns the tool repository,
// search strategy, post-processor pipeline, variable substitutor and
// protocol dispatcher, and exposes manual registration, tool calls,
// streaming calls and required-variable introspection over them.
type Client struct {
	rootDir     string
	config      *Config
	substitutor *variables.Substitutor
	repo        repository.Repository
	strategy    search.Strategy
	pipeline    *postprocess.Pipeline
	dispatcher  *protocol.Dispatcher

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

// Option configures optional Client dependencies.
type Option func(*Client)

// WithLogger overrides the client's logger (default: a no-op).
func WithLogger(l telemetry.Logger) Option { return func(c *Client) { c.logger = l } }

// WithMetrics overrides the client's metrics sink (default: a no-op).
func WithMetrics(m telemetry.Metrics) Option { return func(c *Client) { c.metrics = m } }

// WithTracer overrides the client's tracer (default: a no-op).
func WithTracer(t telemetry.Tracer) Option { return func(c *Client) { c.tracer = t } }

// Create builds a Client rooted at rootDir (used to resolve relative
// variable-loader file paths) from cfg: it bootstraps every extension-point
// registry, builds the repository/search-strategy/post-processor pipeline,
// resolves config.variables against the configured loaders, and registers
// every manual in config.manual_call_templates concurrently (spec §4.9).
// Per-manual registration failures are returned alongside a non-nil Client
// so callers can still use whichever manuals did register.
func Create(ctx context.Context, rootDir string, cfg *Config, opts ...Option) (*Client, []error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Client{
		rootDir:    rootDir,
		config:     cfg,
		dispatcher: protocol.NewDispatcher(),
		logger:     telemetry.NewNoopLogger(),
		metrics:    telemetry.NewNoopMetrics(),
		tracer:     telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(c)
	}

	variables.Bootstrap()
	repository.Bootstrap()
	search.Bootstrap()
	postprocess.Bootstrap()
	bootstrapProtocols(c.logger)

	repo, err := buildRepository(cfg.ToolRepository)
	if err != nil {
		return nil, []error{err}
	}
	c.repo = repo

	strategy, err := buildStrategy(cfg.ToolSearchStrategy)
	if err != nil {
		return nil, []error{err}
	}
	c.strategy = strategy

	pipeline, err := buildPipeline(cfg.PostProcessing)
	if err != nil {
		return nil, []error{err}
	}
	c.pipeline = pipeline

	loaders, err := buildLoaders(rootDir, cfg.LoadVariablesFrom)
	if err != nil {
		return nil, []error{err}
	}

	resolvedVars, err := resolveConfigVariables(cfg.Variables, loaders)
	if err != nil {
		return nil, []error{err}
	}
	c.substitutor = variables.New(resolvedVars, loaders)

	errs := c.registerInitialManuals(ctx, cfg.ManualCallTemplates)
	return c, errs
}

type repositoryEnvelope struct {
	RepositoryType string `json:"repository_type"`
}

func buildRepository(raw json.RawMessage) (repository.Repository, error) {
	kind := repository.KindInMemory
	if len(raw) > 0 {
		var env repositoryEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode tool_repository: %w", err)
		}
		if env.RepositoryType != "" {
			kind = env.RepositoryType
		}
	}
	factory, err := repository.Kinds.Get(kind)
	if err != nil {
		return nil, err
	}
	return factory()
}

type searchStrategyEnvelope struct {
	ToolSearchStrategyType string `json:"tool_search_strategy_type"`
}

func buildStrategy(raw json.RawMessage) (search.Strategy, error) {
	kind := search.KindTagAndDescriptionWordMatch
	if len(raw) > 0 {
		var env searchStrategyEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode tool_search_strategy: %w", err)
		}
		if env.ToolSearchStrategyType != "" {
			kind = env.ToolSearchStrategyType
		}
	}
	factory, err := search.Kinds.Get(kind)
	if err != nil {
		return nil, err
	}
	return factory()
}

type postProcessorEnvelope struct {
	PostProcessingType string `json:"post_processing_type"`
}

func buildPipeline(entries []json.RawMessage) (*postprocess.Pipeline, error) {
	stages := make([]postprocess.PostProcessor, 0, len(entries))
	for _, raw := range entries {
		var env postProcessorEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode post_processing entry: %w", err)
		}
		factory, err := postprocess.Kinds.Get(env.PostProcessingType)
		if err != nil {
			return nil, err
		}
		stage, err := factory(raw)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return &postprocess.Pipeline{Stages: stages}, nil
}

func buildLoaders(rootDir string, entries []json.RawMessage) ([]variables.Loader, error) {
	loaders := make([]variables.Loader, 0, len(entries))
	for _, raw := range entries {
		l, err := variables.Build(rootDir, raw)
		if err != nil {
			return nil, err
		}
		loaders = append(loaders, l)
	}
	return loaders, nil
}

// resolveConfigVariables substitutes references inside config.variables'
// own values, using an empty ConfigVariables scope so a value can never
// reference config.variables itself (spec §9, preventing self-reference
// loops) while still drawing on loaders and the process environment.
func resolveConfigVariables(vars map[string]string, loaders []variables.Loader) (map[string]string, error) {
	if len(vars) == 0 {
		return vars, nil
	}
	resolver := variables.New(nil, loaders)
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		resolved, err := resolver.Substitute(v, "")
		if err != nil {
			return nil, err
		}
		out[k] = resolved.(string)
	}
	return out, nil
}

// Close tears down every protocol instance the client has constructed.
func (c *Client) Close(ctx context.Context) []error {
	return c.dispatcher.CloseAll(ctx)
}

// Protocol returns the live protocol instance for kind, constructing it on
// first use. Embedding applications use this to reach process-local
// extension points a call template alone can't express — most notably
// directproto's RegisterCallable, which has no wire representation and must
// be wired in Go before a direct-call manual's tools can be invoked.
func (c *Client) Protocol(kind string) (protocol.Protocol, error) {
	return c.dispatcher.For(kind)
}
