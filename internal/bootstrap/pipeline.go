package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"sentinel-be/internal/agent"
	"sentinel-be/internal/config"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/pipeline"
	"sentinel-be/internal/repository/memory"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/internal/retrieval"
	"sentinel-be/internal/service"
	"sentinel-be/pkg/embedding"
	"sentinel-be/pkg/llm/factory"
	"sentinel-be/pkg/rag"
)

// Pipeline is the scoring stack shared by the REST server and the CLI.
type Pipeline struct {
	Orchestrator *pipeline.Orchestrator
	Statuses     *memory.RunStatusRepository
	Audit        service.IAuditService
}

// NewPipeline builds the embedder, LLM, agents and retriever, indexes the
// corpus and returns an orchestrator ready to execute runs.
func NewPipeline(
	ctx context.Context,
	cfg *config.Config,
	uowFactory unitofwork.RepositoryFactory,
	corpus []entity.RawCase,
	publisher pipeline.ProgressPublisher,
	pipelineLogger *log.Logger,
) (*Pipeline, error) {
	embedder := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.BaseURL,
		cfg.Ai.Region,
		cfg.Ai.APIKey,
		cfg.Ai.EmbeddingModelID,
		cfg.Ai.EmbeddingDim,
	)
	pipelineLogger.Printf("[INFO] Using Embedding Provider: %s (dim %d)", cfg.Ai.EmbeddingProvider, cfg.Ai.EmbeddingDim)

	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Type:      cfg.Ai.LLMProvider,
		ModelName: cfg.Ai.ChatModelID,
		BaseURL:   cfg.Ai.BaseURL,
		Region:    cfg.Ai.Region,
		APIKey:    cfg.Ai.APIKey,
		MaxTokens: cfg.Ai.MaxTokens,
		Timeout:   time.Duration(cfg.Ai.RequestTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	if llmProvider == nil {
		pipelineLogger.Printf("[INFO] No LLM provider configured, stages run on local fallbacks")
	} else {
		pipelineLogger.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.ChatModelID)
	}

	agents, err := agent.NewAgents(llmProvider, cfg.AgentModelID, agent.WithLogger(pipelineLogger))
	if err != nil {
		return nil, fmt.Errorf("load agent prompts: %w", err)
	}

	var reranker *rag.Reranker
	if cfg.Ai.RerankEnabled {
		reranker = rag.NewReranker(rag.NewBedrockRerankClient(cfg.Ai.Region, cfg.Ai.APIKey, cfg.Ai.RerankModelID), pipelineLogger)
	}
	retriever := retrieval.NewRetriever(uowFactory, embedder, reranker, retrieval.Config{
		TopK:          cfg.Pipeline.RagTopK,
		MaxVectorScan: cfg.Pipeline.MaxVectorScan,
	}, pipelineLogger)

	if err := retriever.BuildPastOutbreakIndex(ctx, corpus); err != nil {
		pipelineLogger.Printf("[WARN] Failed to build past outbreak index: %v", err)
	}

	p := &Pipeline{
		Statuses: memory.NewRunStatusRepository(),
		Audit:    service.NewAuditService(uowFactory),
	}
	p.Orchestrator = pipeline.NewOrchestrator(
		agents,
		retriever,
		embedder,
		uowFactory,
		p.Audit,
		publisher,
		p.Statuses,
		pipeline.Config{
			GuardrailSeverity:      cfg.Pipeline.GuardrailSeverityThreshold,
			GuardrailConfidencePct: cfg.Pipeline.GuardrailConfidenceThreshold,
			RagTopK:                cfg.Pipeline.RagTopK,
		},
		pipelineLogger,
	)
	return p, nil
}

// RunConfig maps the pipeline settings onto the run service options.
func RunConfig(cfg *config.Config) service.RunConfig {
	return service.RunConfig{
		DefaultCases:           cfg.Pipeline.RunDefaultCases,
		GuardrailSeverity:      cfg.Pipeline.GuardrailSeverityThreshold,
		GuardrailConfidencePct: cfg.Pipeline.GuardrailConfidenceThreshold,
		RagTopK:                cfg.Pipeline.RagTopK,
		DispatchDryRun:         cfg.Pipeline.DispatchDryRun,
	}
}
