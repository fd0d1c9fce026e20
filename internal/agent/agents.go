package agent

import (
	"fmt"

	"sentinel-be/internal/entity"
	"sentinel-be/pkg/llm"
)

// Agents is the full scoring chain for one service instance.
type Agents struct {
	Ingest   *Runner[entity.IngestOutput]
	Genomics *Runner[entity.GenomicsOutput]
	EpiOsint *Runner[entity.EpiOsintOutput]
	Meta     *Runner[entity.MetaOutput]
}

// NewAgents wires every stage to the same provider. modelID resolves the
// model per stage; it may be nil. A nil provider runs fallbacks only.
func NewAgents(provider llm.LLMProvider, modelID func(agent string) string, opts ...RunnerOption) (*Agents, error) {
	prompts, err := LoadPrompts()
	if err != nil {
		return nil, err
	}
	for _, name := range entity.AgentNames {
		if _, ok := prompts[name]; !ok {
			return nil, fmt.Errorf("no prompt for stage %s", name)
		}
	}
	model := func(name string) string {
		if modelID == nil {
			return ""
		}
		return modelID(name)
	}

	return &Agents{
		Ingest:   NewRunner[entity.IngestOutput](IngestStage{}, prompts[entity.AgentIngest], provider, model(entity.AgentIngest), opts...),
		Genomics: NewRunner[entity.GenomicsOutput](GenomicsStage{}, prompts[entity.AgentGenomics], provider, model(entity.AgentGenomics), opts...),
		EpiOsint: NewRunner[entity.EpiOsintOutput](EpiOsintStage{}, prompts[entity.AgentEpiOsint], provider, model(entity.AgentEpiOsint), opts...),
		Meta:     NewRunner[entity.MetaOutput](MetaStage{}, prompts[entity.AgentMeta], provider, model(entity.AgentMeta), opts...),
	}, nil
}
