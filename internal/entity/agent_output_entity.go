package entity

import "time"

const (
	AgentIngest   = "ingest"
	AgentGenomics = "genomics"
	AgentEpiOsint = "epi_osint"
	AgentMeta     = "meta"
)

var AgentNames = []string{AgentIngest, AgentGenomics, AgentEpiOsint, AgentMeta}

type IngestOutput struct {
	NormalizedCase   map[string]interface{} `json:"normalized_case" validate:"required"`
	CredibilityScore float64                `json:"credibility_score" validate:"gte=0,lte=1"`
	Score            float64                `json:"score" validate:"gte=0,lte=10"`
	Confidence       float64                `json:"confidence" validate:"gte=0,lte=1"`
	Evidence         []string               `json:"evidence" validate:"required"`
}

type GenomicsOutput struct {
	GenomicsScore float64  `json:"genomics_score" validate:"gte=0,lte=10"`
	Confidence    float64  `json:"confidence" validate:"gte=0,lte=1"`
	RiskBand      string   `json:"risk_band" validate:"required,oneof=low moderate high"`
	Evidence      []string `json:"evidence" validate:"required"`
}

type EpiOsintOutput struct {
	EpiScore      float64  `json:"epi_score" validate:"gte=0,lte=10"`
	GeoScore      float64  `json:"geo_score" validate:"gte=0,lte=10"`
	SignalToNoise float64  `json:"signal_to_noise" validate:"gte=0,lte=1"`
	Confidence    float64  `json:"confidence" validate:"gte=0,lte=1"`
	Evidence      []string `json:"evidence" validate:"required"`
	NoiseFlags    []string `json:"noise_flags" validate:"required"`
}

type Contributions struct {
	Genomics float64 `json:"genomics"`
	Epi      float64 `json:"epi"`
	Geo      float64 `json:"geo"`
}

type MetaOutput struct {
	FusedScore        float64           `json:"fused_score" validate:"gte=0,lte=10"`
	Severity          float64           `json:"severity" validate:"gte=0,lte=10"`
	ConfidencePct     float64           `json:"confidence_pct" validate:"gte=0,lte=100"`
	Rationale         string            `json:"rationale" validate:"required"`
	Contributions     Contributions     `json:"contributions"`
	RecommendedAction string            `json:"recommended_action" validate:"required"`
	Suggestion        string            `json:"suggestion,omitempty"`
	StrategyNotes     string            `json:"strategy_notes"`
	UpdatedPrompts    map[string]string `json:"updated_prompts" validate:"required"`
}

type AgentOutputRecord struct {
	RunId      string
	CaseId     string
	AgentName  string
	Score      float64
	Confidence float64
	Output     map[string]interface{}
	CreatedAt  time.Time
}
