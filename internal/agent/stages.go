package agent

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/fusion"
	"sentinel-be/pkg/rag"
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(round(v, 3), 'f', -1, 64)
}

func section(m map[string]interface{}, key string) map[string]interface{} {
	if sub, ok := m[key].(map[string]interface{}); ok {
		return sub
	}
	return map[string]interface{}{}
}

func num(m map[string]interface{}, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func flag(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func str(m map[string]interface{}, key, def string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return def
}

func strList(m map[string]interface{}, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return nil
}

func distinct(items []string) int {
	seen := make(map[string]struct{}, len(items))
	for _, s := range items {
		seen[s] = struct{}{}
	}
	return len(seen)
}

// IngestStage normalizes a raw case. Payload: {"case": RawCase payload}.
type IngestStage struct{}

func (IngestStage) Name() string { return entity.AgentIngest }

func (IngestStage) Fallback(in Input) (entity.IngestOutput, error) {
	c := section(in.Payload, "case")
	genomic := section(c, "genomic")
	epi := section(c, "epi_osint")
	geo := section(c, "geo")

	sourceDiversity := clamp01(float64(distinct(strList(epi, "source_types"))) / 4)
	newsVolume := clamp01(float64(len(strList(epi, "news_snippets"))) / 5)
	reliability := num(epi, "reliability_hint", 0.5)
	anomaly := num(epi, "anomaly_score", 0)

	credibility := clamp01(0.55*reliability + 0.25*sourceDiversity + 0.20*newsVolume)

	genomicPressure := num(genomic, "mutation_novelty", 0)*0.5 + num(genomic, "lineage_deviation", 0)*0.35
	if flag(genomic, "recombination_flag") {
		genomicPressure += 0.15
	}
	geoPressure := (num(geo, "travel_hub_score", 0) + num(geo, "population_density_score", 0) + num(geo, "border_connectivity", 0)) / 3
	riskSignal := 0.4*genomicPressure + 0.35*anomaly + 0.25*geoPressure

	normalized := rag.CopyMap(c)
	delete(normalized, "ground_truth")
	normalized["credibility_score"] = round(credibility, 3)
	normalized["derived_geo_pressure"] = round(geoPressure, 3)
	normalized["derived_genomic_pressure"] = round(genomicPressure, 3)

	return entity.IngestOutput{
		NormalizedCase:   normalized,
		CredibilityScore: round(credibility, 3),
		Score:            round(clamp01(riskSignal)*10, 3),
		Confidence:       round(clamp01(0.5+0.45*credibility), 3),
		Evidence: []string{
			"reliability_hint=" + fmtNum(reliability),
			"source_diversity=" + fmtNum(sourceDiversity),
			"anomaly_score=" + fmtNum(anomaly),
		},
	}, nil
}

// GenomicsStage scores genomic novelty. Payload: {"case", "ingest_output"}.
type GenomicsStage struct{}

func (GenomicsStage) Name() string { return entity.AgentGenomics }

func (GenomicsStage) Fallback(in Input) (entity.GenomicsOutput, error) {
	c := section(in.Payload, "case")
	ingest := section(in.Payload, "ingest_output")
	genomic := section(c, "genomic")

	novelty := num(genomic, "mutation_novelty", 0)
	lineage := num(genomic, "lineage_deviation", 0)
	recombination := 0.0
	if flag(genomic, "recombination_flag") {
		recombination = 1
	}

	score := round(clamp((0.45*novelty+0.35*lineage+0.20*recombination)*10, 0, 10), 3)
	credibility := num(ingest, "credibility_score", num(c, "credibility_score", 0.5))

	band := "low"
	switch {
	case score >= 7:
		band = "high"
	case score >= 4:
		band = "moderate"
	}

	return entity.GenomicsOutput{
		GenomicsScore: score,
		Confidence:    round(clamp01(0.5+0.4*credibility), 3),
		RiskBand:      band,
		Evidence: []string{
			"mutation_novelty=" + fmtNum(novelty),
			"lineage_deviation=" + fmtNum(lineage),
			"recombination_flag=" + strconv.FormatBool(flag(genomic, "recombination_flag")),
		},
	}, nil
}

// EpiOsintStage scores reporting anomaly and geographic pressure.
type EpiOsintStage struct{}

func (EpiOsintStage) Name() string { return entity.AgentEpiOsint }

func (EpiOsintStage) Fallback(in Input) (entity.EpiOsintOutput, error) {
	c := section(in.Payload, "case")
	epi := section(c, "epi_osint")
	geo := section(c, "geo")

	anomaly := num(epi, "anomaly_score", 0)
	reliability := num(epi, "reliability_hint", 0)
	sourceDiversity := clamp01(float64(distinct(strList(epi, "source_types"))) / 4)
	signalToNoise := round(clamp01(0.65*reliability+0.35*sourceDiversity), 3)

	epiScore := round(clamp((0.6*anomaly+0.25*reliability+0.15*sourceDiversity)*10, 0, 10), 3)
	travel := num(geo, "travel_hub_score", 0)
	geoScore := round(clamp((travel*0.4+num(geo, "population_density_score", 0)*0.35+num(geo, "border_connectivity", 0)*0.25)*10, 0, 10), 3)

	noiseFlags := []string{}
	if reliability < 0.4 {
		noiseFlags = append(noiseFlags, "low_reliability_sources")
	}
	if sourceDiversity < 0.25 {
		noiseFlags = append(noiseFlags, "single_source_bias")
	}

	return entity.EpiOsintOutput{
		EpiScore:      epiScore,
		GeoScore:      geoScore,
		SignalToNoise: signalToNoise,
		Confidence:    round(clamp01(0.45+0.45*signalToNoise), 3),
		Evidence: []string{
			"anomaly_score=" + fmtNum(anomaly),
			"reliability_hint=" + fmtNum(reliability),
			"source_diversity=" + fmtNum(sourceDiversity),
			"travel_hub_score=" + fmtNum(travel),
		},
		NoiseFlags: noiseFlags,
	}, nil
}

// MetaStage fuses the component scores. Payload: {"case", "ingest_output",
// "genomics_output", "epi_output", "fusion_state"}.
type MetaStage struct{}

func (MetaStage) Name() string { return entity.AgentMeta }

func (MetaStage) Fallback(in Input) (entity.MetaOutput, error) {
	ingest := section(in.Payload, "ingest_output")
	genomics := section(in.Payload, "genomics_output")
	epi := section(in.Payload, "epi_output")
	state := section(in.Payload, "fusion_state")
	c := section(in.Payload, "case")

	wGenomics := num(state, "w_genomics", 0.4)
	wEpi := num(state, "w_epi", 0.4)
	wGeo := num(state, "w_geo", 0.2)

	scores := fusion.Scores{
		Genomics: num(genomics, "genomics_score", 0),
		Epi:      num(epi, "epi_score", 0),
		Geo:      num(epi, "geo_score", 0),
	}

	fused := round(clamp(wGenomics*scores.Genomics+wEpi*scores.Epi+wGeo*scores.Geo, 0, 10), 3)
	conf := 0.25*num(ingest, "confidence", 0.5) + 0.35*num(genomics, "confidence", 0.5) + 0.40*num(epi, "confidence", 0.5)
	confidencePct := round(clamp01(conf)*100, 2)

	eligible := fused >= 7 && confidencePct >= 60
	action := "monitor"
	if eligible {
		action = "eligible_for_review"
	}

	top := scores.Dominant()
	location := str(c, "country", "the affected region")
	if city := str(c, "city", ""); city != "" {
		location = city + ", " + location
	}

	var suggestion string
	switch {
	case eligible:
		suggestion = fmt.Sprintf("Dispatch outbreak alert to regional health authority for %s.", location)
	case fused >= 5:
		suggestion = fmt.Sprintf("Increase epidemiological surveillance cadence in %s.", location)
	case top == "genomics" && scores.Genomics >= 4:
		suggestion = fmt.Sprintf("Expand genomic sequencing coverage in %s laboratories.", location)
	default:
		suggestion = fmt.Sprintf("Continue routine monitoring for %s; no immediate action required.", location)
	}

	return entity.MetaOutput{
		FusedScore:    fused,
		Severity:      fused,
		ConfidencePct: confidencePct,
		Rationale: fmt.Sprintf(
			"Fusion used weights genomics=%.2f, epi=%.2f, geo=%.2f. Scores were genomics=%.2f, epi=%.2f, geo=%.2f.",
			wGenomics, wEpi, wGeo, scores.Genomics, scores.Epi, scores.Geo,
		),
		Contributions: entity.Contributions{
			Genomics: round(scores.Genomics, 3),
			Epi:      round(scores.Epi, 3),
			Geo:      round(scores.Geo, 3),
		},
		RecommendedAction: action,
		Suggestion:        suggestion,
		StrategyNotes:     fmt.Sprintf("Prioritize %s signal handling; calibrate confidence around low-reliability OSINT.", top),
		UpdatedPrompts: map[string]string{
			entity.AgentIngest:   "Normalize signals and preserve credibility markers.",
			entity.AgentGenomics: "Emphasize recombination and lineage deviation shifts.",
			entity.AgentEpiOsint: "Filter low-reliability chatter before anomaly scoring.",
			entity.AgentMeta:     "Explain weighted fusion and confidence traceability in JSON.",
		},
	}, nil
}
