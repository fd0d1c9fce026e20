package entity

import (
	"encoding/json"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type GenomicFeatures struct {
	MutationNovelty   float64 `json:"mutation_novelty" validate:"gte=0,lte=1"`
	LineageDeviation  float64 `json:"lineage_deviation" validate:"gte=0,lte=1"`
	RecombinationFlag bool    `json:"recombination_flag"`
	Notes             string  `json:"notes"`
}

type EpiOsintFeatures struct {
	NewsSnippets    []string `json:"news_snippets"`
	SourceTypes     []string `json:"source_types"`
	AnomalyScore    float64  `json:"anomaly_score" validate:"gte=0,lte=1"`
	ReliabilityHint float64  `json:"reliability_hint" validate:"gte=0,lte=1"`
}

type GeoFeatures struct {
	TravelHubScore         float64 `json:"travel_hub_score" validate:"gte=0,lte=1"`
	PopulationDensityScore float64 `json:"population_density_score" validate:"gte=0,lte=1"`
	BorderConnectivity     float64 `json:"border_connectivity" validate:"gte=0,lte=1"`
}

type GroundTruth struct {
	TrueOutbreak      bool    `json:"true_outbreak"`
	TrueSeverity      float64 `json:"true_severity" validate:"gte=0,lte=10"`
	OfficialAlertDate string  `json:"official_alert_date" validate:"required,datetime=2006-01-02"`
}

// RawCase is one outbreak-candidate event as it arrives from the corpus.
type RawCase struct {
	CaseId        string           `json:"case_id" validate:"required"`
	Country       string           `json:"country" validate:"required"`
	City          string           `json:"city"`
	Lat           float64          `json:"lat" validate:"gte=-90,lte=90"`
	Lon           float64          `json:"lon" validate:"gte=-180,lte=180"`
	Date          string           `json:"date" validate:"required,datetime=2006-01-02"`
	PathogenLabel *string          `json:"pathogen_label"`
	Genomic       GenomicFeatures  `json:"genomic"`
	EpiOsint      EpiOsintFeatures `json:"epi_osint"`
	Geo           GeoFeatures      `json:"geo"`
	GroundTruth   GroundTruth      `json:"ground_truth"`
}

// Payload returns the JSON-shaped view of the case handed to scoring stages.
// Ground truth is never part of it.
func (c RawCase) Payload() map[string]interface{} {
	data, _ := json.Marshal(c)
	out := make(map[string]interface{})
	_ = json.Unmarshal(data, &out)
	delete(out, "ground_truth")
	if epi, ok := out["epi_osint"].(map[string]interface{}); ok {
		for _, key := range []string{"news_snippets", "source_types"} {
			if epi[key] == nil {
				epi[key] = []interface{}{}
			}
		}
	}
	return out
}

// NormalizedCase is the ingest stage's projection of a case.
type NormalizedCase map[string]interface{}

// CaseRecord is a persisted row of the cases table.
type CaseRecord struct {
	CaseId        string
	RunId         string
	CaseDate      string
	Country       string
	City          string
	Lat           float64
	Lon           float64
	PathogenLabel *string
	Normalized    map[string]interface{}
	GroundTruth   map[string]interface{}
	Embedding     []float32
	CreatedAt     time.Time
}

// ParseDate accepts "YYYY-MM-DD" and full timestamps, keeping only the civil date.
func ParseDate(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		y, m, d := v.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return time.Time{}, false
		}
		if i := strings.Index(text, "T"); i >= 0 {
			text = text[:i]
		}
		t, err := time.Parse(DateLayout, text)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
