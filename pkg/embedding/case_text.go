package embedding

import (
	"fmt"
	"strconv"
	"strings"
)

// CaseEmbeddingText flattens a case into the " | "-joined text that gets embedded.
func CaseEmbeddingText(c map[string]interface{}) string {
	genomic, _ := c["genomic"].(map[string]interface{})
	epi, _ := c["epi_osint"].(map[string]interface{})
	geo, _ := c["geo"].(map[string]interface{})

	parts := []string{
		text(c["case_id"]),
		text(c["country"]),
		text(c["city"]),
		text(c["pathogen_label"]),
		text(genomic["mutation_novelty"]),
		text(genomic["lineage_deviation"]),
		text(genomic["recombination_flag"]),
		text(epi["anomaly_score"]),
		text(epi["reliability_hint"]),
		strings.Join(stringList(epi["source_types"]), " "),
		strings.Join(stringList(epi["news_snippets"]), " "),
		text(geo["travel_hub_score"]),
		text(geo["population_density_score"]),
		text(geo["border_connectivity"]),
	}
	return strings.Join(parts, " | ")
}

func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func stringList(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, text(e))
		}
		return out
	}
	return nil
}
