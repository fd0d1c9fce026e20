package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validLine = `{"case_id":"c1","country":"Kenya","city":"Nairobi","lat":-1.29,"lon":36.82,"date":"2024-02-01","pathogen_label":null,` +
	`"genomic":{"mutation_novelty":0.7,"lineage_deviation":0.4,"recombination_flag":true,"notes":"n"},` +
	`"epi_osint":{"news_snippets":["cluster"],"source_types":["news"],"anomaly_score":0.8,"reliability_hint":0.6},` +
	`"geo":{"travel_hub_score":0.9,"population_density_score":0.7,"border_connectivity":0.5},` +
	`"ground_truth":{"true_outbreak":true,"true_severity":8.5,"official_alert_date":"2024-02-10"}}`

func TestDecode(t *testing.T) {
	second := strings.Replace(validLine, `"c1"`, `"c2"`, 1)
	cases, err := Decode(strings.NewReader(validLine + "\n\n   \n" + second + "\n"))
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "c1", cases[0].CaseId)
	assert.Equal(t, "c2", cases[1].CaseId)
	assert.Nil(t, cases[0].PathogenLabel)
	assert.True(t, cases[0].Genomic.RecombinationFlag)
	assert.Equal(t, "2024-02-10", cases[0].GroundTruth.OfficialAlertDate)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "bad json", input: validLine + "\n{nope", wantErr: "line 2"},
		{name: "score out of range", input: strings.Replace(validLine, `"anomaly_score":0.8`, `"anomaly_score":1.8`, 1), wantErr: "AnomalyScore"},
		{name: "bad date", input: strings.Replace(validLine, `"date":"2024-02-01"`, `"date":"01/02/2024"`, 1), wantErr: "Date"},
		{name: "missing country", input: strings.Replace(validLine, `"country":"Kenya"`, `"country":""`, 1), wantErr: "Country"},
		{name: "duplicate id", input: validLine + "\n" + validLine, wantErr: "duplicate case_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(validLine+"\n"), 0o644))

	cases, err := LoadJSONL(path)
	require.NoError(t, err)
	assert.Len(t, cases, 1)

	_, err = LoadJSONL(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
