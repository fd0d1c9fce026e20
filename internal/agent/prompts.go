package agent

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptFile []byte

// Prompt is the static part of a stage's model request.
type Prompt struct {
	Template string `yaml:"template"`
	Schema   string `yaml:"schema"`
}

// LoadPrompts parses the embedded prompt book keyed by stage name.
func LoadPrompts() (map[string]Prompt, error) {
	return parsePrompts(promptFile)
}

func parsePrompts(data []byte) (map[string]Prompt, error) {
	prompts := make(map[string]Prompt)
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	for name, p := range prompts {
		p.Template = strings.TrimSpace(p.Template)
		p.Schema = strings.TrimSpace(p.Schema)
		if !json.Valid([]byte(p.Schema)) {
			return nil, fmt.Errorf("prompt %s: schema is not valid JSON", name)
		}
		prompts[name] = p
	}
	return prompts, nil
}

// IndentedSchema is the schema pretty-printed for the repair request.
func (p Prompt) IndentedSchema() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(p.Schema), "", "  "); err != nil {
		return p.Schema
	}
	return buf.String()
}

func compactJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// BuildPrompt lays out the template, schema, payload, RAG context and notes
// in the order every stage expects.
func BuildPrompt(p Prompt, in Input) string {
	rag := in.Rag
	if rag == nil {
		rag = map[string]interface{}{}
	}
	notes := in.Notes
	if notes == nil {
		notes = []string{}
	}
	return p.Template + "\n\n" +
		"Output schema:\n" + p.Schema + "\n\n" +
		"Payload JSON:\n" + compactJSON(in.Payload) + "\n\n" +
		"RAG JSON:\n" + compactJSON(rag) + "\n\n" +
		"Strategy notes:\n" + compactJSON(notes)
}

func repairPrompt(p Prompt, raw string) string {
	return "Fix the following model output so it is valid JSON and matches the schema exactly. " +
		"Return JSON only, no markdown.\n\n" +
		"Schema:\n" + p.IndentedSchema() + "\n\n" +
		"Broken output:\n" + raw
}
