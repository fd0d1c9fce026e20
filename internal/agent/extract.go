package agent

import (
	"encoding/json"
	"strings"
)

type extractState int

const (
	stateDirectParse extractState = iota
	stateFenceStrip
	stateBraceScan
	stateGiveUp
)

// ExtractJSON pulls a JSON object out of free model text. It tries the text
// as is, then without markdown fences, then the widest {...} span.
func ExtractJSON(text string) (map[string]interface{}, bool) {
	current := strings.TrimSpace(text)
	if current == "" {
		return nil, false
	}

	state := stateDirectParse
	for {
		switch state {
		case stateDirectParse:
			if obj, ok := parseObject(current); ok {
				return obj, true
			}
			state = stateFenceStrip

		case stateFenceStrip:
			current = stripFences(current)
			state = stateBraceScan

		case stateBraceScan:
			start := strings.Index(current, "{")
			end := strings.LastIndex(current, "}")
			if start < 0 || end < start {
				state = stateGiveUp
				continue
			}
			if obj, ok := parseObject(current[start : end+1]); ok {
				return obj, true
			}
			state = stateGiveUp

		case stateGiveUp:
			return nil, false
		}
	}
}

func parseObject(s string) (map[string]interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

func stripFences(s string) string {
	const open = "```json"
	if len(s) >= len(open) && strings.EqualFold(s[:len(open)], open) {
		s = strings.TrimSpace(s[len(open):])
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
