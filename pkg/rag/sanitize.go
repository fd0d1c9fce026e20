package rag

var heavyKeys = map[string]struct{}{
	"embedding":         {},
	"normalized_json":   {},
	"ground_truth":      {},
	"ground_truth_json": {},
}

// StripHeavyFields drops vectors and ground truth from every payload,
// at any nesting depth, before hits are shown to a scoring stage.
func StripHeavyFields(hits []Hit) []Hit {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		h.Payload = stripMap(h.Payload)
		out = append(out, h)
	}
	return out
}

// StripMap is StripHeavyFields for a bare map.
func StripMap(m map[string]interface{}) map[string]interface{} {
	return stripMap(m)
}

func stripMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if _, heavy := heavyKeys[k]; heavy {
			continue
		}
		out[k] = stripValue(v)
	}
	return out
}

func stripValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return stripMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = stripValue(e)
		}
		return out
	default:
		return v
	}
}
