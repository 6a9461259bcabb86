package utils

import "encoding/json"

// ExtractJSONObjects scans arbitrary text (typically captured subprocess logs)
// and returns, in order, every syntactically valid top-level JSON object found
// by brace-depth tracking. Candidates that do not parse are skipped silently.
func ExtractJSONObjects(text string) []map[string]interface{} {
	var objs []map[string]interface{}

	depth := 0
	start := -1
	for i, ch := range text {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				var obj map[string]interface{}
				if err := json.Unmarshal([]byte(text[start:i+1]), &obj); err == nil {
					objs = append(objs, obj)
				}
				start = -1
			}
		}
	}

	return objs
}
