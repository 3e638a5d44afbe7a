package stages

import (
	"encoding/json"

	"pageload-etl/internal/model"
)

// ExpandMessages replaces JSON-encoded string messages with the decoded
// object, which is how chromedriver hands back performance logs. Strings
// that do not decode to an object are left alone. It returns how many
// entries were expanded.
func ExpandMessages(entries []model.Entry) int {
	expanded := 0
	for _, e := range entries {
		s, ok := e["message"].(string)
		if !ok {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
			continue
		}
		e["message"] = obj
		expanded++
	}
	return expanded
}
