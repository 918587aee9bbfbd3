package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSONContent strips a fenced ```json ... ``` (or bare ```) block, if
// present, and unmarshals the remainder into dst. Chat models reliably wrap
// strict-JSON responses in Markdown code fences despite being asked not to;
// every LLM call in this codebase (planner, query generation, evaluator,
// synthesis) must tolerate this.
func DecodeJSONContent(content string, dst any) error {
	clean := strings.TrimSpace(content)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
		clean = strings.TrimSuffix(clean, "```")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
		clean = strings.TrimSuffix(clean, "```")
	}
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return fmt.Errorf("llm: empty response content")
	}
	if err := json.Unmarshal([]byte(clean), dst); err != nil {
		return fmt.Errorf("llm: decode JSON response: %w", err)
	}
	return nil
}
