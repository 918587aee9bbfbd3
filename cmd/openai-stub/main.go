// Command openai-stub runs a minimal OpenAI-chat-completions-compatible HTTP
// server that answers the four system prompts this repo sends (planner,
// query generation, evaluator, cross-PIR synthesis) with fixed canned JSON or
// text, so the collector binary can be smoke-tested end to end without a
// real LLM credential. Dispatch is keyed on a distinguishing substring of the
// system message.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sys := ""
		if len(req.Messages) > 0 {
			sys = strings.TrimSpace(req.Messages[0].Content)
		}

		content, ok := respond(sys)
		if !ok {
			http.Error(w, "unexpected system prompt", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func respond(sys string) (string, bool) {
	switch {
	case strings.Contains(sys, "strategic intelligence planning assistant"):
		return `{"approach":"monitor competitive shifts in hydraulic pump technology",` +
			`"domains":["industrial equipment","hydraulics"],"urgency":"strategic",` +
			`"intensity":"standard","selectivity":"balanced",` +
			`"sourcePriorities":["trade press","regulatory filings"],` +
			`"confidence":0.7,"reasoning":"stub response for self-test"}`, true
	case strings.Contains(sys, "search query generation assistant"):
		return `{"queries":["pump efficiency rating 2026","hydraulic pump vendor comparison",` +
			`"pump manufacturer product launch"]}`, true
	case strings.Contains(sys, "intelligence evaluator"):
		return `{"score":0.65,"decision":"include","reasoning":"stub response for self-test",` +
			`"connections":[],"decisionSupportValue":"moderate","intelligenceType":"market",` +
			`"urgency":"routine"}`, true
	case strings.Contains(sys, "strategic intelligence analyst"):
		return "Stub cross-PIR brief: no real model was called; this text confirms the synthesis call path works.", true
	default:
		return "", false
	}
}
