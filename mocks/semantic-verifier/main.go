// Command semantic-verifier is a stand-in for the Messages API used by local
// runs and the e2e suite. It answers deterministically from a small nickname
// table and never needs a key.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	targetLine    = regexp.MustCompile(`(?m)^(?:Target Name|target_name): (".*")$`)
	candidateLine = regexp.MustCompile(`(?m)^(?:Candidate Name|search_name): (".*")$`)
)

// nicknames maps a lowercase nickname to its formal name.
var nicknames = map[string]string{
	"bob":   "robert",
	"rob":   "robert",
	"bill":  "william",
	"will":  "william",
	"jim":   "james",
	"mike":  "michael",
	"liz":   "elizabeth",
	"beth":  "elizabeth",
	"kate":  "katherine",
	"tony":  "anthony",
	"dick":  "richard",
	"peggy": "margaret",
}

type verdict struct {
	Match       bool   `json:"match"`
	Confidence  int    `json:"confidence"`
	Explanation string `json:"explanation"`
}

type messagesRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	latency := flag.Duration("latency", 0, "delay before every reply")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           newHandler(*latency, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("fake semantic verifier listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newHandler(latency time.Duration, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			writeError(w, http.StatusUnauthorized, "authentication_error", "missing x-api-key")
			return
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			writeError(w, http.StatusBadRequest, "invalid_request_error", "expected one user message")
			return
		}
		target, candidate, ok := extractNames(req.Messages[0].Content)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request_error", "prompt has no name pair")
			return
		}
		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}

		v := decide(target, candidate)
		logger.Info("verdict", "model", req.Model, "match", v.Match, "confidence", v.Confidence)
		text, _ := json.Marshal(v)
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "message",
			"role":  "assistant",
			"model": req.Model,
			"content": []map[string]string{
				{"type": "text", "text": "```json\n" + string(text) + "\n```"},
			},
		})
	})
	return mux
}

func extractNames(prompt string) (string, string, bool) {
	t := targetLine.FindStringSubmatch(prompt)
	c := candidateLine.FindStringSubmatch(prompt)
	if t == nil || c == nil {
		return "", "", false
	}
	target, err := strconv.Unquote(t[1])
	if err != nil {
		return "", "", false
	}
	candidate, err := strconv.Unquote(c[1])
	if err != nil {
		return "", "", false
	}
	return target, candidate, true
}

// decide accepts pairs whose tokens are equal or nickname-equivalent
// position by position. Everything else is a non-match.
func decide(target, candidate string) verdict {
	a := strings.Fields(strings.ToLower(target))
	b := strings.Fields(strings.ToLower(candidate))
	if len(a) != len(b) || len(a) == 0 {
		return verdict{Match: false, Confidence: 10, Explanation: "Different number of name parts."}
	}
	nickname := false
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		if formal(a[i]) != formal(b[i]) {
			return verdict{Match: false, Confidence: 15, Explanation: fmt.Sprintf("%q and %q are different names.", a[i], b[i])}
		}
		nickname = true
	}
	if nickname {
		return verdict{Match: true, Confidence: 90, Explanation: "Recognised nickname of the same given name."}
	}
	return verdict{Match: true, Confidence: 99, Explanation: "Names are identical."}
}

func formal(token string) string {
	if f, ok := nicknames[token]; ok {
		return f
	}
	return token
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":  "error",
		"error": map[string]string{"type": typ, "message": msg},
	})
}
