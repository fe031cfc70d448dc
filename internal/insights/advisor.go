package insights

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dvloznov/expense-tracker/internal/llm"
	"github.com/rs/zerolog"
)

const (
	minRecommendations = 3
	maxRecommendations = 5
)

// FallbackRecommendations are returned when the model is unavailable or
// produces nothing usable.
var FallbackRecommendations = []string{
	"Track every expense consistently to understand your spending patterns.",
	"Set a monthly budget for your top spending categories.",
	"Aim to save at least 20% of your income each month.",
	"Build an emergency fund covering 3 to 6 months of expenses.",
	"Review recurring subscriptions and cancel the ones you no longer use.",
}

const advisorSystemPrompt = "You are a personal finance advisor for users in India. " +
	"Give practical, specific advice in plain language. Amounts are in Indian Rupees."

// Advisor asks a language model for free-text recommendations.
type Advisor struct {
	gen llm.Generator
	log zerolog.Logger
}

// NewAdvisor creates an Advisor. A nil gen behaves like llm.Disabled.
func NewAdvisor(gen llm.Generator, log zerolog.Logger) *Advisor {
	if gen == nil {
		gen = llm.Disabled{}
	}
	return &Advisor{gen: gen, log: log}
}

// Recommend returns between 3 and 5 recommendations. It never fails: model
// errors and unusable output are logged and replaced by the fallback set.
func (a *Advisor) Recommend(ctx context.Context, current Result, previous *Result) []string {
	prompt := "Here is my financial summary:\n\n" + RenderSummary(current, previous) +
		"\nGive 3 to 5 short, actionable recommendations as a JSON array of strings."

	out, err := a.gen.Generate(ctx, llm.Request{System: advisorSystemPrompt, Prompt: prompt, JSON: true})
	if err != nil {
		a.log.Warn().Err(err).Msg("recommendation generation failed, using fallback")
		return fallback(nil)
	}

	recs := parseRecommendations(out)
	if len(recs) == 0 {
		a.log.Warn().Str("output", truncateLog(out)).Msg("no recommendations in model output, using fallback")
	}
	return fallback(recs)
}

// fallback pads recs from FallbackRecommendations up to the minimum, or
// returns the whole fallback set when recs is empty.
func fallback(recs []string) []string {
	if len(recs) == 0 {
		return append([]string(nil), FallbackRecommendations...)
	}
	for _, f := range FallbackRecommendations {
		if len(recs) >= minRecommendations {
			break
		}
		if !contains(recs, f) {
			recs = append(recs, f)
		}
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

// parseRecommendations accepts a JSON array of strings, or failing that one
// recommendation per line with list markers stripped.
func parseRecommendations(out string) []string {
	var arr []string
	if err := json.Unmarshal([]byte(llm.CleanJSON(out)), &arr); err == nil {
		return nonEmpty(arr)
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimSpace(strings.Trim(line, `",`))
		if line == "" || strings.HasPrefix(line, "```") || line == "[" || line == "]" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func nonEmpty(ss []string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func truncateLog(s string) string {
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
