package curriculum

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/pai-planner/internal/ai"
)

const ratingSystemPrompt = `You rate how demanding syllabus topics are for a secondary school student.
Answer with one JSON object mapping every topic id to "easy", "medium" or "hard".
Do not add any other keys or text.`

// Completer is the part of the AI gateway the rater needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Rater labels topics with a difficulty using an AI model.
type Rater struct {
	ai        Completer
	maxTokens int
}

// NewRater creates a difficulty rater backed by the given completer.
func NewRater(c Completer) *Rater {
	return &Rater{ai: c, maxTokens: 1024}
}

// Rate returns a copy of topics with difficulties assigned by the model.
// Topics the model skips, or labels with anything unknown, keep their
// current difficulty. An error means no topic was changed.
func (r *Rater) Rate(ctx context.Context, topics []Topic) ([]Topic, error) {
	out := append([]Topic(nil), topics...)
	if len(topics) == 0 {
		return out, nil
	}

	var prompt strings.Builder
	for _, t := range topics {
		fmt.Fprintf(&prompt, "%s\t%s\t%s\n", t.ID, t.Subject, t.Name)
	}

	resp, err := r.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: ratingSystemPrompt},
			{Role: "user", Content: prompt.String()},
		},
		Task:      ai.TaskRating,
		MaxTokens: r.maxTokens,
		JSON:      true,
	})
	if err != nil {
		return topics, fmt.Errorf("rating topics: %w", err)
	}

	var ratings map[string]string
	if err := json.Unmarshal([]byte(stripFence(resp.Content)), &ratings); err != nil {
		return topics, fmt.Errorf("decoding ratings: %w", err)
	}

	rated := 0
	for i := range out {
		d, ok := ParseDifficulty(ratings[out[i].ID])
		if !ok {
			continue
		}
		out[i].Difficulty = d
		rated++
	}

	slog.Debug("topics rated", "topics", len(topics), "rated", rated, "model", resp.Model)
	return out, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
