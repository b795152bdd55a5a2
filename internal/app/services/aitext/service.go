// Package aitext generates listing copy and swap guidance from an external
// text-completion endpoint. Every method degrades to a deterministic
// fallback when no generator is configured, so the marketplace never
// depends on the model being reachable.
package aitext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/pkg/logger"
)

// TextGenerator produces one completion for one prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HTTPGenerator calls an OpenAI-compatible chat completion endpoint.
type HTTPGenerator struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

// Generate posts the prompt and extracts the first completion choice.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": g.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generator returned %d", resp.StatusCode)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content").String()
	if content == "" {
		return "", fmt.Errorf("generator returned empty completion")
	}
	return strings.TrimSpace(content), nil
}

// Service wraps the generator with marketplace prompts.
type Service struct {
	gen TextGenerator
	log *logger.Logger
}

// New constructs the service. gen may be nil; every method then returns
// its fallback.
func New(gen TextGenerator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("aitext")
	}
	return &Service{gen: gen, log: log}
}

// Enabled reports whether a generator is configured.
func (s *Service) Enabled() bool { return s.gen != nil }

// Description writes listing copy for an item.
func (s *Service) Description(ctx context.Context, it item.Item) (string, error) {
	fallback := fmt.Sprintf("%s in %s condition, size %s.", it.Title, it.Condition, it.Size)
	if s.gen == nil {
		return fallback, nil
	}
	prompt := fmt.Sprintf(
		"Write a short, appealing second-hand clothing listing description. Title: %q. Category: %s. Condition: %s. Size: %s. Tags: %s. Two sentences, no hashtags.",
		it.Title, it.Category, it.Condition, it.Size, strings.Join(it.Tags, ", "))
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.log.WithError(err).Warn("description generation failed, using fallback")
		return fallback, nil
	}
	return out, nil
}

// Suggestion is the model's categorization of a listing.
type Suggestion struct {
	Category item.Category `json:"category"`
	Tags     []string      `json:"tags"`
}

// TagsAndCategory asks the model to categorize and tag a listing from its
// title and description. The model is asked for JSON; when it answers in
// prose anyway, the whole answer becomes a single tag and the category is
// left for the owner.
func (s *Service) TagsAndCategory(ctx context.Context, title, description string) (Suggestion, error) {
	if s.gen == nil {
		return Suggestion{Category: item.CategoryOther}, nil
	}
	prompt := fmt.Sprintf(
		`Categorize this second-hand clothing listing. Title: %q. Description: %q. Respond with JSON only: {"category": one of [tops bottoms dresses outerwear shoes accessories activewear formal sleepwear other], "tags": up to 5 short lowercase tags}.`,
		title, description)
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return Suggestion{}, err
	}

	if !gjson.Valid(out) {
		return Suggestion{Tags: []string{strings.ToLower(strings.TrimSpace(out))}}, nil
	}
	parsed := gjson.Parse(out)
	sug := Suggestion{Category: item.Category(parsed.Get("category").String())}
	for _, tag := range parsed.Get("tags").Array() {
		sug.Tags = append(sug.Tags, tag.String())
	}
	if !sug.Category.Valid() {
		sug.Category = item.CategoryOther
	}
	return sug, nil
}

// SwapSuggestions explains which of the candidate items pair well with the
// user's item.
func (s *Service) SwapSuggestions(ctx context.Context, mine item.Item, candidates []item.Item) (string, error) {
	if s.gen == nil || len(candidates) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s (%s, %s, size %s)\n", c.Title, c.Category, c.Condition, c.Size)
	}
	prompt := fmt.Sprintf(
		"A user wants to swap away %q (%s, size %s). From this list, pick the two best matches and say why in one sentence each:\n%s",
		mine.Title, mine.Category, mine.Size, b.String())
	return s.gen.Generate(ctx, prompt)
}

// SustainabilityImpact estimates the environmental benefit of exchanging
// the item instead of buying new.
func (s *Service) SustainabilityImpact(ctx context.Context, it item.Item) (string, error) {
	fallback := "Exchanging clothes keeps them out of landfill and avoids the water and emissions cost of new production."
	if s.gen == nil {
		return fallback, nil
	}
	prompt := fmt.Sprintf(
		"In two sentences, estimate the sustainability benefit of swapping a second-hand %s (%s) instead of buying it new. Mention water and CO2.",
		it.Category, it.Title)
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.log.WithError(err).Warn("impact generation failed, using fallback")
		return fallback, nil
	}
	return out, nil
}
