package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/pkg/textnorm"
	"github.com/mwhitton/chattersignal/pkg/xmlutil"
)

// ClaudeSource identifies signals produced by the Claude scorer.
const ClaudeSource = "claude"

// scoringMaxTokens bounds the Claude response size.
const scoringMaxTokens = 1024

// scoringPromptTemplate asks Claude for per-entity scores. Comment and
// caption content is injected via XML tags to prevent prompt injection.
const scoringPromptTemplate = `You are a social-media comment intelligence system. Score the comment below.

The post caption is CONTEXT ONLY: use it to disambiguate who a first name refers to, but never assign sentiment to an entity that is not mentioned in the comment itself.

Rules:
- sentiment is per entity, in [-1.0, 1.0]. An entity listed as a candidate but not actually mentioned in the comment gets exactly 0.0.
- A question asking whether something is true is neutral (0.0) unless unambiguously rhetorical.
- Sarcasm markers flip a superficially positive phrase to negative.
- "I feel bad for X" is POSITIVE toward X.
- stance is per entity: "support", "oppose", or "neutral". One comment can support one entity and oppose another.
- discoveries are named people/shows/couples/brands mentioned in the comment that are NOT in the candidate list. Inferred kind is one of "person", "show", "couple", "brand", "storyline".

Candidates (name list): %s

<comment>%s</comment>
<caption>%s</caption>

Return ONLY a JSON object with this exact schema:
{"entities":[{"name":"<candidate name>","sentiment":0.0,"stance":"neutral"}],"overall_sentiment":0.0,"emotion":"","topics":[],"toxicity":0.0,"sarcasm":false,"discoveries":[{"name":"","kind":"person"}],"confidence":0.0}`

// claudeScoreResponse is the raw JSON shape returned by Claude.
type claudeScoreResponse struct {
	Entities []struct {
		Name      string  `json:"name"`
		Sentiment float64 `json:"sentiment"`
		Stance    string  `json:"stance"`
	} `json:"entities"`
	OverallSentiment float64  `json:"overall_sentiment"`
	Emotion          string   `json:"emotion"`
	Topics           []string `json:"topics"`
	Toxicity         float64  `json:"toxicity"`
	Sarcasm          bool     `json:"sarcasm"`
	Discoveries      []struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	} `json:"discoveries"`
	Confidence float64 `json:"confidence"`
}

// ClaudeScorer is the higher-accuracy remote-model strategy.
type ClaudeScorer struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// NewClaudeScorer creates a scorer backed by the Claude API.
func NewClaudeScorer(apiKey, model string, logger *slog.Logger) *ClaudeScorer {
	if logger == nil {
		logger = slog.Default()
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeScorer{
		client: &c,
		model:  model,
		logger: logger,
	}
}

// Source identifies the strategy for signal provenance.
func (s *ClaudeScorer) Source() string { return ClaudeSource }

// Score calls Claude and maps the response back onto candidate entity IDs.
// Names the model returns that match no candidate are treated as
// discoveries; candidates the model omits score 0.0.
func (s *ClaudeScorer) Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	names := make([]string, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		names = append(names, c.Name)
	}

	prompt := fmt.Sprintf(scoringPromptTemplate,
		xmlutil.Escape(strings.Join(names, ", ")),
		xmlutil.Escape(req.Text),
		xmlutil.Escape(req.PostContext))

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: scoringMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: "You are a precise comment scoring system. Output only valid JSON."},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}

	var responseText string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			responseText = strings.TrimSpace(resp.Content[i].Text)
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("empty response from Claude")
	}

	s.logger.Debug("claude scoring response", "response", responseText)

	var raw claudeScoreResponse
	if parseErr := json.Unmarshal([]byte(responseText), &raw); parseErr != nil {
		return nil, fmt.Errorf("parsing scoring response: %w (raw: %s)", parseErr, responseText)
	}

	// Candidate names indexed by normalized name for mapping back to IDs.
	byName := make(map[string]string, len(req.Candidates))
	for _, c := range req.Candidates {
		byName[textnorm.Normalize(c.Name)] = c.EntityID
	}

	result := &ScoreResult{
		EntitySentiment:  make(map[string]float64, len(req.Candidates)),
		EntityStance:     make(map[string]string, len(req.Candidates)),
		OverallSentiment: clamp(raw.OverallSentiment, -1, 1),
		Emotion:          raw.Emotion,
		Topics:           raw.Topics,
		Toxicity:         clamp(raw.Toxicity, 0, 1),
		Sarcasm:          raw.Sarcasm,
		Confidence:       clamp(raw.Confidence, 0, 1),
	}

	// Omitted candidates default to 0.0, never the overall sentiment.
	for _, c := range req.Candidates {
		result.EntitySentiment[c.EntityID] = 0.0
		result.EntityStance[c.EntityID] = StanceNeutral
	}

	for _, e := range raw.Entities {
		id, ok := byName[textnorm.Normalize(e.Name)]
		if !ok {
			// The model scored a name outside the candidate list; keep it
			// as a discovery rather than inventing an attribution.
			result.Discoveries = append(result.Discoveries, DiscoveredName{
				Name: e.Name,
				Kind: models.EntityKindPerson,
			})
			continue
		}
		result.EntitySentiment[id] = clamp(e.Sentiment, -1, 1)
		switch e.Stance {
		case StanceSupport, StanceOppose, StanceNeutral:
			result.EntityStance[id] = e.Stance
		default:
			result.EntityStance[id] = StanceNeutral
		}
	}

	for _, d := range raw.Discoveries {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}
		kind := models.EntityKind(d.Kind)
		if !kind.IsValid() {
			s.logger.Warn("claude scorer: unknown discovery kind, defaulting to person",
				"kind", d.Kind, "name", d.Name)
			kind = models.EntityKindPerson
		}
		result.Discoveries = append(result.Discoveries, DiscoveredName{Name: d.Name, Kind: kind})
	}

	s.logger.Info("claude scored comment",
		"entities", len(raw.Entities),
		"discoveries", len(result.Discoveries),
		"confidence", result.Confidence)
	return result, nil
}
