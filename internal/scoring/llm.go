package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/garnizeh/clipmarket/internal/metrics"
	"github.com/garnizeh/clipmarket/pkg/ollama"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

// Generator is the part of the Ollama client the scorer needs.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (ollama.GenerateResult, error)
}

type LLMConfig struct {
	Model           string
	TemplateName    string
	TemplateVersion string
	Timeout         time.Duration
}

// LLMScorer asks a language model for an assessment and checks the answer
// against the schema its prompt template names. Any failure falls back.
type LLMScorer struct {
	gen           Generator
	cfg           LLMConfig
	loader        *SchemaLoader
	template      string
	schemaVersion string
	fallback      FraudScorer
	logger        *slog.Logger
}

type llmAnswer struct {
	Score          float64 `json:"score"`
	Reason         string  `json:"reason"`
	ValidatedViews int64   `json:"validated_views"`
}

func NewLLMScorer(ctx context.Context, gen Generator, cfg LLMConfig, schemas repository.SchemaRepo, templates repository.TemplateRepo, fallback FraudScorer, logger *slog.Logger) (*LLMScorer, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	if cfg.TemplateName == "" {
		cfg.TemplateName = "fraud"
	}
	if cfg.TemplateVersion == "" {
		cfg.TemplateVersion = "v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if fallback == nil {
		fallback = HeuristicScorer{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	tpl, err := templates.GetTemplate(ctx, cfg.TemplateName, cfg.TemplateVersion)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if tpl == nil || tpl.TemplateTxt == "" {
		return nil, fmt.Errorf("template %s:%s not found", cfg.TemplateName, cfg.TemplateVersion)
	}
	if tpl.SchemaVer == nil || *tpl.SchemaVer == "" {
		return nil, fmt.Errorf("template %s:%s names no schema", cfg.TemplateName, cfg.TemplateVersion)
	}

	loader, err := NewSchemaLoader(ctx, schemas)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}
	if _, err := loader.Get(ctx, *tpl.SchemaVer); err != nil {
		return nil, err
	}

	return &LLMScorer{
		gen:           gen,
		cfg:           cfg,
		loader:        loader,
		template:      tpl.TemplateTxt,
		schemaVersion: *tpl.SchemaVer,
		fallback:      fallback,
		logger:        logger,
	}, nil
}

func (s *LLMScorer) Score(ctx context.Context, platform string, m Metrics) (Assessment, error) {
	a, err := s.assess(ctx, platform, m)
	if err == nil {
		metrics.ObserveFraudScore("llm", a.Score)
		return a, nil
	}

	s.logger.Warn("llm scoring failed, using fallback", slog.String("platform", platform), slog.Any("err", err))
	metrics.ScorerFallback()
	return s.fallback.Score(ctx, platform, m)
}

func (s *LLMScorer) assess(ctx context.Context, platform string, m Metrics) (Assessment, error) {
	prompt, err := ollama.RenderTemplate(s.template, map[string]any{"Platform": platform, "Metrics": m})
	if err != nil {
		return Assessment{}, fmt.Errorf("render template: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out, err := s.gen.Generate(ctx, s.cfg.Model, prompt)
	if err != nil {
		return Assessment{}, fmt.Errorf("generate: %w", err)
	}

	j := extractJSON(out.Text)
	if j == "" {
		return Assessment{}, errors.New("no JSON object found in response")
	}

	schema, err := s.loader.Get(ctx, s.schemaVersion)
	if err != nil {
		return Assessment{}, err
	}
	verrs, err := schema.ValidateBytes(ctx, []byte(j))
	if err != nil {
		return Assessment{}, fmt.Errorf("schema validate error: %w", err)
	}
	if len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, v := range verrs {
			msgs = append(msgs, v.Message)
		}
		return Assessment{}, fmt.Errorf("response does not match schema: %s", strings.Join(msgs, "; "))
	}

	var ans llmAnswer
	if err := json.Unmarshal([]byte(j), &ans); err != nil {
		return Assessment{}, fmt.Errorf("json unmarshal: %w", err)
	}

	a := Finalize(ans.Score, strings.TrimSpace(ans.Reason), m.Views)
	// trust the model's count when it is stricter than the score implies
	if ans.ValidatedViews >= 0 && ans.ValidatedViews < a.ValidatedViews {
		a.ValidatedViews = ans.ValidatedViews
	}
	return a, nil
}

// extractJSON returns the substring from the first '{' to the last '}', which
// tolerates prose or markdown fences around the object.
func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}
