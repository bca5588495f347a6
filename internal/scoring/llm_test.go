package scoring

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/clipmarket/db"
	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/pkg/ollama"
	"github.com/garnizeh/clipmarket/pkg/repository/mock"
)

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, model, prompt string) (ollama.GenerateResult, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return ollama.GenerateResult{}, f.err
	}
	return ollama.GenerateResult{Text: f.text}, nil
}

// seededPrompts fills a mock repo with the shipped fraud template and schema.
func seededPrompts(t *testing.T) *mock.Mocks {
	t.Helper()

	schema, err := fs.ReadFile(dbfs.SeedFiles, "seed/fraud_schema_v1.json")
	require.NoError(t, err)
	tpl, err := fs.ReadFile(dbfs.SeedFiles, "seed/template_fraud_v1.txt")
	require.NoError(t, err)

	m := mock.NewMocks()
	ver := "fraud-v1"
	m.PromptRepo.Schema = &models.Schema{ID: 1, Version: ver, SchemaJSON: string(schema)}
	m.PromptRepo.Template = &models.Template{ID: 1, Name: "fraud", Version: "v1", TemplateTxt: string(tpl), SchemaVer: &ver}
	return m
}

func newTestScorer(t *testing.T, gen Generator) *LLMScorer {
	t.Helper()
	m := seededPrompts(t)
	s, err := NewLLMScorer(context.Background(), gen, LLMConfig{Model: "llama3"}, m.PromptRepo, m.PromptRepo, nil, nil)
	require.NoError(t, err)
	return s
}

var suspicious = Metrics{Views: 10000, ClickOffRate: 0.9}

func TestLLMScorerUsesModelAnswer(t *testing.T) {
	gen := &fakeGenerator{text: "Sure, here it is:\n```json\n{\"score\": 30, \"reason\": \"bursty views\", \"validated_views\": 6500}\n```"}
	s := newTestScorer(t, gen)

	a, err := s.Score(context.Background(), "tiktok", suspicious)
	require.NoError(t, err)
	assert.Equal(t, 30.0, a.Score)
	assert.Equal(t, "bursty views", a.Reason)
	assert.Equal(t, int64(6500), a.ValidatedViews)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Platform: tiktok")
	assert.Contains(t, gen.prompts[0], "Views: 10000")
}

func TestLLMScorerNeverValidatesMoreThanScoreAllows(t *testing.T) {
	gen := &fakeGenerator{text: `{"score": 50, "reason": "odd", "validated_views": 99999}`}
	s := newTestScorer(t, gen)

	a, err := s.Score(context.Background(), "youtube", suspicious)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), a.ValidatedViews)
}

func TestLLMScorerFallsBack(t *testing.T) {
	cases := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"generator error", &fakeGenerator{err: errors.New("connection refused")}},
		{"no json", &fakeGenerator{text: "I cannot help with that."}},
		{"schema violation", &fakeGenerator{text: `{"score": 150, "reason": "x", "validated_views": 1}`}},
		{"missing field", &fakeGenerator{text: `{"score": 10}`}},
	}

	want, _ := HeuristicScorer{}.Score(context.Background(), "tiktok", suspicious)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestScorer(t, tc.gen)
			a, err := s.Score(context.Background(), "tiktok", suspicious)
			require.NoError(t, err)
			assert.Equal(t, want, a)
			assert.Len(t, tc.gen.prompts, 1)
		})
	}
}

func TestNewLLMScorerErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewLLMScorer(ctx, &fakeGenerator{}, LLMConfig{}, nil, nil, nil, nil)
	assert.Error(t, err, "model is required")

	m := seededPrompts(t)
	_, err = NewLLMScorer(ctx, &fakeGenerator{}, LLMConfig{Model: "m", TemplateVersion: "v9"}, m.PromptRepo, m.PromptRepo, nil, nil)
	assert.Error(t, err)

	m.PromptRepo.Schema = nil
	_, err = NewLLMScorer(ctx, &fakeGenerator{}, LLMConfig{Model: "m"}, m.PromptRepo, m.PromptRepo, nil, nil)
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:             `{"a":1}`,
		"text {\"a\":1} more": `{"a":1}`,
		"none":                "",
		"} backwards {":       "",
	}
	for in, want := range cases {
		if got := extractJSON(in); got != want {
			t.Fatalf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
