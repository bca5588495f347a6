package scoring

import (
	"context"
	"testing"
)

func TestHeuristicScorer(t *testing.T) {
	cases := []struct {
		name      string
		m         Metrics
		score     float64
		validated int64
	}{
		{"no views", Metrics{}, 0, 0},
		{"healthy", Metrics{Views: 10000, Likes: 500, Comments: 50, Shares: 50, WatchTime: 150000, ClickOffRate: 0.2}, 0, 10000},
		{"no interactions", Metrics{Views: 10000, WatchTime: 150000, ClickOffRate: 0.2}, 40, 6000},
		{"low ratio and short watch", Metrics{Views: 10000, Likes: 10, WatchTime: 20000, ClickOffRate: 0.1}, 60, 4000},
		{"every signal", Metrics{Views: 10000, ClickOffRate: 0.9}, 85, 1500},
		{"ratio ignored below threshold", Metrics{Views: 500, Likes: 1, WatchTime: 5000, ClickOffRate: 0.1}, 0, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := HeuristicScorer{}.Score(context.Background(), "tiktok", tc.m)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Score != tc.score {
				t.Fatalf("expected score %v, got %v (%s)", tc.score, a.Score, a.Reason)
			}
			if a.ValidatedViews != tc.validated {
				t.Fatalf("expected %d validated views, got %d", tc.validated, a.ValidatedViews)
			}
			if a.Score > 0 && a.Reason == "" {
				t.Fatalf("expected a reason for a non-zero score")
			}
		})
	}
}

func TestHeuristicReasonsJoined(t *testing.T) {
	a, _ := HeuristicScorer{}.Score(context.Background(), "x", Metrics{Views: 10000, ClickOffRate: 0.9})
	want := "views without any likes, comments or shares; average watch time under 3 seconds; click-off rate above 70%"
	if a.Reason != want {
		t.Fatalf("unexpected reason %q", a.Reason)
	}
}

func TestFinalizeClamps(t *testing.T) {
	if a := Finalize(150, "", 1000); a.Score != 100 || a.ValidatedViews != 0 {
		t.Fatalf("expected clamp to 100, got %+v", a)
	}
	if a := Finalize(-5, "", 1000); a.Score != 0 || a.ValidatedViews != 1000 {
		t.Fatalf("expected clamp to 0, got %+v", a)
	}
	if a := Finalize(50, "", -10); a.ValidatedViews != 0 {
		t.Fatalf("negative views must validate to zero, got %d", a.ValidatedViews)
	}
}
