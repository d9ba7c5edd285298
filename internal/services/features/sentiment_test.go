package features

import (
	"testing"

	"FXPull/internal/domain/models"
)

func TestScoreTextPositive(t *testing.T) {
	score := ScoreText("Euro rallies to fresh highs on upbeat growth data")
	if score <= 0 {
		t.Fatalf("expected positive score, got %v", score)
	}
}

func TestScoreTextNegative(t *testing.T) {
	score := ScoreText("Pound slumps as recession fears deepen")
	if score >= 0 {
		t.Fatalf("expected negative score, got %v", score)
	}
}

func TestScoreTextNeutral(t *testing.T) {
	if score := ScoreText("Central bank publishes quarterly bulletin"); score != 0 {
		t.Fatalf("expected neutral score, got %v", score)
	}
	if score := ScoreText(""); score != 0 {
		t.Fatalf("expected zero score on empty text, got %v", score)
	}
}

func TestScoreTextMixedBounded(t *testing.T) {
	score := ScoreText("Dollar gains offset losses after mixed data")
	if score < -1 || score > 1 {
		t.Fatalf("score out of range: %v", score)
	}
}

func TestScoreArticleUsesHeadlineAndBody(t *testing.T) {
	a := models.Article{
		Headline: "ECB decision due",
		Body:     "Markets bullish on strong recovery momentum",
	}
	if score := ScoreArticle(a); score <= 0 {
		t.Fatalf("expected positive score from body, got %v", score)
	}
}
