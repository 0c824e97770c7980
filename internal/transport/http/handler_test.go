package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-stats-service/internal/app"
	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/infra/memory"
)

var fixedNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestCriticalEndpoint(t *testing.T) {
	router := NewRouter(newService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/stats/critical", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got domain.CriticalStats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Summary.TotalQuizzesPlayed != 2 || len(got.WeeklyStreak) != 52 {
		t.Fatalf("unexpected critical stats %+v", got.Summary)
	}
}

func TestAllStatsEndpoint(t *testing.T) {
	router := NewRouter(newService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var deferred map[string]any
	if err := json.Unmarshal(body["deferred"], &deferred); err != nil {
		t.Fatalf("decode deferred: %v", err)
	}
	if deferred["seasonStats"] != nil {
		t.Fatalf("expected null seasonStats, got %v", deferred["seasonStats"])
	}
	comparisons := deferred["comparisons"].(map[string]any)
	if leagues, ok := comparisons["leagues"].([]any); !ok || len(leagues) != 0 {
		t.Fatalf("expected empty leagues array, got %v", comparisons["leagues"])
	}
	if _, ok := body["critical"]; !ok {
		t.Fatalf("expected critical section")
	}
}

func TestLeaguesEndpoint(t *testing.T) {
	router := NewRouter(newService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/stats/leagues", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var leagues []domain.LeagueComparison
	if err := json.Unmarshal(rec.Body.Bytes(), &leagues); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(leagues) != 1 || leagues[0].UserRank != 1 {
		t.Fatalf("unexpected leagues %+v", leagues)
	}
}

func TestInvalidateEndpoint(t *testing.T) {
	router := NewRouter(newService(), nil)

	req := httptest.NewRequest(http.MethodPost, "/users/u1/stats/invalidate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestBlankUserIsBadRequest(t *testing.T) {
	router := NewRouter(newService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/users/%20/stats/critical", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStoreFailureIsInternalError(t *testing.T) {
	store := memory.NewStore()
	store.AddCompletions(domain.QuizCompletion{UserID: "u1", QuizSlug: "broken", Score: 9, TotalQuestions: 5, CompletedAt: fixedNow})
	router := NewRouter(app.NewStatsService(store, store, nil, app.Options{Clock: func() time.Time { return fixedNow }}), nil)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/stats/critical", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "request failed" {
		t.Fatalf("expected generic error body, got %q", body.Error)
	}
}

func newService() *app.StatsService {
	store := memory.NewStore()
	store.PutQuiz(domain.Quiz{Slug: "times-tables", Rounds: []domain.Round{
		{Position: 1, CategoryID: "maths", CategoryName: "Maths"},
	}})
	store.AddCompletions(
		domain.QuizCompletion{UserID: "u1", QuizSlug: "times-tables", Score: 4, TotalQuestions: 5, CompletedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
		domain.QuizCompletion{UserID: "u1", QuizSlug: "times-tables", Score: 5, TotalQuestions: 5, CompletedAt: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)},
		domain.QuizCompletion{UserID: "u2", QuizSlug: "times-tables", Score: 2, TotalQuestions: 5, CompletedAt: time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC)},
	)
	store.PutLeague(domain.League{ID: "l1", Name: "Class 5B"},
		&domain.PrivateLeagueStats{LeagueID: "l1", MemberCount: 2, AverageScore: 73.3}, "u1", "u2")
	return app.NewStatsService(store, store, memory.NewCache(), app.Options{
		Clock: func() time.Time { return fixedNow },
	})
}
