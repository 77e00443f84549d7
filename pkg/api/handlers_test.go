package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"stockdrop/pkg/auth"
	"stockdrop/pkg/external"
	"stockdrop/pkg/markets"
	"stockdrop/pkg/screener"

	"github.com/gin-gonic/gin"
)

type fakeRunner struct {
	lastCriteria screener.Criteria
	result       *screener.Result
	err          error
}

func (f *fakeRunner) Run(ctx context.Context, c screener.Criteria) (*screener.Result, error) {
	f.lastCriteria = c
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeOverview struct {
	snapshot *markets.Snapshot
}

func (f *fakeOverview) Overview(ctx context.Context) *markets.Snapshot { return f.snapshot }
func (f *fakeOverview) Refresh(ctx context.Context) *markets.Snapshot { return f.snapshot }

type fakeAccounts struct {
	resetEmails []string
	resetErr    error
	confirmErr  error
}

func (f *fakeAccounts) SignUp(ctx context.Context, email, password string) (*auth.User, error) {
	return &auth.User{ID: "user-1", Email: email}, nil
}

func (f *fakeAccounts) SignIn(ctx context.Context, email, password string) (*auth.User, string, error) {
	return &auth.User{ID: "user-1", Email: email}, "token", nil
}

func (f *fakeAccounts) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	f.resetEmails = append(f.resetEmails, email)
	if f.resetErr != nil {
		return "", f.resetErr
	}
	if email == "known@example.com" {
		return "reset-token", nil
	}
	return "", nil
}

func (f *fakeAccounts) ResetPassword(ctx context.Context, token, newPassword string) error {
	return f.confirmErr
}

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/stocks/losers", h.GetLosers)
	router.GET("/stocks/gainers", h.GetGainers)
	router.POST("/stocks/screener", h.RunScreener)
	router.GET("/markets/hours", h.MarketHours)
	router.GET("/sectors/:sector", h.BrowseSector)
	router.POST("/auth/reset", h.RequestPasswordReset)
	router.POST("/auth/reset/confirm", h.ResetPassword)
	return router
}

func TestGetLosersDefaults(t *testing.T) {
	runner := &fakeRunner{result: &screener.Result{
		Generation: 1,
		Records: []screener.Record{
			{Symbol: "AAA", ChangePercent: -9.5},
		},
	}}
	router := newTestRouter(&Handlers{pipeline: runner})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stocks/losers", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if runner.lastCriteria.Mode != screener.ModeLoss {
		t.Errorf("expected loss mode, got %q", runner.lastCriteria.Mode)
	}
	if runner.lastCriteria.Threshold != defaultThreshold {
		t.Errorf("expected default threshold %v, got %v", defaultThreshold, runner.lastCriteria.Threshold)
	}
	if runner.lastCriteria.Limit != defaultLimit {
		t.Errorf("expected default limit %d, got %d", defaultLimit, runner.lastCriteria.Limit)
	}

	var result screener.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].Symbol != "AAA" {
		t.Errorf("unexpected records in response: %+v", result.Records)
	}
}

func TestGetGainersQueryOverrides(t *testing.T) {
	runner := &fakeRunner{result: &screener.Result{Generation: 1}}
	router := newTestRouter(&Handlers{pipeline: runner})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stocks/gainers?threshold=2.5&limit=10&sector=Technology", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if runner.lastCriteria.Mode != screener.ModeGain {
		t.Errorf("expected gain mode, got %q", runner.lastCriteria.Mode)
	}
	if runner.lastCriteria.Threshold != 2.5 {
		t.Errorf("expected threshold 2.5, got %v", runner.lastCriteria.Threshold)
	}
	if runner.lastCriteria.Limit != 10 {
		t.Errorf("expected limit 10, got %d", runner.lastCriteria.Limit)
	}
	if runner.lastCriteria.Sector != "Technology" {
		t.Errorf("expected sector Technology, got %q", runner.lastCriteria.Sector)
	}
}

func TestGetLosersBadQuery(t *testing.T) {
	router := newTestRouter(&Handlers{pipeline: &fakeRunner{}})

	for _, query := range []string{"threshold=abc", "limit=ten", "price_min=cheap"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stocks/losers?"+query, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", query, w.Code)
		}
	}
}

func TestFetchErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing api key", external.ErrMissingAPIKey, http.StatusServiceUnavailable},
		{"provider failure", &external.FetchError{Endpoint: "/stock-screener", StatusCode: 500}, http.StatusBadGateway},
		{"malformed payload", &external.DecodeError{Endpoint: "/quote"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&Handlers{pipeline: &fakeRunner{err: tt.err}})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/stocks/losers", nil)
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

// echoRunner returns a result built from the request's own criteria, so the
// test can detect a response computed for someone else's query.
type echoRunner struct {
	generation uint64
}

func (e *echoRunner) Run(ctx context.Context, c screener.Criteria) (*screener.Result, error) {
	e.generation++
	return &screener.Result{
		Generation: e.generation,
		Criteria:   c,
		Records:    []screener.Record{{Symbol: "X", ChangePercent: -c.Threshold}},
	}, nil
}

func TestEachRequestGetsItsOwnResult(t *testing.T) {
	router := newTestRouter(&Handlers{pipeline: &echoRunner{}})

	// Interleaved queries with different thresholds must each be answered
	// with records filtered at their own threshold, regardless of which run
	// carries the newer generation.
	for _, threshold := range []string{"2", "50", "2"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stocks/losers?threshold="+threshold, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("threshold %s: expected 200, got %d", threshold, w.Code)
		}

		var result screener.Result
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		want, _ := strconv.ParseFloat(threshold, 64)
		if result.Criteria.Threshold != want {
			t.Fatalf("threshold %s: served a result computed for threshold %v", threshold, result.Criteria.Threshold)
		}
		if len(result.Records) != 1 || result.Records[0].ChangePercent != -want {
			t.Fatalf("threshold %s: records do not belong to this request: %+v", threshold, result.Records)
		}
	}
}

func TestRunScreenerDefaultsLimit(t *testing.T) {
	runner := &fakeRunner{result: &screener.Result{Generation: 1}}
	router := newTestRouter(&Handlers{pipeline: runner})

	body := `{"mode":"loss","threshold":3}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stocks/screener", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if runner.lastCriteria.Limit != defaultLimit {
		t.Errorf("expected default limit %d, got %d", defaultLimit, runner.lastCriteria.Limit)
	}
}

func TestRunScreenerRejectsInvalidCriteria(t *testing.T) {
	router := newTestRouter(&Handlers{pipeline: &fakeRunner{}})

	body := `{"mode":"sideways"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stocks/screener", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMarketHoursUnavailable(t *testing.T) {
	h := &Handlers{markets: &fakeOverview{snapshot: &markets.Snapshot{
		Errors: map[string]string{"market_hours": "upstream returned status 500"},
	}}}
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/markets/hours", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestMarketHoursEmptyFetchIsNotAFailure(t *testing.T) {
	h := &Handlers{markets: &fakeOverview{snapshot: &markets.Snapshot{
		Hours: []external.MarketHours{},
	}}}
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/markets/hours", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("a successfully fetched empty section must serve 200, got %d", w.Code)
	}
}

func TestPasswordResetUniformResponse(t *testing.T) {
	accounts := &fakeAccounts{}
	router := newTestRouter(&Handlers{auth: accounts})

	var bodies []string
	for _, email := range []string{"known@example.com", "unknown@example.com"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/reset", strings.NewReader(`{"email":"`+email+`"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("email %s: expected 202, got %d", email, w.Code)
		}
		bodies = append(bodies, w.Body.String())
	}

	if bodies[0] != bodies[1] {
		t.Error("response must not reveal whether the email is registered")
	}
	if len(accounts.resetEmails) != 2 {
		t.Fatalf("expected 2 reset requests, got %d", len(accounts.resetEmails))
	}
	for _, body := range bodies {
		if strings.Contains(body, "reset-token") {
			t.Error("reset token must not appear in the response body")
		}
	}
}

func TestPasswordResetConfirmMapsInvalidToken(t *testing.T) {
	accounts := &fakeAccounts{confirmErr: auth.ErrInvalidResetToken}
	router := newTestRouter(&Handlers{auth: accounts})

	body := `{"token":"token-1","new_password":"new-password-1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/reset/confirm", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid token, got %d", w.Code)
	}
}

func TestBrowseSectorPinsSector(t *testing.T) {
	runner := &fakeRunner{result: &screener.Result{Generation: 1}}
	router := newTestRouter(&Handlers{pipeline: runner})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sectors/Energy", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if runner.lastCriteria.Sector != "Energy" {
		t.Errorf("expected sector Energy, got %q", runner.lastCriteria.Sector)
	}
	if runner.lastCriteria.Mode != screener.ModeBoth {
		t.Errorf("expected both mode, got %q", runner.lastCriteria.Mode)
	}
	if runner.lastCriteria.Threshold != 0 {
		t.Errorf("expected zero threshold when unset, got %v", runner.lastCriteria.Threshold)
	}
}
