/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Activity lifecycle through the HTTP surface
- Domain error to HTTP status mapping
- Redemption endpoint
- Scenario loading
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/greenflow/impact-engine/csr"
	"github.com/greenflow/impact-engine/csr/store"
	"github.com/greenflow/impact-engine/metrics"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	mem := store.NewMemory()
	engine := metrics.NewEngine(mem, csr.NewDeriver(csr.KeywordClassifier{}), nil)
	return NewHandler(mem, engine, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestActivityLifecycle_HTTP(t *testing.T) {
	// GIVEN: A profile
	// WHEN: Creating, submitting, and approving an activity over HTTP
	// THEN: Statuses advance and derived fields appear in the responses

	h := newTestHandler(t)
	router := NewRouter(h)

	rec := doJSON(t, router, http.MethodPost, "/api/profiles", CreateProfileRequest{
		EmployeeID: "emp-1", Name: "Alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create profile: %d %s", rec.Code, rec.Body.String())
	}
	profile := decode[ProfileDTO](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/activities", SaveActivityRequest{
		ProfileID:   profile.ID,
		Name:        "Tree Planting",
		Description: "planted trees in the park",
		Hours:       4,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create activity: %d %s", rec.Code, rec.Body.String())
	}
	activity := decode[ActivityDTO](t, rec)
	if activity.SDGCategory != "sdg15" {
		t.Errorf("expected sdg15, got %s", activity.SDGCategory)
	}
	if activity.Status != "draft" {
		t.Errorf("expected draft, got %s", activity.Status)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/activities/"+activity.ID+"/submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/activities/"+activity.ID+"/approve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body.String())
	}
	approved := decode[ActivityDTO](t, rec)
	if approved.ImpactPoints != 40 {
		t.Errorf("expected 40 points, got %d", approved.ImpactPoints)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/profiles/"+profile.ID, nil)
	fresh := decode[ProfileDTO](t, rec)
	if fresh.TotalImpactPoints != 40 {
		t.Errorf("expected rollup 40 points, got %d", fresh.TotalImpactPoints)
	}
	if fresh.RankDisplay != "#1" {
		t.Errorf("expected #1, got %s", fresh.RankDisplay)
	}
}

func TestErrorMapping_HTTP(t *testing.T) {
	h := newTestHandler(t)
	router := NewRouter(h)

	// 404 for unknown records
	rec := doJSON(t, router, http.MethodGet, "/api/profiles/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown profile: expected 404, got %d", rec.Code)
	}

	// 400 for validation failures
	rec = doJSON(t, router, http.MethodPost, "/api/profiles", CreateProfileRequest{Name: "no employee"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing employee: expected 400, got %d", rec.Code)
	}

	// 409 for duplicates
	doJSON(t, router, http.MethodPost, "/api/profiles", CreateProfileRequest{EmployeeID: "emp-1", Name: "a"})
	rec = doJSON(t, router, http.MethodPost, "/api/profiles", CreateProfileRequest{EmployeeID: "emp-1", Name: "b"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate profile: expected 409, got %d", rec.Code)
	}

	// 400 for rejecting without a reason
	p := decode[ProfileDTO](t, doJSON(t, router, http.MethodPost, "/api/profiles",
		CreateProfileRequest{EmployeeID: "emp-2", Name: "c"}))
	a := decode[ActivityDTO](t, doJSON(t, router, http.MethodPost, "/api/activities",
		SaveActivityRequest{ProfileID: p.ID, Name: "x", Description: "x", Hours: 1}))
	rec = doJSON(t, router, http.MethodPost, "/api/activities/"+a.ID+"/reject", RejectRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reject without reason: expected 400, got %d", rec.Code)
	}
}

func TestRedeem_HTTP(t *testing.T) {
	// GIVEN: A profile rich in points and a catalog item
	// WHEN: Redeeming over HTTP
	// THEN: 200 with a receipt; 422 when points run out

	h := newTestHandler(t)
	router := NewRouter(h)

	profile := decode[ProfileDTO](t, doJSON(t, router, http.MethodPost, "/api/profiles",
		CreateProfileRequest{EmployeeID: "emp-1", Name: "Alice"}))

	// Earn points: 10 hours tutoring, approved.
	activity := decode[ActivityDTO](t, doJSON(t, router, http.MethodPost, "/api/activities",
		SaveActivityRequest{ProfileID: profile.ID, Name: "Tutoring", Description: "school tutoring", Hours: 10}))
	doJSON(t, router, http.MethodPost, "/api/activities/"+activity.ID+"/submit", nil)
	doJSON(t, router, http.MethodPost, "/api/activities/"+activity.ID+"/approve", nil)

	rec := doJSON(t, router, http.MethodPost, "/api/rewards", CreateRewardRequest{Name: "Day Off", PointCost: 60})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reward: %d %s", rec.Code, rec.Body.String())
	}
	reward := decode[RewardDTO](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/rewards/"+reward.ID+"/redeem",
		RedeemRequest{EmployeeID: "emp-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: %d %s", rec.Code, rec.Body.String())
	}
	receipt := decode[ReceiptDTO](t, rec)
	if receipt.RemainingPoints != 40 {
		t.Errorf("expected 40 remaining, got %d", receipt.RemainingPoints)
	}

	// Second redemption exceeds the remaining balance.
	rec = doJSON(t, router, http.MethodPost, "/api/rewards/"+reward.ID+"/redeem",
		RedeemRequest{EmployeeID: "emp-1"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
	errResp := decode[ErrorResponse](t, rec)
	if errResp.Details == "" {
		t.Error("expected have/need details in the error")
	}
}

func TestScenarios_LoadAll(t *testing.T) {
	// Every registered scenario must load cleanly from an empty store.
	h := newTestHandler(t)
	router := NewRouter(h)

	for _, s := range scenarios {
		rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: s.ID})
		if rec.Code != http.StatusOK {
			t.Errorf("scenario %s: %d %s", s.ID, rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown scenario: expected 400, got %d", rec.Code)
	}
}

func TestScenarios_ConcurrentLoadAndRead(t *testing.T) {
	// Loading a scenario while another request reads the current one must
	// be race-free. Run under -race.
	h := newTestHandler(t)
	router := NewRouter(h)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "green-team"})
		}()
		go func() {
			defer wg.Done()
			doJSON(t, router, http.MethodGet, "/api/scenarios/current", nil)
		}()
	}
	wg.Wait()

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "green-team"})
	if rec.Code != http.StatusOK {
		t.Fatalf("load scenario: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodGet, "/api/scenarios/current", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current scenario: %d %s", rec.Code, rec.Body.String())
	}
	current := decode[ScenarioDTO](t, rec)
	if current.ID != "green-team" {
		t.Errorf("expected green-team loaded, got %q", current.ID)
	}
}

func TestDashboard_HTTP(t *testing.T) {
	h := newTestHandler(t)
	router := NewRouter(h)

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "carbon-hotspot"})
	if rec.Code != http.StatusOK {
		t.Fatalf("load scenario: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", rec.Code, rec.Body.String())
	}
	dash := decode[DashboardDTO](t, rec)
	if dash.TotalApprovedActivities != 4 {
		t.Errorf("expected 4 approved activities, got %d", dash.TotalApprovedActivities)
	}
	if dash.Recommendation.Insight == "" || dash.Recommendation.Suggestion == "" {
		t.Error("dashboard must carry a recommendation")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/opportunities", nil)
	opps := decode[[]OpportunityDTO](t, rec)
	if len(opps) == 0 {
		t.Error("carbon-hotspot scenario seeds opportunities")
	}
}
