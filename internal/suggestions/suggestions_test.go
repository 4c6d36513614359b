package suggestions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/dining-planner/internal/ai"
	"github.com/fdg312/dining-planner/internal/llmplan"
	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/plan"
	"github.com/fdg312/dining-planner/internal/prefs"
	"github.com/fdg312/dining-planner/internal/scraper"
)

func item(id, name, category string, meal menu.Meal, cal, protein float64) menu.Item {
	return menu.Item{ID: id, Name: name, Category: category, Meal: meal, Date: "2025-01-15", Calories: cal, Protein: protein, Carbs: 20, Fat: 10}
}

func testMenu() *menu.DailyMenu {
	m := menu.NewDailyMenu("2025-01-15")
	m.SetMeal("chestnut", "Chestnut Residence", menu.Breakfast, []menu.Item{
		item("b1", "Scrambled Eggs", "Breakfast Entree", menu.Breakfast, 200, 14),
		item("b2", "Fruit Cup", "Breakfast Cold Pantry", menu.Breakfast, 80, 1),
	})
	m.SetMeal("newcollege", "New College", menu.Lunch, []menu.Item{
		item("l1", "Turkey Burrito Bowl", "Bowls", menu.Lunch, 600, 40),
		item("l2", "Tomato Soup", "Soup", menu.Lunch, 150, 4),
	})
	m.SetMeal("chestnut", "Chestnut Residence", menu.Dinner, []menu.Item{
		item("d1", "Grilled Chicken", "Grill", menu.Dinner, 300, 38),
		item("d2", "Beef Stir Fry", "Pan Station", menu.Dinner, 450, 30),
		item("d3", "Garden Salad", "Salad Bar", menu.Dinner, 90, 2),
	})
	return m
}

type fakeMenus struct {
	m   *menu.DailyMenu
	err error
}

func (f *fakeMenus) GetMenu(ctx context.Context, date string) (*menu.DailyMenu, error) {
	return f.m, f.err
}

type fakePlanner struct {
	got  llmplan.Request
	resp plan.DailySuggestion
	err  error
}

func (f *fakePlanner) Generate(ctx context.Context, m *menu.DailyMenu, p prefs.Preferences, req llmplan.Request) (plan.DailySuggestion, error) {
	f.got = req
	return f.resp, f.err
}

func defaultPrefs() *prefs.Preferences {
	p := prefs.Default()
	return &p
}

func post(t *testing.T, h http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	var envelope map[string]json.RawMessage
	json.Unmarshal(rr.Body.Bytes(), &envelope)
	return rr, envelope
}

type apiError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func errorOf(t *testing.T, envelope map[string]json.RawMessage) apiError {
	t.Helper()
	var e apiError
	if err := json.Unmarshal(envelope["error"], &e); err != nil {
		t.Fatalf("no error envelope: %v", err)
	}
	return e
}

func TestSuggestDeterministic(t *testing.T) {
	svc := NewService(&fakeMenus{m: testMenu()}, nil, log.New(&bytes.Buffer{}, "", 0))

	rr, _ := post(t, HandleSuggest(svc), `{"preferences":{"target_calories":2500,"target_protein":150,"target_carbs":300,"target_fat":80,"breakfast_location":"chestnut","lunch_location":"newcollege","dinner_location":"chestnut"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var got plan.DailySuggestion
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Strategy != plan.StrategyDeterministic || len(got.Meals) != 3 {
		t.Fatalf("unexpected suggestion %+v", got)
	}
	dinner := got.Meal(menu.Dinner)
	if dinner == nil || len(dinner.Items) == 0 || dinner.Items[0].Item.ID != "d1" {
		t.Fatalf("expected grilled chicken main, got %+v", dinner)
	}
	if got.Shortfall == nil {
		t.Fatal("deterministic plans carry a shortfall")
	}
}

func TestSuggestValidation(t *testing.T) {
	svc := NewService(&fakeMenus{m: testMenu()}, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"preferences":`},
		{"missing preferences", `{"date":"2025-01-15"}`},
		{"bad targets", `{"preferences":{"target_calories":0,"target_protein":150,"breakfast_location":"a","lunch_location":"b","dinner_location":"c"}}`},
		{"missing location", `{"preferences":{"target_calories":2000,"target_protein":150,"breakfast_location":"a","lunch_location":"b"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, env := post(t, HandleSuggest(svc), tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rr.Code, rr.Body.String())
			}
			if e := errorOf(t, env); e.Code != "invalid_request" {
				t.Fatalf("code = %s", e.Code)
			}
		})
	}
}

func TestSuggestLocationsClosed(t *testing.T) {
	planner := &fakePlanner{}
	svc := NewService(&fakeMenus{m: testMenu()}, planner, nil)
	p := defaultPrefs()
	p.LunchLocation = "oak"
	body, _ := json.Marshal(LLMSuggestRequest{Preferences: p})

	for name, h := range map[string]http.HandlerFunc{"deterministic": HandleSuggest(svc), "llm": HandleSuggestLLM(svc)} {
		t.Run(name, func(t *testing.T) {
			rr, env := post(t, h, string(body))
			if rr.Code != http.StatusConflict {
				t.Fatalf("status = %d, want 409: %s", rr.Code, rr.Body.String())
			}
			e := errorOf(t, env)
			if e.Code != "locations_closed" || !strings.Contains(e.Message, "lunch at oak") {
				t.Fatalf("unexpected error %+v", e)
			}
			var avail plan.LocationAvailability
			if err := json.Unmarshal(e.Details, &avail); err != nil {
				t.Fatalf("details: %v", err)
			}
			if avail.Available || len(avail.ClosedLocations) != 1 || avail.ClosedLocations[0].LocationID != "oak" {
				t.Fatalf("unexpected availability %+v", avail)
			}
		})
	}
	if planner.got != (llmplan.Request{}) {
		t.Fatal("planner must not be called when a location is closed")
	}
}

func TestSuggestUpstreamUnavailable(t *testing.T) {
	menus := &fakeMenus{err: fmt.Errorf("%w: index for 2025-01-15: 503", scraper.ErrUpstreamUnavailable)}
	svc := NewService(menus, nil, nil)
	body, _ := json.Marshal(SuggestRequest{Preferences: defaultPrefs()})

	rr, env := post(t, HandleSuggest(svc), string(body))
	if rr.Code != http.StatusBadGateway || errorOf(t, env).Code != "upstream_unavailable" {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestSuggestFailedReportIsNotClosed(t *testing.T) {
	m := testMenu()
	delete(m.Locations["newcollege"].Meals, menu.Lunch)
	m.Unavailable = []menu.Slot{{LocationID: "newcollege", Meal: menu.Lunch}}
	p := defaultPrefs()
	p.LunchLocation = "newcollege"
	svc := NewService(&fakeMenus{m: m}, &fakePlanner{}, nil)

	body, _ := json.Marshal(LLMSuggestRequest{Preferences: p})
	for name, h := range map[string]http.HandlerFunc{"deterministic": HandleSuggest(svc), "llm": HandleSuggestLLM(svc)} {
		t.Run(name, func(t *testing.T) {
			rr, env := post(t, h, string(body))
			if rr.Code != http.StatusBadGateway || errorOf(t, env).Code != "upstream_unavailable" {
				t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
			}
		})
	}

	avail, err := svc.Availability(context.Background(), AvailabilityRequest{Preferences: p})
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if avail.Available || len(avail.ClosedLocations) != 0 || len(avail.UnavailableLocations) != 1 {
		t.Fatalf("unexpected availability %+v", avail)
	}
}

func TestSuggestLLMPassesApproachAndFeedback(t *testing.T) {
	want := plan.NewDaily("2025-01-15", plan.StrategyLLM, nil)
	planner := &fakePlanner{resp: want}
	svc := NewService(&fakeMenus{m: testMenu()}, planner, nil)
	body, _ := json.Marshal(LLMSuggestRequest{Preferences: defaultPrefs(), UserFeedback: "  more protein  ", Approach: "v3"})

	rr, _ := post(t, HandleSuggestLLM(svc), string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if planner.got.Approach != llmplan.ApproachTool || planner.got.Feedback != "more protein" {
		t.Fatalf("unexpected planner request %+v", planner.got)
	}

	body, _ = json.Marshal(LLMSuggestRequest{Preferences: defaultPrefs(), Approach: "v9"})
	rr, env := post(t, HandleSuggestLLM(svc), string(body))
	if rr.Code != http.StatusBadRequest || errorOf(t, env).Code != "invalid_request" {
		t.Fatalf("unknown approach: status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestSuggestLLMPlanningFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantRaw     string
		wantMessage string
	}{
		{"unparseable", &llmplan.ResponseError{Raw: "I cannot help with that", Reason: "no JSON object found"}, "I cannot help with that", "could not be read"},
		{"exhausted", fmt.Errorf("%w after %d attempts: %w", llmplan.ErrRetriesExhausted, 3, &llmplan.ResponseError{Raw: "nope", Reason: "no tool call in response"}), "nope", "retries exhausted after 3 attempts"},
		{"provider", fmt.Errorf("%w: 500", llmplan.ErrProvider), "", "provider call failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			svc := NewService(&fakeMenus{m: testMenu()}, &fakePlanner{err: tt.err}, log.New(&logs, "", 0))
			body, _ := json.Marshal(LLMSuggestRequest{Preferences: defaultPrefs()})

			rr, env := post(t, HandleSuggestLLM(svc), string(body))
			if rr.Code != http.StatusBadGateway {
				t.Fatalf("status = %d, want 502", rr.Code)
			}
			e := errorOf(t, env)
			if e.Code != "planning_failed" {
				t.Fatalf("code = %s", e.Code)
			}
			if !strings.Contains(e.Message, tt.wantMessage) {
				t.Fatalf("message = %q, want it to contain %q", e.Message, tt.wantMessage)
			}
			if tt.wantRaw != "" {
				var details map[string]string
				if err := json.Unmarshal(e.Details, &details); err != nil {
					t.Fatalf("details: %v", err)
				}
				if details["raw_response"] != tt.wantRaw {
					t.Fatalf("raw_response = %q, want %q", details["raw_response"], tt.wantRaw)
				}
			}
			if !strings.Contains(logs.String(), "WARN suggestions: llm plan failed") {
				t.Fatalf("expected warning, got %s", logs.String())
			}
		})
	}
}

func TestSuggestLLMWithMockProvider(t *testing.T) {
	planner := llmplan.NewPlanner(ai.NewMockProvider(), llmplan.Options{Logger: log.New(&bytes.Buffer{}, "", 0)})
	svc := NewService(&fakeMenus{m: testMenu()}, planner, nil)
	body, _ := json.Marshal(LLMSuggestRequest{Preferences: defaultPrefs(), Approach: "v3"})

	rr, _ := post(t, HandleSuggestLLM(svc), string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var got plan.DailySuggestion
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Strategy != plan.StrategyLLM || len(got.Meals) != 3 {
		t.Fatalf("unexpected suggestion %+v", got)
	}
	for _, meal := range got.Meals {
		if len(meal.Items) != 1 {
			t.Fatalf("%s: expected the mock's single pick, got %+v", meal.Meal, meal.Items)
		}
	}
}

func TestSuggestLLMNotConfigured(t *testing.T) {
	svc := NewService(&fakeMenus{m: testMenu()}, nil, nil)
	body, _ := json.Marshal(LLMSuggestRequest{Preferences: defaultPrefs()})
	rr, env := post(t, HandleSuggestLLM(svc), string(body))
	if rr.Code != http.StatusBadGateway || errorOf(t, env).Code != "planning_failed" {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestSwapOptions(t *testing.T) {
	svc := NewService(&fakeMenus{m: testMenu()}, nil, nil)
	p := defaultPrefs()
	p.DislikedItemIDs = []string{"d3"}
	body, _ := json.Marshal(SwapRequest{MealType: "Dinner", LocationID: "chestnut", CurrentItemID: "d1", Preferences: p})

	rr, _ := post(t, HandleSwapOptions(svc), string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp SwapResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Alternatives) != 1 || resp.Alternatives[0].ID != "d2" {
		t.Fatalf("unexpected alternatives %+v", resp.Alternatives)
	}

	body, _ = json.Marshal(SwapRequest{MealType: "brunch", LocationID: "chestnut", Preferences: p})
	rr, _ = post(t, HandleSwapOptions(svc), string(body))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad meal status = %d", rr.Code)
	}

	body, _ = json.Marshal(SwapRequest{MealType: "lunch", Preferences: p})
	rr, _ = post(t, HandleSwapOptions(svc), string(body))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing location status = %d", rr.Code)
	}
}

func TestAvailability(t *testing.T) {
	svc := NewService(&fakeMenus{m: testMenu()}, nil, nil)
	p := defaultPrefs()
	p.BreakfastLocation = "newcollege"
	body, _ := json.Marshal(AvailabilityRequest{Preferences: p})

	rr, _ := post(t, HandleAvailability(svc), string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var avail plan.LocationAvailability
	if err := json.Unmarshal(rr.Body.Bytes(), &avail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if avail.Available || len(avail.ClosedLocations) != 1 || avail.ClosedLocations[0].Meal != menu.Breakfast {
		t.Fatalf("unexpected availability %+v", avail)
	}
	if len(avail.AvailableLocations) != 2 || avail.AvailableLocations[0] != "chestnut" || avail.AvailableLocations[1] != "newcollege" {
		t.Fatalf("unexpected open locations %v", avail.AvailableLocations)
	}
}

func TestClosedErrorIsDetectable(t *testing.T) {
	svc := NewService(&fakeMenus{m: menu.NewDailyMenu("2025-01-15")}, nil, nil)
	_, err := svc.Suggest(context.Background(), SuggestRequest{Preferences: defaultPrefs()})
	var closed *ClosedError
	if !errors.As(err, &closed) || len(closed.Availability.ClosedLocations) != 3 {
		t.Fatalf("expected three closed meals, got %v", err)
	}
}
