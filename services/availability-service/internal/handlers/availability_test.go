package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/urbanease/urbanease/services/availability-service/internal/rules"
)

type fakeStore struct {
	ruleSets map[string]rules.RuleSet
	replaced map[string]rules.Patch
	loadErr  error
	saveErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ruleSets: map[string]rules.RuleSet{},
		replaced: map[string]rules.Patch{},
	}
}

func (f *fakeStore) Load(_ context.Context, providerID string) (rules.RuleSet, error) {
	if f.loadErr != nil {
		return rules.RuleSet{}, f.loadErr
	}
	rs, ok := f.ruleSets[providerID]
	if !ok {
		return rules.RuleSet{}, pgx.ErrNoRows
	}
	return rs.Normalized(), nil
}

func (f *fakeStore) Replace(_ context.Context, providerID string, patch rules.Patch) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.ruleSets[providerID]; !ok {
		return pgx.ErrNoRows
	}
	f.replaced[providerID] = patch
	f.ruleSets[providerID] = patch.Apply(f.ruleSets[providerID])
	return nil
}

func newHandler(store ProviderStore) *AvailabilityHandler {
	return NewAvailabilityHandler(store, slog.Default())
}

func TestGet_ReturnsEmptyCollections(t *testing.T) {
	store := newFakeStore()
	store.ruleSets["prov-1"] = rules.RuleSet{}
	h := newHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/availability?provider_id=prov-1", nil)
	rw := httptest.NewRecorder()
	h.Get(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	body := rw.Body.String()
	for _, key := range []string{`"availability":[]`, `"specialDates":[]`, `"dateRanges":[]`} {
		if !strings.Contains(body, key) {
			t.Fatalf("expected %s in body, got %s", key, body)
		}
	}
}

func TestGet_UnknownProvider(t *testing.T) {
	h := newHandler(newFakeStore())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/availability?provider_id=nope", nil)
	rw := httptest.NewRecorder()
	h.Get(rw, req)
	if rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rw.Code)
	}
}

func TestUpdate_RejectsPayloadWithoutRecognizedKeys(t *testing.T) {
	store := newFakeStore()
	store.ruleSets["prov-1"] = rules.RuleSet{}
	h := newHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/providers/availability?provider_id=prov-1",
		strings.NewReader(`{"note": "nothing recognized"}`))
	req.Header.Set("X-Provider-Id", "prov-1")
	rw := httptest.NewRecorder()
	h.Update(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestUpdate_ForbiddenForOtherProvider(t *testing.T) {
	store := newFakeStore()
	store.ruleSets["prov-1"] = rules.RuleSet{}
	h := newHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/providers/availability?provider_id=prov-1",
		strings.NewReader(`{"specialDates": []}`))
	req.Header.Set("X-Provider-Id", "prov-2")
	rw := httptest.NewRecorder()
	h.Update(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}
	if len(store.replaced) != 0 {
		t.Fatal("nothing may be written on a forbidden request")
	}
}

func TestUpdate_ReplacesOnlyIncludedCollections(t *testing.T) {
	store := newFakeStore()
	store.ruleSets["prov-1"] = rules.RuleSet{
		Weekly: []rules.WeeklyRule{{DayOfWeek: 2, IsAvailable: true}},
	}
	h := newHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/providers/availability?provider_id=prov-1",
		strings.NewReader(`{"specialDates": [{"date": "2024-06-11", "isAvailable": false}]}`))
	req.Header.Set("X-Provider-Id", "prov-1")
	rw := httptest.NewRecorder()
	h.Update(rw, req)

	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	patch := store.replaced["prov-1"]
	if patch.SpecialDates == nil || patch.Weekly != nil || patch.DateRanges != nil {
		t.Fatalf("expected a specialDates-only patch, got %+v", patch)
	}
	// The untouched weekly collection survives.
	if len(store.ruleSets["prov-1"].Weekly) != 1 {
		t.Fatal("omitted collections must be left untouched")
	}
}

func TestUpdate_UnknownProvider(t *testing.T) {
	h := newHandler(newFakeStore())
	req := httptest.NewRequest(http.MethodPut, "/api/v1/providers/availability?provider_id=ghost",
		strings.NewReader(`{"dateRanges": []}`))
	req.Header.Set("X-Provider-Id", "ghost")
	rw := httptest.NewRecorder()
	h.Update(rw, req)
	if rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rw.Code)
	}
}

func TestUpdate_UpstreamFailure(t *testing.T) {
	store := newFakeStore()
	store.ruleSets["prov-1"] = rules.RuleSet{}
	store.saveErr = errors.New("connection reset")
	h := newHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/providers/availability?provider_id=prov-1",
		strings.NewReader(`{"dateRanges": []}`))
	req.Header.Set("X-Provider-Id", "prov-1")
	rw := httptest.NewRecorder()
	h.Update(rw, req)
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}

func TestResolve_SingleDate(t *testing.T) {
	store := newFakeStore()
	store.ruleSets["prov-1"] = rules.RuleSet{
		Weekly: []rules.WeeklyRule{
			{DayOfWeek: 2, IsAvailable: true, StartTime: "09:00", EndTime: "17:00"},
		},
		SpecialDates: []rules.SpecialDate{
			{Date: rules.NewDate(2024, time.June, 11), IsAvailable: false},
		},
	}
	h := newHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/availability/resolve?provider_id=prov-1&date=2024-06-11", nil)
	rw := httptest.NewRecorder()
	h.Resolve(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	var got struct {
		Date        string           `json:"date"`
		IsAvailable bool             `json:"isAvailable"`
		TimeSlots   []rules.TimeSlot `json:"timeSlots"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if got.Date != "2024-06-11" || got.IsAvailable || len(got.TimeSlots) != 0 {
		t.Fatalf("unexpected resolution: %+v", got)
	}
}

func TestResolve_Window(t *testing.T) {
	store := newFakeStore()
	store.ruleSets["prov-1"] = rules.RuleSet{
		Weekly: []rules.WeeklyRule{
			{DayOfWeek: 2, IsAvailable: true, StartTime: "09:00", EndTime: "17:00"},
		},
	}
	h := newHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/availability/resolve?provider_id=prov-1&from=2024-06-10&to=2024-06-16", nil)
	rw := httptest.NewRecorder()
	h.Resolve(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	var got struct {
		Days []struct {
			Date        string `json:"date"`
			IsAvailable bool   `json:"isAvailable"`
		} `json:"days"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(got.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(got.Days))
	}
	available := 0
	for _, d := range got.Days {
		if d.IsAvailable {
			available++
			if d.Date != "2024-06-11" {
				t.Fatalf("only the Tuesday should be available, got %s", d.Date)
			}
		}
	}
	if available != 1 {
		t.Fatalf("expected exactly 1 available day, got %d", available)
	}
}

func TestResolve_WindowValidation(t *testing.T) {
	store := newFakeStore()
	store.ruleSets["prov-1"] = rules.RuleSet{}
	h := newHandler(store)

	cases := []string{
		"provider_id=prov-1",                               // neither date nor window
		"provider_id=prov-1&from=2024-06-10",               // half a window
		"provider_id=prov-1&from=2024-06-10&to=2024-06-01", // reversed
		"provider_id=prov-1&from=2024-01-01&to=2024-12-31", // too large
		"provider_id=prov-1&date=tomorrow",                 // malformed
	}
	for _, qs := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/availability/resolve?"+qs, nil)
		rw := httptest.NewRecorder()
		h.Resolve(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", qs, rw.Code)
		}
	}
}

func TestSlots_UnavailableDayHasNoOptions(t *testing.T) {
	store := newFakeStore()
	store.ruleSets["prov-1"] = rules.RuleSet{
		Weekly: []rules.WeeklyRule{
			{DayOfWeek: 2, IsAvailable: true, StartTime: "09:00", EndTime: "17:00"},
		},
		SpecialDates: []rules.SpecialDate{
			{Date: rules.NewDate(2024, time.June, 11), IsAvailable: false},
		},
	}
	h := newHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/availability/slots?provider_id=prov-1&date=2024-06-11", nil)
	rw := httptest.NewRecorder()
	h.Slots(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var got struct {
		IsAvailable bool             `json:"isAvailable"`
		TimeSlots   []rules.TimeSlot `json:"timeSlots"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if got.IsAvailable || len(got.TimeSlots) != 0 {
		t.Fatalf("expected no options on a blocked day, got %+v", got)
	}

	// The following Tuesday offers the weekly window.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/providers/availability/slots?provider_id=prov-1&date=2024-06-18", nil)
	rw = httptest.NewRecorder()
	h.Slots(rw, req)
	if err := json.Unmarshal(rw.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !got.IsAvailable || len(got.TimeSlots) != 1 || got.TimeSlots[0].Start != "09:00" {
		t.Fatalf("expected the 09:00-17:00 window, got %+v", got)
	}
}
