package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/urbanease/urbanease/services/availability-service/internal/rules"
	"github.com/urbanease/urbanease/services/availability-service/internal/storage"
)

// maxResolveDays caps the resolved-calendar window (a quarter plus slack).
const maxResolveDays = 100

// ProviderStore is the persistence surface the handlers need.
type ProviderStore interface {
	Load(ctx context.Context, providerID string) (rules.RuleSet, error)
	Replace(ctx context.Context, providerID string, patch rules.Patch) error
}

type AvailabilityHandler struct {
	store  ProviderStore
	logger *slog.Logger
}

func NewAvailabilityHandler(store ProviderStore, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{store: store, logger: logger}
}

func providerIDFromQuery(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("provider_id"))
}

// callerProviderID is the authenticated identity injected by the auth
// middleware; empty on unauthenticated routes.
func callerProviderID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Provider-Id"))
}

// Get returns the provider's three rule collections verbatim, empty arrays
// when unset. Public: customers read calendars through this.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	providerID := providerIDFromQuery(r)
	if providerID == "" {
		http.Error(w, "provider_id is required", http.StatusBadRequest)
		return
	}

	rs, err := h.store.Load(r.Context(), providerID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "provider not found", http.StatusNotFound)
			return
		}
		h.logger.Error("availability load failed", "provider_id", providerID, "err", err)
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(rs.Normalized())
}

// Update replaces exactly the collections present in the payload. Only the
// owning provider may write.
func (h *AvailabilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	providerID := providerIDFromQuery(r)
	if providerID == "" {
		http.Error(w, "provider_id is required", http.StatusBadRequest)
		return
	}
	if callerProviderID(r) != providerID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var patch rules.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if patch.Empty() {
		http.Error(w, "payload must include availability, specialDates, or dateRanges", http.StatusBadRequest)
		return
	}

	if err := h.store.Replace(r.Context(), providerID, patch); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "provider not found", http.StatusNotFound)
			return
		}
		h.logger.Error("availability replace failed", "provider_id", providerID, "err", err)
		http.Error(w, "failed to update availability", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resolvedDay struct {
	Date        rules.Date       `json:"date"`
	IsAvailable bool             `json:"isAvailable"`
	TimeSlots   []rules.TimeSlot `json:"timeSlots"`
}

// Resolve computes availability for one date (?date=) or a bounded span
// (?from=&to=), the shape both calendar surfaces render from.
func (h *AvailabilityHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	providerID := providerIDFromQuery(r)
	if providerID == "" {
		http.Error(w, "provider_id is required", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	dateStr := strings.TrimSpace(q.Get("date"))
	fromStr := strings.TrimSpace(q.Get("from"))
	toStr := strings.TrimSpace(q.Get("to"))

	if dateStr == "" && (fromStr == "" || toStr == "") {
		http.Error(w, "date or from/to required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	rs, err := h.store.Load(r.Context(), providerID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "provider not found", http.StatusNotFound)
			return
		}
		h.logger.Error("availability load failed", "provider_id", providerID, "err", err)
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}

	if dateStr != "" {
		day, err := rules.ParseDate(dateStr)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		res := rs.Resolve(day)
		writeJSON(w, resolvedDay{Date: day, IsAvailable: res.IsAvailable, TimeSlots: res.TimeSlots})
		return
	}

	from, err := rules.ParseDate(fromStr)
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := rules.ParseDate(toStr)
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	if to.Before(from) {
		http.Error(w, "to must not precede from", http.StatusBadRequest)
		return
	}
	if from.DaysUntil(to) >= maxResolveDays {
		http.Error(w, "window too large", http.StatusBadRequest)
		return
	}

	days := make([]resolvedDay, 0, from.DaysUntil(to)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		res := rs.Resolve(d)
		days = append(days, resolvedDay{Date: d, IsAvailable: res.IsAvailable, TimeSlots: res.TimeSlots})
	}
	writeJSON(w, map[string]any{"days": days})
}

// Slots returns the bookable windows for one date: the booking flow's time
// options. An unavailable day yields an empty list.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	providerID := providerIDFromQuery(r)
	if providerID == "" {
		http.Error(w, "provider_id is required", http.StatusBadRequest)
		return
	}
	day, err := rules.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	rs, err := h.store.Load(r.Context(), providerID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "provider not found", http.StatusNotFound)
			return
		}
		h.logger.Error("availability load failed", "provider_id", providerID, "err", err)
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}

	res := rs.Resolve(day)
	slots := res.TimeSlots
	if !res.IsAvailable {
		slots = []rules.TimeSlot{}
	}
	writeJSON(w, map[string]any{
		"date":        day,
		"isAvailable": res.IsAvailable,
		"timeSlots":   slots,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
