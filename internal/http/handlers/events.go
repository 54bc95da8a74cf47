package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/humon/server/internal/events"
	"github.com/humon/server/internal/middleware"
	"github.com/humon/server/internal/model"
)

// EventHandler serves event CRUD, the proximity query and attendances.
type EventHandler struct {
	log    *slog.Logger
	events *events.Service
}

func NewEventHandler(log *slog.Logger, svc *events.Service) *EventHandler {
	return &EventHandler{
		log:    log.With(slog.String("component", "handlers/events")),
		events: svc,
	}
}

type idRef struct {
	ID int64 `json:"id"`
}

type eventResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Owner     idRef      `json:"owner"`
}

func toEventResponse(e model.Event) eventResponse {
	return eventResponse{
		ID:        e.ID,
		Name:      e.Name,
		Address:   e.Address,
		Lat:       e.Lat,
		Lon:       e.Lon,
		StartedAt: e.StartedAt,
		EndedAt:   e.EndedAt,
		Owner:     idRef{ID: e.OwnerID},
	}
}

type attendanceResponse struct {
	ID    int64 `json:"id"`
	Event idRef `json:"event"`
	User  idRef `json:"user"`
}

// HandleCreate handles POST /v1/events
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var in events.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}

	event, err := h.events.Create(r.Context(), *user, in)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, idRef{ID: event.ID})
}

// HandleShow handles GET /v1/events/{id}
func (h *EventHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "event not found")
		return
	}

	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toEventResponse(event))
}

// HandleUpdate handles PATCH /v1/events/{id}
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := eventID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "event not found")
		return
	}

	var in events.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}

	event, err := h.events.Update(r.Context(), *user, id, in)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, idRef{ID: event.ID})
}

// HandleNearest handles GET /v1/events/nearests?lat=&lon=&radius=
func (h *EventHandler) HandleNearest(w http.ResponseWriter, r *http.Request) {
	params, err := events.NearestParamsFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	found, err := h.events.Nearest(r.Context(), params)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	out := make([]eventResponse, 0, len(found))
	for _, e := range found {
		out = append(out, toEventResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

// HandleAttend handles POST /v1/attendances
func (h *EventHandler) HandleAttend(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var in events.AttendanceInput
	if !decodeJSON(w, r, &in) {
		return
	}

	attendance, created, err := h.events.Attend(r.Context(), *user, in.Event.ID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, attendanceResponse{
		ID:    attendance.ID,
		Event: idRef{ID: attendance.EventID},
		User:  idRef{ID: attendance.UserID},
	})
}

func eventID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
