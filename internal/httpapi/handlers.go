// Package httpapi serves the tournament and presence REST surface and mounts
// the websocket gateway.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arcade-arena/internal/apperr"
	"github.com/DoyleJ11/arcade-arena/internal/auth"
	"github.com/DoyleJ11/arcade-arena/internal/bracket"
	"github.com/DoyleJ11/arcade-arena/internal/hub"
)

const maxBodyBytes = 1 << 20

var errBadBody = apperr.New(apperr.ErrValidation, "invalid request body")

type API struct {
	hub *hub.Hub
	log *zap.Logger
}

type createTournamentRequest struct {
	Name       string             `json:"name"`
	Capacity   int                `json:"capacity"`
	Visibility bracket.Visibility `json:"visibility"`
	JoinCode   string             `json:"joinCode"`
}

type joinTournamentRequest struct {
	JoinCode string `json:"joinCode"`
}

type presenceResponse struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

func (a *API) CreateTournament(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req createTournamentRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	in := bracket.CreateInput{Name: req.Name, Capacity: req.Capacity, Visibility: req.Visibility}
	if req.Visibility == bracket.Private && req.JoinCode != "" {
		hash, err := bracket.HashJoinCode(req.JoinCode)
		if err != nil {
			a.writeError(w, err)
			return
		}
		in.JoinCodeHash = hash
	}

	t, err := a.hub.CreateTournament(r.Context(), id.UserID, in)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) ListTournaments(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	list, err := a.hub.Tournaments(r.Context(), id.UserID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) GetTournament(w http.ResponseWriter, r *http.Request) {
	t, err := a.hub.Tournament(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// JoinTournament checks the join code against a snapshot before asking the
// hub to add the player; the hub re-checks the tournament's state.
func (a *API) JoinTournament(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	tid := chi.URLParam(r, "id")
	var req joinTournamentRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	snapshot, err := a.hub.Tournament(r.Context(), tid)
	if err != nil {
		a.writeError(w, err)
		return
	}
	verified := snapshot.CheckJoinCode(req.JoinCode)

	t, err := a.hub.JoinTournament(r.Context(), bracket.JoinInput{
		TournamentID: tid,
		UserID:       id.UserID,
		CodeVerified: verified,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) StartTournament(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	t, err := a.hub.StartTournament(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) PresenceMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	a.presence(w, r, id.UserID)
}

func (a *API) Presence(w http.ResponseWriter, r *http.Request) {
	a.presence(w, r, chi.URLParam(r, "userId"))
}

func (a *API) presence(w http.ResponseWriter, r *http.Request, userID string) {
	online, err := a.hub.IsOnline(r.Context(), userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presenceResponse{UserID: userID, Online: online})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeBody reads an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrCapacity), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, hub.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", zap.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}{Error: msg, Code: apperr.Code(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
