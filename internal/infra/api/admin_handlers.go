package api

import (
	"net/http"
	"time"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/infra/logging"
	"subscriber-payments/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	var body adminSessionBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	token, exp, err := s.auth.MintAdmin(body.APIKey)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Warn().Str("remote", clientIP(r)).Msg("admin session refused")
		metrics.IncAdminAction("session", "unauthorized")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	metrics.IncAdminAction("session", "ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAdminGet(w http.ResponseWriter, r *http.Request) {
	pr, err := s.requests.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newAdminRequestView(pr))
}

func (s *Server) handleAdminGetByCode(w http.ResponseWriter, r *http.Request) {
	pr, err := s.requests.GetByReferenceCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newAdminRequestView(pr))
}

func (s *Server) handleAdminTransition(w http.ResponseWriter, r *http.Request) {
	var body transitionBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	change := model.Change{
		To:             model.RequestStatus(body.Status),
		Note:           body.Note,
		DetailsPatch:   body.PaymentDetails,
		AmountOverride: body.Amount,
	}
	updated, err := s.requests.Transition(r.Context(), chi.URLParam(r, "id"), change)
	if err != nil {
		metrics.IncAdminAction("transition", "failed")
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncAdminAction("transition", "ok")
	writeJSON(w, http.StatusOK, newAdminRequestView(updated))
}

func (s *Server) handleAdminActivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	activated, err := s.subscriptions.ActivateByRequestID(r.Context(), id)
	if err != nil {
		metrics.IncAdminAction("activate", "failed")
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncAdminAction("activate", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"request_id": id, "activated": activated})
}

func (s *Server) handleAdminListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context(), false)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, newPlanView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) handleAdminCreatePlan(w http.ResponseWriter, r *http.Request) {
	var body createPlanBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	p, err := s.plans.Create(r.Context(), body.ID, body.Name, body.Price, body.Currency, body.Features)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncAdminAction("create_plan", "ok")
	writeJSON(w, http.StatusCreated, newPlanView(p))
}
