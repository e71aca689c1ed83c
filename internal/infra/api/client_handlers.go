package api

import (
	"net/http"
	"strconv"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
	"subscriber-payments/internal/usecase"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context(), true)
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

func (s *Server) handleMySubscription(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	sub, err := s.subscriptions.GetForUser(r.Context(), p.Subject)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubscriptionView(sub))
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := PrincipalFrom(ctx)

	var body createPaymentRequestBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	user, err := s.users.EnsureUser(ctx, p.Subject, p.Email)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	plan, err := s.plans.Snapshot(ctx, body.PlanID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	created, err := s.requests.Create(ctx, user.ID, user.Email, plan, model.PaymentType(body.Type), body.PaymentDetails)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.Header().Set("Location", "/api/v1/payment-requests/"+created.ID)
	writeJSON(w, http.StatusCreated, usecase.NewTrackingView(created))
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	q := r.URL.Query()

	f := repository.ListFilter{Limit: defaultPageSize}
	if v := q.Get("type"); v != "" {
		t := model.PaymentType(v)
		if !t.Valid() {
			writeError(w, r, s.log, domain.NewValidationError("type"))
			return
		}
		f.Type = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, s.log, domain.NewValidationError("limit"))
			return
		}
		f.Limit = min(n, maxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, s.log, domain.NewValidationError("offset"))
			return
		}
		f.Offset = n
	}

	list, err := s.requests.ListByUser(r.Context(), p.Subject, f)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]*usecase.TrackingView, 0, len(list))
	for _, pr := range list {
		out = append(out, usecase.NewTrackingView(pr))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out, "limit": f.Limit, "offset": f.Offset})
}

// ownRequest loads a request and hides it from anyone but its owner.
func (s *Server) ownRequest(r *http.Request) (*model.PaymentRequest, error) {
	p, _ := PrincipalFrom(r.Context())
	pr, err := s.requests.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if pr.UserID != p.Subject {
		return nil, domain.ErrForbidden
	}
	return pr, nil
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	pr, err := s.ownRequest(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, usecase.NewTrackingView(pr))
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var body claimBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	updated, err := s.requests.Claim(r.Context(), p.Subject, chi.URLParam(r, "id"), body.Note)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, usecase.NewTrackingView(updated))
}
