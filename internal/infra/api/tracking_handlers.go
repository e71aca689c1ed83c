package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/infra/logging"
	"subscriber-payments/internal/usecase"

	"github.com/go-chi/chi/v5"
)

const (
	eventBuffer       = 16
	heartbeatInterval = 25 * time.Second
)

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracking.Track(r.Context(), chi.URLParam(r, "code"))
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: usecase.NotFoundMessage})
		return
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleEvents streams the request as server-sent events until the client leaves
// or the request reaches a terminal status.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	pr, err := s.ownRequest(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	ch := make(chan *usecase.TrackingView, eventBuffer)
	// Deliveries are serialized per request, so this is the only sender.
	// A slow reader loses intermediate views, never the newest one.
	send := func(v *usecase.TrackingView) {
		for {
			select {
			case ch <- v:
				return
			default:
				select {
				case <-ch:
				default:
				}
			}
		}
	}
	unsubscribe, err := s.tracking.Watch(r.Context(), pr.ID, send)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	defer unsubscribe()

	l := logging.With(logging.WithRequestID(r.Context(), pr.ID), s.log)
	l.Debug().Msg("event stream opened")
	defer l.Debug().Msg("event stream closed")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case v := <-ch:
			if err := writeEvent(w, v); err != nil {
				l.Debug().Err(err).Msg("event write failed")
				return
			}
			flusher.Flush()
			if v.Terminal {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, v *usecase.TrackingView) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: status\ndata: %s\n\n", v.Version, data)
	return err
}

func (s *Server) handleTrackPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracking.Track(r.Context(), chi.URLParam(r, "code"))
	code := http.StatusOK
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case err != nil:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Msg("tracking page lookup failed")
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = trackPage.Execute(w, struct {
		View     *usecase.TrackingView
		NotFound string
		Failed   bool
	}{
		View:     view,
		NotFound: usecase.NotFoundMessage,
		Failed:   code == http.StatusServiceUnavailable,
	})
}

var trackPage = template.Must(template.New("track").Funcs(template.FuncMap{
	"money": func(amount int64, currency string) string {
		return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, currency)
	},
	"when": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
}).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Payment status</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.completed{color:#057a55} .rejected,.expired{color:#b00020}
.small{font-size:12px;color:#666}
dl{display:grid;grid-template-columns:max-content auto;gap:4px 12px}
</style>
</head>
<body>
<div class="card">
{{- if .View}}{{with .View}}
  <h2 class="{{.Status}}">{{.StatusLabel}}</h2>
  <p>{{.StatusDescription}}</p>
  <dl>
    <dt>Reference</dt><dd><code>{{.ReferenceCode}}</code></dd>
    <dt>Plan</dt><dd>{{.PlanName}}</dd>
    <dt>Amount</dt><dd>{{money .Amount .Currency}}</dd>
  </dl>
  {{if .AdminNote}}<p><strong>Reason:</strong> {{.AdminNote}}</p>{{end}}
  {{if .InstructionsPending}}<p>Payment instructions will appear here once they are ready.</p>
  {{else if .PaymentDetails}}{{with .PaymentDetails}}
  <h3>How to pay</h3>
  <dl>
    {{with .BankInfo}}<dt>IBAN</dt><dd>{{.IBAN}}</dd><dt>BIC</dt><dd>{{.BIC}}</dd><dt>Beneficiary</dt><dd>{{.Beneficiary}}</dd>{{if .BankName}}<dt>Bank</dt><dd>{{.BankName}}</dd>{{end}}{{end}}
    {{with .PayPal}}{{if .Link}}<dt>PayPal</dt><dd><a href="{{.Link}}">{{.Link}}</a></dd>{{end}}{{if .Email}}<dt>PayPal email</dt><dd>{{.Email}}</dd>{{end}}{{end}}
    {{with .GiftCard}}<dt>Gift card</dt><dd>{{.Type}}</dd>{{end}}
    {{with .Coupon}}<dt>Coupon</dt><dd>{{.Code}}</dd>{{end}}
  </dl>
  {{end}}{{end}}
  <h3>History</h3>
  <ul>
  {{range .Timeline}}<li>{{when .Timestamp}}: {{.Label}}{{if .Note}} ({{.Note}}){{end}}</li>
  {{end}}</ul>
{{end}}{{else if .Failed}}
  <h2>Tracking is temporarily unavailable</h2>
  <p class="small">Please try again in a moment.</p>
{{else}}
  <h2>{{.NotFound}}</h2>
  <p class="small">Check the reference code and try again.</p>
{{end}}
</div>
</body>
</html>`))
