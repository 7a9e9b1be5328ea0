// Package www is the HTTP surface the floor UI talks to. Handlers stay thin:
// parse, call into the engine, encode JSON.
package www

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"atelier/engine"
)

const sessionCookie = "atelier-session"

type Handlers struct {
	engine *engine.Engine
	store  *sessions.CookieStore
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	h := &Handlers{
		engine: eng,
		store:  sessions.NewCookieStore([]byte(eng.AppConfig().Web.SessionSecret)),
	}
	h.store.Options.HttpOnly = true
	h.store.Options.SameSite = http.SameSiteLaxMode
	// The board is served over plain HTTP on the floor network; the library
	// default of Secure-only cookies would make every browser drop the
	// session cookie and lock the UI out of the authenticated API.
	h.store.Options.Secure = false

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.apiLogin)
		r.Get("/session", h.apiSessionInfo)
		r.Get("/health", h.apiHealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Delete("/session", h.apiLogout)

			r.Get("/orders", h.apiOrders)
			r.Post("/orders/{id}/start", h.apiStartOrder)
			r.Post("/orders/{id}/advance", h.apiAdvanceOrder)
			r.Get("/orders/{id}/saga", h.apiSagaState)
			r.Post("/refresh", h.apiRefresh)
			r.Post("/zone/{zone}", h.apiSelectZone)
			r.Get("/status", h.apiStatus)

			r.Get("/timer", h.apiTimer)
			r.Post("/timer/start", h.apiTimerStart)
			r.Post("/timer/stop", h.apiTimerStop)
			r.Get("/workhistory", h.apiWorkHistory)

			r.Get("/stock", h.apiStock)
			r.Get("/studiu", h.apiStudyList)
			r.Post("/studiu/{action}/{id}", h.apiStudyMark)

			r.Get("/audit", h.apiAudit)
		})
	})

	stop := func() {}
	return r, stop
}

// isAuthenticated checks the browser cookie against the station session.
func (h *Handlers) isAuthenticated(r *http.Request) bool {
	sess, err := h.store.Get(r, sessionCookie)
	if err != nil {
		return false
	}
	ok, _ := sess.Values["authenticated"].(bool)
	return ok && h.engine.Session().Authenticated()
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isAuthenticated(r) {
			h.jsonError(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
