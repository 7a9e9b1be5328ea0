package www

import (
	"encoding/json"
	"net/http"
)

// apiLogin stores the CRM credentials the UI obtained from the CRM's own
// login flow. This service never sees the password, only the issued token.
func (h *Handlers) apiLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		UserID   int64  `json:"user_id"`
		UserName string `json:"user_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" || req.UserID == 0 {
		h.jsonError(w, "token and user_id required", http.StatusBadRequest)
		return
	}

	if err := h.engine.Session().SetAuth(req.Token, req.UserID, req.UserName); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sess, _ := h.store.Get(r, sessionCookie)
	sess.Values["authenticated"] = true
	if err := sess.Save(r, w); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// First load for the remembered (or default) zone.
	zone := h.engine.Session().ActiveZone()
	if zone == "" {
		zone = h.engine.AppConfig().CRM.DefaultZone
	}
	go h.engine.RefreshFeed(zone)

	h.jsonOK(w, map[string]any{
		"user_id":   req.UserID,
		"user_name": req.UserName,
		"zone":      zone,
	})
}

func (h *Handlers) apiLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Session().Clear(); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.engine.Poller().Stop()

	sess, _ := h.store.Get(r, sessionCookie)
	sess.Values["authenticated"] = false
	sess.Options.MaxAge = -1
	sess.Save(r, w)

	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiSessionInfo(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Session()
	h.jsonOK(w, map[string]any{
		"authenticated": h.isAuthenticated(r),
		"user_id":       s.UserID(),
		"user_name":     s.UserName(),
		"zone":          s.ActiveZone(),
		"zone_family":   h.engine.AppConfig().CRM.ZoneFamily,
	})
}
