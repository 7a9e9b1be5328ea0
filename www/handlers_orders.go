package www

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atelier/dispatch"
	"atelier/feed"
	"atelier/saga"
)

// apiOrders returns the derived view of the active zone's feed plus the
// filter row data. Filters come from query params; derivation never mutates
// the underlying list.
func (h *Handlers) apiOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := feed.Filter{
		ProductID: q.Get("product"),
		ShipDate:  q.Get("date"),
		Search:    q.Get("search"),
		Kind:      feed.Kind(q.Get("kind")),
		Family:    h.engine.AppConfig().CRM.ZoneFamily,
		InFlight:  h.engine.Sagas().InFlight(),
	}
	if f.Kind == "" {
		f.Kind = feed.KindAll
	}

	fd := h.engine.Feed()
	orders := feed.Derive(fd.Orders(), f)

	resp := map[string]any{
		"zone":       fd.Zone(),
		"orders":     orders,
		"count":      len(orders),
		"total":      fd.Len(),
		"ship_dates": fd.ShipDates(),
		"loaded_at":  fd.LoadedAt(),
	}
	if err := fd.LastError(); err != nil {
		resp["load_error"] = err.Error()
	}
	h.jsonOK(w, resp)
}

func (h *Handlers) apiStartOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "invalid order id", http.StatusBadRequest)
		return
	}
	userID := h.engine.Session().UserID()

	if err := h.engine.Dispatcher().Start(r.Context(), id, userID); err != nil {
		h.jsonError(w, err.Error(), transitionStatus(err))
		return
	}
	h.jsonOK(w, map[string]any{"status": "started", "order_id": id})
}

func (h *Handlers) apiAdvanceOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "invalid order id", http.StatusBadRequest)
		return
	}
	userID := h.engine.Session().UserID()

	if err := h.engine.Dispatcher().Advance(r.Context(), id, userID); err != nil {
		h.jsonError(w, err.Error(), transitionStatus(err))
		return
	}
	h.jsonOK(w, map[string]any{"status": "advanced", "order_id": id})
}

// apiSagaState reports the advancement workflow for one order, for the
// progress indicator and the error banner.
func (h *Handlers) apiSagaState(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "invalid order id", http.StatusBadRequest)
		return
	}
	st, ok := h.engine.Sagas().State(id)
	if !ok {
		h.jsonError(w, "no saga for order", http.StatusNotFound)
		return
	}
	h.jsonOK(w, sagaView(st))
}

func (h *Handlers) apiRefresh(w http.ResponseWriter, r *http.Request) {
	h.engine.ManualRefresh()
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func sagaView(st saga.State) map[string]any {
	v := map[string]any{
		"run_id":     st.RunID,
		"order_id":   st.OrderID,
		"step":       st.Step.String(),
		"progress":   st.Progress,
		"terminal":   st.Step.Terminal(),
		"started_at": st.StartedAt,
		"updated_at": st.UpdatedAt,
	}
	if st.Message != "" {
		v["message"] = st.Message
	}
	if st.Invoice != nil {
		v["invoice"] = st.Invoice
	}
	if st.Receipt != "" {
		v["receipt"] = st.Receipt
	}
	return v
}

func transitionStatus(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrNotOffered):
		return http.StatusConflict
	case errors.Is(err, dispatch.ErrBusy), errors.Is(err, saga.ErrAlreadyRunning):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
