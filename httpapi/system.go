package httpapi

import "net/http"

type healthResponse struct {
	Status         string `json:"status"`
	Redis          bool   `json:"redis"`
	RedisLatencyMS int64  `json:"redisLatencyMs"`
	Users          bool   `json:"users"`
}

// handleHealth answers 503 when any backend is down so load balancers can
// drain the instance.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	hs := h.engine.Health(r.Context())
	resp := healthResponse{
		Status:         "ok",
		Redis:          hs.RedisAvailable,
		RedisLatencyMS: hs.RedisLatency.Milliseconds(),
		Users:          hs.UsersAvailable,
	}
	status := http.StatusOK
	if !hs.Healthy() {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
