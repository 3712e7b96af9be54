package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	APIKeyCount     int   `json:"api_key_count" example:"2"`
	TotalRequests   int64 `json:"total_requests" example:"41"`
	TodayRequests   int64 `json:"today_requests" example:"3"`
	UserCount       int   `json:"user_count" example:"7"`
	PendingSessions int   `json:"pending_sessions" example:"1"`
	QueuedUpdates   int   `json:"queued_updates" example:"0"`
}

// Stats godoc
// @ID          getStats
// @Summary     Bot statistics
// @Description Returns the dashboard counters. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Stats
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.StatsResponse
// @Header      200  {string}  ETag  "Weak ETag for current counters"
// @Success     304  {string}  string  "Not Modified"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	st := h.stats.DashboardStats(c.Request.Context())
	resp := StatsResponse{
		APIKeyCount:   st.APIKeyCount,
		TotalRequests: st.TotalRequests,
		TodayRequests: st.TodayRequests,
		UserCount:     st.UserCount,
	}
	if h.sessions != nil {
		resp.PendingSessions = h.sessions.Len()
	}
	if h.queue != nil {
		resp.QueuedUpdates = h.queue.Pending()
	}

	// queue and session gauges are volatile and left out of the tag
	etag := fmt.Sprintf(`W/"stats:%d:%d:%d:%d"`, resp.APIKeyCount, resp.TotalRequests, resp.TodayRequests, resp.UserCount)
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, http.StatusOK, resp)
}
