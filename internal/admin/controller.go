package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"codearena/pkg/response"
)

// Controller exposes the admin dashboard endpoints.
type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// Teams handles GET /api/admin/teams?search=&disqualified=.
func (h *Controller) Teams(c *gin.Context) {
	var disqualified *bool
	if raw := c.Query("disqualified"); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "disqualified must be a boolean")
			return
		}
		disqualified = &val
	}

	teams, err := h.service.Teams(c.Request.Context(), c.Query("search"), disqualified)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, teams)
}

// TeamDetail handles GET /api/admin/teams/:teamID.
func (h *Controller) TeamDetail(c *gin.Context) {
	detail, err := h.service.TeamDetail(c.Request.Context(), c.Param("teamID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// Stats handles GET /api/admin/stats.
func (h *Controller) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// Leaderboard handles GET /api/admin/leaderboard?limit=.
func (h *Controller) Leaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = val
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, entries)
}
