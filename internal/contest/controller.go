package contest

import (
	"github.com/gin-gonic/gin"

	"codearena/pkg/contextkey"
	"codearena/pkg/response"
)

// Controller exposes contest lifecycle and violation endpoints.
type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// Status handles GET /api/contest/status.
func (h *Controller) Status(c *gin.Context) {
	view, err := h.service.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Me handles GET /api/contest/me.
func (h *Controller) Me(c *gin.Context) {
	teamID, _ := c.Request.Context().Value(contextkey.TeamID).(string)
	if teamID == "" {
		response.Unauthorized(c, "Team identity missing")
		return
	}

	team, err := h.service.Me(c.Request.Context(), teamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"team": team})
}

// StartRequest configures a contest start.
type StartRequest struct {
	ScheduledStart  string `json:"scheduledStart"`
	DurationMinutes int    `json:"contestDuration"`
}

// Start handles POST /api/admin/contest/start.
func (h *Controller) Start(c *gin.Context) {
	var req StartRequest
	// Body is optional; an empty start uses stored settings.
	_ = c.ShouldBindJSON(&req)

	settings, err := h.service.Start(c.Request.Context(), StartInput{
		ScheduledStart:  req.ScheduledStart,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Contest started", settings)
}

// Stop handles POST /api/admin/contest/stop.
func (h *Controller) Stop(c *gin.Context) {
	settings, err := h.service.Stop(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Contest stopped", settings)
}

// AnnounceRequest carries one announcement message.
type AnnounceRequest struct {
	Message string `json:"message" binding:"required"`
}

// Announce handles POST /api/admin/contest/announce.
func (h *Controller) Announce(c *gin.Context) {
	var req AnnounceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	ann, err := h.service.Announce(c.Request.Context(), req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ann)
}

// ViolationRequest reports one proctoring violation.
type ViolationRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// ReportViolation handles POST /api/contest/violation. The team reports its
// own violations; the kind comes from the proctoring client.
func (h *Controller) ReportViolation(c *gin.Context) {
	var req ViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	teamID, _ := c.Request.Context().Value(contextkey.TeamID).(string)
	if teamID == "" {
		response.Unauthorized(c, "Team identity missing")
		return
	}

	result, err := h.service.ReportViolation(c.Request.Context(), teamID, req.Kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DisqualifyRequest is the manual disqualification payload.
type DisqualifyRequest struct {
	TeamID string `json:"teamID" binding:"required"`
	Reason string `json:"reason"`
}

// Disqualify handles POST /api/admin/teams/disqualify.
func (h *Controller) Disqualify(c *gin.Context) {
	var req DisqualifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	if err := h.service.Disqualify(c.Request.Context(), req.TeamID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Team disqualified", nil)
}
