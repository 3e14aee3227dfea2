package submission

import (
	"github.com/gin-gonic/gin"

	"codearena/pkg/contextkey"
	"codearena/pkg/response"
)

// Controller exposes the team-facing submission endpoints.
type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// DraftRequest is the save-answer payload.
type DraftRequest struct {
	QuestionID     string `json:"questionID" binding:"required"`
	Code           string `json:"code"`
	SelectedOption string `json:"selectedOption"`
}

// SaveDraft handles POST /api/submissions/draft.
func (h *Controller) SaveDraft(c *gin.Context) {
	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	teamID := teamIDFrom(c)
	if teamID == "" {
		response.Unauthorized(c, "Team identity missing")
		return
	}

	if err := h.service.SaveDraft(c.Request.Context(), DraftInput{
		TeamID:         teamID,
		QuestionID:     req.QuestionID,
		Code:           req.Code,
		SelectedOption: req.SelectedOption,
	}); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Draft saved", nil)
}

// RunRequest is the try-run payload.
type RunRequest struct {
	Code  string `json:"code" binding:"required"`
	Input string `json:"input"`
}

// Run handles POST /api/code/run.
func (h *Controller) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	teamID := teamIDFrom(c)
	if teamID == "" {
		response.Unauthorized(c, "Team identity missing")
		return
	}

	result, err := h.service.Run(c.Request.Context(), RunInput{
		TeamID: teamID,
		Code:   req.Code,
		Stdin:  req.Input,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Finalize handles POST /api/submissions/finalize.
func (h *Controller) Finalize(c *gin.Context) {
	teamID := teamIDFrom(c)
	if teamID == "" {
		response.Unauthorized(c, "Team identity missing")
		return
	}

	result, err := h.service.Finalize(c.Request.Context(), teamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Drafts handles GET /api/submissions/drafts.
func (h *Controller) Drafts(c *gin.Context) {
	teamID := teamIDFrom(c)
	if teamID == "" {
		response.Unauthorized(c, "Team identity missing")
		return
	}

	drafts, err := h.service.Drafts(c.Request.Context(), teamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, drafts)
}

func teamIDFrom(c *gin.Context) string {
	teamID, _ := c.Request.Context().Value(contextkey.TeamID).(string)
	return teamID
}
