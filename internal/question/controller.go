package question

import (
	"github.com/gin-gonic/gin"

	"codearena/internal/store"
	"codearena/pkg/response"
)

// Controller exposes question endpoints.
type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// List handles GET /api/questions for authenticated teams.
func (h *Controller) List(c *gin.Context) {
	views, err := h.service.ListForTeam(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, views)
}

// ListFull handles GET /api/admin/questions.
func (h *Controller) ListFull(c *gin.Context) {
	questions, err := h.service.ListFull(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, questions)
}

// ImportRequest is the setup payload replacing the whole question set.
type ImportRequest struct {
	Questions []store.Question `json:"questions" binding:"required"`
}

// Import handles POST /api/admin/questions.
func (h *Controller) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	if err := h.service.Import(c.Request.Context(), req.Questions); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Question set replaced", gin.H{"count": len(req.Questions)})
}
