package auth

import (
	"github.com/gin-gonic/gin"

	"codearena/pkg/response"
)

// Controller exposes the login endpoints.
type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// TeamLoginRequest is the team login payload.
type TeamLoginRequest struct {
	TeamName   string `json:"teamName" binding:"required"`
	LeaderName string `json:"leaderName" binding:"required"`
	Email      string `json:"email" binding:"required"`
}

// TeamLogin handles POST /api/auth/login.
func (h *Controller) TeamLogin(c *gin.Context) {
	var req TeamLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.service.TeamLogin(c.Request.Context(), TeamLoginInput{
		TeamName:   req.TeamName,
		LeaderName: req.LeaderName,
		Email:      req.Email,
		IP:         c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// AdminLoginRequest is the admin login payload.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin handles POST /api/auth/admin/login.
func (h *Controller) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	token, err := h.service.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"token": token})
}
