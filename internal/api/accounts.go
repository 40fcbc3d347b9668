package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fertilizer-advisor/internal/auth"
	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/middleware"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

const forgotPasswordMessage = "If an account exists for this email, a password reset link has been sent"

// writeAccountError maps account errors to HTTP statuses.
func (s *Server) writeAccountError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Invalid account details", verr.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		s.respondError(c, http.StatusConflict, domain.ErrCodeConflict, "Email already registered", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.respondError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "Invalid credentials", "")
	case errors.Is(err, auth.ErrInvalidResetToken):
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid or expired reset token", "")
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "Account not found", "")
	default:
		s.writeError(c, err)
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	session, err := s.accounts.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeAccountError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	session, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.accounts.User(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		s.writeAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// handleForgotPassword answers the same way whether or not the account
// exists. No mail transport is wired; with auth.expose_reset_token the
// token and link are returned in the response instead.
func (s *Server) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	token, err := s.accounts.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		s.writeAccountError(c, err)
		return
	}

	body := gin.H{"message": forgotPasswordMessage}
	cfg := s.configManager.GetConfig().Auth
	if token != "" && cfg.ExposeResetToken {
		body["reset_token"] = token
		body["reset_url"] = strings.TrimRight(cfg.ResetURL, "/") + "/" + token
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	if err := s.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		s.writeAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
