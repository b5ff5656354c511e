package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/app/services"
	"github.com/yigit/campuskizuna/internal/middleware"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

// SessionController drives the onboarding state machine over HTTP
type SessionController struct {
	sessionService services.SessionService
}

// NewSessionController creates a new SessionController
func NewSessionController(sessionService services.SessionService) *SessionController {
	return &SessionController{
		sessionService: sessionService,
	}
}

// StartSession opens a new onboarding session
// @Summary Start a session
// @Description Opens a session in the RoleSelection state
// @Tags sessions
// @Produce json
// @Success 201 {object} dto.APIResponse{data=dto.SessionResponse} "Session started"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /sessions [post]
func (c *SessionController) StartSession(ctx *gin.Context) {
	session, err := c.sessionService.Start(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(session))
}

// GetSession returns the current state of a session
// @Summary Get session state
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Session state"
// @Failure 404 {object} dto.ErrorResponse "Session not found or expired"
// @Router /sessions/{id} [get]
func (c *SessionController) GetSession(ctx *gin.Context) {
	session, err := c.sessionService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(session))
}

// SelectRole chooses the role the session authenticates as
// @Summary Select role
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.SelectRoleRequest true "Role"
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Session moved to Authenticating"
// @Failure 400 {object} dto.ErrorResponse "Invalid role"
// @Failure 409 {object} dto.ErrorResponse "Not allowed in the current state"
// @Router /sessions/{id}/role [post]
func (c *SessionController) SelectRole(ctx *gin.Context) {
	var req dto.SelectRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("role", "unknown role"))
		return
	}

	session, err := c.sessionService.SelectRole(ctx.Request.Context(), ctx.Param("id"), role)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(session))
}

// Register submits sign-up details for the selected role
// @Summary Register
// @Description Students register with UUCMS number, password and personal number; faculty and admins with an identifier and password
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.RegisterRequest true "Registration"
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Session moved to OtpPending"
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 409 {object} dto.ErrorResponse "Identifier already registered or wrong state"
// @Failure 429 {object} dto.ErrorResponse "Too many requests"
// @Router /sessions/{id}/register [post]
func (c *SessionController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	session, err := c.sessionService.Register(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(session))
}

// Login authenticates an existing user of the selected role
// @Summary Login
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Session Active with access token"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 409 {object} dto.ErrorResponse "Not allowed in the current state"
// @Failure 429 {object} dto.ErrorResponse "Too many requests"
// @Router /sessions/{id}/login [post]
func (c *SessionController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	session, err := c.sessionService.Login(ctx.Request.Context(), ctx.Param("id"), req.Identifier, req.Password)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(session))
}

// VerifyOTP submits the one-time code
// @Summary Verify OTP
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.VerifyOTPRequest true "Code"
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Session moved to ProfileSetup"
// @Failure 400 {object} dto.ErrorResponse "Malformed or incorrect code"
// @Failure 409 {object} dto.ErrorResponse "Not allowed in the current state"
// @Router /sessions/{id}/otp [post]
func (c *SessionController) VerifyOTP(ctx *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	session, err := c.sessionService.VerifyOTP(ctx.Request.Context(), ctx.Param("id"), req.Code)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(session))
}

// CompleteProfile finishes onboarding and creates the user
// @Summary Complete profile
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.ProfileSetupRequest true "Profile"
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Session Active with access token"
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 409 {object} dto.ErrorResponse "Not allowed in the current state"
// @Router /sessions/{id}/profile [post]
func (c *SessionController) CompleteProfile(ctx *gin.Context) {
	var req dto.ProfileSetupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	session, err := c.sessionService.CompleteProfile(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(session))
}

// Back returns to the previous onboarding step
// @Summary Go back
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Previous state"
// @Failure 409 {object} dto.ErrorResponse "Not allowed in the current state"
// @Router /sessions/{id}/back [post]
func (c *SessionController) Back(ctx *gin.Context) {
	session, err := c.sessionService.Back(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(session))
}

// Logout detaches the user; tokens issued for the session stop working
// @Summary Logout
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Session back at RoleSelection"
// @Failure 409 {object} dto.ErrorResponse "Session is not Active"
// @Router /sessions/{id}/logout [post]
func (c *SessionController) Logout(ctx *gin.Context) {
	session, err := c.sessionService.Logout(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(session))
}
