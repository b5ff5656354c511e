package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campuskizuna/internal/app/auth"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/app/services"
	"github.com/yigit/campuskizuna/internal/middleware"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

// UserController handles profiles and the follow graph
type UserController struct {
	userService    services.UserService
	contentService services.ContentService
	authzService   *auth.AuthorizationService
}

// NewUserController creates a new user controller
func NewUserController(userService services.UserService, contentService services.ContentService, authzService *auth.AuthorizationService) *UserController {
	return &UserController{
		userService:    userService,
		contentService: contentService,
		authzService:   authzService,
	}
}

// callerID reads the authenticated user id, aborting with 401 when absent
func callerID(ctx *gin.Context) (string, bool) {
	id, ok := middleware.CurrentUserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenInvalid)
		return "", false
	}
	return id, true
}

// ListUsers lists users, optionally filtered by role
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Student, Faculty or Admin"
// @Success 200 {object} dto.APIResponse{data=[]dto.UserResponse} "Users"
// @Failure 400 {object} dto.ErrorResponse "Unknown role"
// @Router /users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	var role models.Role
	if raw := ctx.Query("role"); raw != "" {
		parsed, ok := models.ParseRole(raw)
		if !ok {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("role", "unknown role"))
			return
		}
		role = parsed
	}

	users, err := c.userService.ListUsers(ctx.Request.Context(), role)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponses(users)))
}

// SearchUsers matches users by name, excluding the caller
// @Summary Search users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param q query string false "Case-insensitive name fragment"
// @Success 200 {object} dto.APIResponse{data=[]dto.UserResponse} "Matching users"
// @Router /users/search [get]
func (c *UserController) SearchUsers(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}

	users, err := c.userService.SearchUsers(ctx.Request.Context(), ctx.Query("q"), me)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponses(users)))
}

// GetUser retrieves a profile
// @Summary Get user by ID
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse} "User"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	user, err := c.userService.GetUser(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponse(user)))
}

// UpdateProfile replaces the editable profile fields
// @Summary Update profile
// @Description Users may edit their own profile; admins may edit any
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body dto.UpdateProfileRequest true "Profile"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse} "Updated user"
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 403 {object} dto.ErrorResponse "Not your profile"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id} [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}
	targetID := ctx.Param("id")
	if err := c.authzService.ValidateProfileOwnership(ctx.Request.Context(), me, targetID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	user, err := c.userService.UpdateProfile(ctx.Request.Context(), targetID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponse(user)))
}

// ToggleFollow follows or unfollows a user
// @Summary Toggle follow
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User to follow or unfollow"
// @Success 200 {object} dto.APIResponse{data=dto.FollowResponse} "Follow edge after the toggle"
// @Failure 400 {object} dto.ErrorResponse "Cannot follow yourself"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id}/follow [post]
func (c *UserController) ToggleFollow(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}

	result, err := c.userService.ToggleFollow(ctx.Request.Context(), me, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// ListUserPosts lists a user's posts, newest first
// @Summary List a user's posts
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.PostResponse} "Posts"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id}/posts [get]
func (c *UserController) ListUserPosts(ctx *gin.Context) {
	posts, err := c.contentService.ListUserPosts(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(posts))
}

// ListUserStories lists a user's active stories
// @Summary List a user's stories
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.StoryResponse} "Stories"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id}/stories [get]
func (c *UserController) ListUserStories(ctx *gin.Context) {
	stories, err := c.contentService.UserStories(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stories))
}

// RemoveUser deletes a user and everything that references them
// @Summary Remove user
// @Description Requires confirm=true. Fails while the user coordinates or teaches a classroom.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param confirm query bool true "Must be true"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "User removed"
// @Failure 400 {object} dto.ErrorResponse "Removal not confirmed"
// @Failure 403 {object} dto.ErrorResponse "Missing ManageUsers capability"
// @Failure 409 {object} dto.ErrorResponse "User still coordinates or teaches"
// @Router /users/{id} [delete]
func (c *UserController) RemoveUser(ctx *gin.Context) {
	confirmed, _ := strconv.ParseBool(ctx.Query("confirm"))

	if err := c.userService.RemoveUser(ctx.Request.Context(), ctx.Param("id"), confirmed); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "User removed"}))
}
