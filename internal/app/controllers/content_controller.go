package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campuskizuna/internal/app/auth"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/app/services"
	"github.com/yigit/campuskizuna/internal/middleware"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/helpers"
)

// ContentController serves posts, notices, comments and stories
type ContentController struct {
	contentService services.ContentService
}

// NewContentController creates a new content controller
func NewContentController(contentService services.ContentService) *ContentController {
	return &ContentController{contentService: contentService}
}

// GetFeed returns one page of non-notice posts, newest first
// @Summary Get feed
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PostListResponse} "Feed page"
// @Router /feed [get]
func (c *ContentController) GetFeed(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	feed, err := c.contentService.ListFeed(ctx.Request.Context(), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(feed))
}

// GetNotices returns one page of notices, newest first
// @Summary Get notices
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PostListResponse} "Notices page"
// @Router /notices [get]
func (c *ContentController) GetNotices(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	notices, err := c.contentService.ListNotices(ctx.Request.Context(), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(notices))
}

// CreatePost publishes a post or, for faculty and admins, a notice
// @Summary Create post
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePostRequest true "Post"
// @Success 201 {object} dto.APIResponse{data=dto.PostResponse} "Created post"
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 403 {object} dto.ErrorResponse "Notices require the PublishNotice capability"
// @Router /posts [post]
func (c *ContentController) CreatePost(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}
	if req.IsNotice {
		role, _ := middleware.CurrentRole(ctx)
		if !auth.Can(role, auth.PublishNotice) {
			middleware.HandleAPIError(ctx, apperrors.NewForbiddenError("only faculty and admins can publish notices"))
			return
		}
	}

	post, err := c.contentService.CreatePost(ctx.Request.Context(), me, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(post))
}

// GetPost returns one post with comments
// @Summary Get post
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} dto.APIResponse{data=dto.PostResponse} "Post"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /posts/{id} [get]
func (c *ContentController) GetPost(ctx *gin.Context) {
	post, err := c.contentService.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// ToggleLike likes or unlikes a post
// @Summary Toggle like
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} dto.APIResponse{data=dto.PostResponse} "Post after the toggle"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /posts/{id}/like [post]
func (c *ContentController) ToggleLike(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}

	post, err := c.contentService.ToggleLike(ctx.Request.Context(), ctx.Param("id"), me)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// AddComment appends a comment to a post
// @Summary Add comment
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body dto.AddCommentRequest true "Comment"
// @Success 201 {object} dto.APIResponse{data=dto.PostResponse} "Post with the new comment"
// @Failure 400 {object} dto.ErrorResponse "Empty comment"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /posts/{id}/comments [post]
func (c *ContentController) AddComment(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.AddCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	post, err := c.contentService.AddComment(ctx.Request.Context(), ctx.Param("id"), me, req.Text)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(post))
}

// CreateStory publishes a story that expires after a day
// @Summary Create story
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateStoryRequest true "Story"
// @Success 201 {object} dto.APIResponse{data=dto.StoryResponse} "Created story"
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Router /stories [post]
func (c *ContentController) CreateStory(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.CreateStoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	story, err := c.contentService.CreateStory(ctx.Request.Context(), me, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(story))
}

// GetActiveStories returns the story reel grouped by author
// @Summary Active stories
// @Tags content
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.StoryReelEntry} "Story reel"
// @Router /stories [get]
func (c *ContentController) GetActiveStories(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}

	reel, err := c.contentService.ActiveStories(ctx.Request.Context(), me)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(reel))
}
