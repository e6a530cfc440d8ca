// Admin API handlers.
//
// Paginated listings of the relay's persisted state (messages, users,
// channels) plus explicit user/channel creation. All routes in this group
// sit behind the static admin bearer token (see middleware.AdminAuth).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/botdo/go-relay-backend/internal/domain"
	"github.com/botdo/go-relay-backend/internal/http/middleware"
	"github.com/botdo/go-relay-backend/internal/repo"
	"github.com/botdo/go-relay-backend/internal/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// AdminHandler serves the read-only admin listings.
type AdminHandler struct {
	DB *gorm.DB
}

// PageResponse is the uniform pagination envelope for admin listings.
type PageResponse struct {
	Items    any   `json:"items"`
	Page     int   `json:"page" example:"1"`
	PageSize int   `json:"page_size" example:"50"`
	Total    int64 `json:"total" example:"137"`
	// TotalPages is ceil(Total / PageSize).
	TotalPages int  `json:"total_pages" example:"3"`
	HasNext    bool `json:"has_next" example:"true"`
}

// pageParams reads ?page= and ?page_size= with clamping.
func pageParams(c *gin.Context) (page, size int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	size = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func pageEnvelope(items any, page, size int, total int64) PageResponse {
	totalPages := int((total + int64(size) - 1) / int64(size))
	return PageResponse{
		Items:      items,
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// validDirection reports whether the ?direction= filter value is usable.
func validDirection(d string) bool {
	return d == "" || d == domain.DirectionInbound || d == domain.DirectionOutbound
}

// ListMessages godoc
// @ID          adminListMessages
// @Summary     List relayed messages
// @Description Newest-first page of persisted messages, optionally filtered
// @Description by platform and direction.
// @Tags        Admin
// @Produce     json
// @Param       page       query int    false "Page number (1-based)"
// @Param       page_size  query int    false "Page size (max 200)"
// @Param       platform   query string false "Filter: slack|whatsapp|web"
// @Param       direction  query string false "Filter: inbound|outbound"
// @Success     200 {object} handlers.PageResponse
// @Failure     400 {object} handlers.ErrorResponse "Bad request"
// @Failure     500 {object} handlers.ErrorResponse "Listing failed"
// @Security    BearerAuth
// @Router      /messages [get]
func (h *AdminHandler) ListMessages(c *gin.Context) {
	platform := c.Query("platform")
	direction := c.Query("direction")
	if !validDirection(direction) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "direction must be inbound or outbound")
		return
	}
	page, size := pageParams(c)

	ctx := c.Request.Context()
	total, err := repo.CountMessages(ctx, h.DB, platform, direction)
	if err != nil {
		h.listFailed(c, err, "count messages")
		return
	}
	items, err := repo.ListMessagesPage(ctx, h.DB, platform, direction, (page-1)*size, size)
	if err != nil {
		h.listFailed(c, err, "list messages")
		return
	}
	ok(c, http.StatusOK, pageEnvelope(items, page, size, total))
}

// GetMessage godoc
// @ID          adminGetMessage
// @Summary     Fetch one message
// @Tags        Admin
// @Produce     json
// @Param       id path string true "Message row ID"
// @Success     200 {object} domain.Message
// @Failure     404 {object} handlers.ErrorResponse "Not found"
// @Security    BearerAuth
// @Router      /messages/{id} [get]
func (h *AdminHandler) GetMessage(c *gin.Context) {
	msg, err := repo.GetMessage(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
			return
		}
		h.listFailed(c, err, "get message")
		return
	}
	ok(c, http.StatusOK, msg)
}

// ListUsers godoc
// @ID          adminListUsers
// @Summary     List known users
// @Tags        Admin
// @Produce     json
// @Param       page      query int    false "Page number (1-based)"
// @Param       page_size query int    false "Page size (max 200)"
// @Param       platform  query string false "Filter: slack|whatsapp|web"
// @Success     200 {object} handlers.PageResponse
// @Security    BearerAuth
// @Router      /users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	platform := c.Query("platform")
	page, size := pageParams(c)

	ctx := c.Request.Context()
	total, err := repo.CountUsers(ctx, h.DB, platform)
	if err != nil {
		h.listFailed(c, err, "count users")
		return
	}
	items, err := repo.ListUsersPage(ctx, h.DB, platform, (page-1)*size, size)
	if err != nil {
		h.listFailed(c, err, "list users")
		return
	}
	ok(c, http.StatusOK, pageEnvelope(items, page, size, total))
}

// ListChannels godoc
// @ID          adminListChannels
// @Summary     List known channels
// @Tags        Admin
// @Produce     json
// @Param       page      query int    false "Page number (1-based)"
// @Param       page_size query int    false "Page size (max 200)"
// @Param       platform  query string false "Filter: slack|whatsapp|web"
// @Success     200 {object} handlers.PageResponse
// @Security    BearerAuth
// @Router      /channels [get]
func (h *AdminHandler) ListChannels(c *gin.Context) {
	platform := c.Query("platform")
	page, size := pageParams(c)

	ctx := c.Request.Context()
	total, err := repo.CountChannels(ctx, h.DB, platform)
	if err != nil {
		h.listFailed(c, err, "count channels")
		return
	}
	items, err := repo.ListChannelsPage(ctx, h.DB, platform, (page-1)*size, size)
	if err != nil {
		h.listFailed(c, err, "list channels")
		return
	}
	ok(c, http.StatusOK, pageEnvelope(items, page, size, total))
}

// CreateUserRequest is the payload for the admin user-creation endpoint.
type CreateUserRequest struct {
	Platform       string         `json:"platform"         binding:"required" example:"slack"`
	PlatformUserID string         `json:"platform_user_id" binding:"required" example:"U0123456789"`
	DisplayName    string         `json:"display_name,omitempty" example:"Ana"`
	Email          string         `json:"email,omitempty"        example:"ana@example.com"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CreateUser godoc
// @ID          adminCreateUser
// @Summary     Register a user
// @Description Creates a user row ahead of any inbound traffic. A user that
// @Description already exists for the (platform, platform_user_id) pair is a
// @Description conflict, unlike the relay's internal upsert path.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       request body handlers.CreateUserRequest true "User to create"
// @Success     201 {object} domain.User
// @Failure     400 {object} handlers.ErrorResponse "Bad request"
// @Failure     409 {object} handlers.ErrorResponse "Already exists"
// @Security    BearerAuth
// @Router      /users [post]
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform and platform_user_id are required")
		return
	}
	if !validPlatform(req.Platform) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown platform")
		return
	}

	u, err := repo.CreateUser(c.Request.Context(), h.DB, req.Platform, req.PlatformUserID, req.DisplayName, req.Email, req.Metadata)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			fail(c, http.StatusConflict, ErrCodeConflict, "user already exists for this platform id")
			return
		}
		h.listFailed(c, err, "create user")
		return
	}
	ok(c, http.StatusCreated, u)
}

// CreateChannelRequest is the payload for the admin channel-creation endpoint.
type CreateChannelRequest struct {
	Platform          string         `json:"platform"            binding:"required" example:"slack"`
	PlatformChannelID string         `json:"platform_channel_id" binding:"required" example:"C0123456789"`
	Name              string         `json:"name,omitempty"      example:"soporte"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// CreateChannel godoc
// @ID          adminCreateChannel
// @Summary     Register a channel
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       request body handlers.CreateChannelRequest true "Channel to create"
// @Success     201 {object} domain.Channel
// @Failure     400 {object} handlers.ErrorResponse "Bad request"
// @Failure     409 {object} handlers.ErrorResponse "Already exists"
// @Security    BearerAuth
// @Router      /channels [post]
func (h *AdminHandler) CreateChannel(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform and platform_channel_id are required")
		return
	}
	if !validPlatform(req.Platform) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown platform")
		return
	}

	ch, err := repo.CreateChannel(c.Request.Context(), h.DB, req.Platform, req.PlatformChannelID, req.Name, req.Metadata)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			fail(c, http.StatusConflict, ErrCodeConflict, "channel already exists for this platform id")
			return
		}
		h.listFailed(c, err, "create channel")
		return
	}
	ok(c, http.StatusCreated, ch)
}

func validPlatform(p string) bool {
	switch p {
	case domain.PlatformSlack, domain.PlatformWhatsApp, domain.PlatformWeb:
		return true
	}
	return false
}

func (h *AdminHandler) listFailed(c *gin.Context, err error, op string) {
	lg := middleware.LoggerFrom(c)
	lg.Error().Err(err).Str("op", op).Msg("admin listing failed")
	fail(c, http.StatusInternalServerError, ErrCodeListFailed, "listing failed")
}
