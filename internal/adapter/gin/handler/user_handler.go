package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	domain "user-events-service/internal/domain/user"
	"user-events-service/internal/usecase/user"
	apperrors "user-events-service/pkg/errors"
	"user-events-service/pkg/logger"
)

func init() {
	// request bodies carrying fields the command does not define are rejected
	binding.EnableDecoderDisallowUnknownFields = true
}

// listParams are the query parameters accepted by GET /v1/users.
var listParams = map[string]struct{}{
	"limit":      {},
	"offset":     {},
	"sort_by":    {},
	"sort_order": {},
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// UpdateUserRequest is the body of PUT /v1/users/:id. Absent and null
// fields are left unchanged. ID is accepted but ignored; the path id is
// the target and the identifier is never assigned.
type UpdateUserRequest struct {
	ID    *int64  `json:"id"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateUser handles POST /v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var cmd domain.CreateCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.fail(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	h.execute(c, cmd)
}

// GetUser handles GET /v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	h.execute(c, domain.GetCommand{ID: id})
}

// ListUsers handles GET /v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	cmd, err := parseListQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.execute(c, cmd)
}

// UpdateUser handles PUT /v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	h.execute(c, domain.UpdateCommand{ID: id, Name: req.Name, Email: req.Email})
}

// DeleteUser handles DELETE /v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	h.execute(c, domain.DeleteCommand{ID: id})
}

// execute dispatches cmd and writes the response matching its variant.
func (h *UserHandler) execute(c *gin.Context, cmd domain.Command) {
	resp, err := h.uc.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch r := resp.(type) {
	case domain.Created:
		c.JSON(http.StatusCreated, r.User)
	case domain.Fetched:
		c.JSON(http.StatusOK, r.User)
	case domain.Listed:
		c.JSON(http.StatusOK, r.Page)
	case domain.Updated:
		c.JSON(http.StatusOK, r.User)
	case domain.Deleted:
		c.Status(http.StatusNoContent)
	default:
		h.fail(c, fmt.Errorf("unexpected response %T", resp))
	}
}

func (h *UserHandler) pathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.fail(c, apperrors.NewValidationError(fmt.Sprintf("invalid user id %q", raw)))
		return 0, false
	}
	return id, true
}

// fail writes err with the status of its kind.
func (h *UserHandler) fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	log := logger.WithContext(c.Request.Context(), h.log)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func parseListQuery(c *gin.Context) (domain.ListCommand, error) {
	var cmd domain.ListCommand
	query := c.Request.URL.Query()

	for name := range query {
		if _, ok := listParams[name]; !ok {
			return cmd, apperrors.NewValidationError(fmt.Sprintf("unknown query parameter %q", name))
		}
	}

	for _, name := range []string{"limit", "offset"} {
		raw, ok := c.GetQuery(name)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cmd, apperrors.NewValidationError(fmt.Sprintf("%s must be an integer, got %q", name, raw))
		}
		if name == "limit" {
			cmd.Limit = &n
		} else {
			cmd.Offset = &n
		}
	}

	if raw, ok := c.GetQuery("sort_by"); ok {
		field, err := domain.ParseUserField(raw)
		if err != nil {
			return cmd, apperrors.NewValidationError(err.Error())
		}
		cmd.SortBy = &field
	}

	if raw, ok := c.GetQuery("sort_order"); ok {
		order, err := domain.ParseSortOrder(raw)
		if err != nil {
			return cmd, apperrors.NewValidationError(err.Error())
		}
		cmd.SortOrder = &order
	}

	return cmd, nil
}
