package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
	"github.com/arklim/taskhub/internal/transport/http/middleware"
	"github.com/arklim/taskhub/internal/usecase"
)

// UserHandler exposes profile and administrative user endpoints.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterProfileRoutes binds the self-service profile endpoints. The group
// must already carry the auth middleware.
func (h *UserHandler) RegisterProfileRoutes(r *gin.RouterGroup) {
	r.GET("/profile", h.getProfile)
	r.PUT("/profile", h.updateProfile)
	r.PATCH("/profile", h.updateProfile)
	r.POST("/change-password", h.changePassword)
}

// RegisterAdminRoutes binds administrative user management endpoints. The
// group must carry both auth and admin middleware.
func (h *UserHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("", h.listUsers)
	r.POST("", h.provisionUser)
	r.GET("/:id", h.getUser)
	r.PATCH("/:id/active", h.setActive)
	r.DELETE("/:id", h.deleteUser)
}

// ListUsersRoute exposes the user listing handler so routes can mount it
// outside the admin group; the service still enforces the admin policy.
func (h *UserHandler) ListUsersRoute() gin.HandlerFunc {
	return h.listUsers
}

func userErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "not permitted"},
		{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "user not found"},
	}
}

// GetProfile godoc
// @Summary View the caller's profile
// @Tags Users
// @Produce json
// @Success 200 {object} UserPayload
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/profile [get]
func (h *UserHandler) getProfile(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), principal, principal.ID)
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(user))
}

func (h *UserHandler) updateProfile(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), principal, principal.ID, usecase.ProfilePatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(user))
}

// ChangePassword godoc
// @Summary Rotate the caller's password
// @Tags Users
// @Accept json
// @Produce json
// @Param request body PasswordChangeRequest true "Password change payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/auth/change-password [post]
func (h *UserHandler) changePassword(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "current_password and new_password are required"))
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), principal, principal.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, append(userErrorCases(),
			ErrorCase{Err: usecase.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: "current password is incorrect"},
		), http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// ListUsers godoc
// @Summary List all users
// @Tags Users
// @Produce json
// @Success 200 {object} UserListResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/auth/users [get]
func (h *UserHandler) listUsers(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	filter := port.UserFilter{
		Role:   domain.Role(c.Query("role")),
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	}
	if raw := c.Query("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.IsActive = &active
		}
	}

	users, err := h.users.ListUsers(c.Request.Context(), principal, filter)
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "failed to list users")
		return
	}

	payloads := make([]UserPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, newUserPayload(user))
	}

	c.JSON(http.StatusOK, UserListResponse{Users: payloads, Total: len(payloads)})
}

func (h *UserHandler) getUser(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "failed to load user")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(user))
}

func (h *UserHandler) provisionUser(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UserProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user payload"))
		return
	}

	user, err := h.users.ProvisionUser(c.Request.Context(), principal, usecase.ProvisionInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, newUserPayload(user))
}

func (h *UserHandler) setActive(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UserSetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "is_active is required"))
		return
	}

	err := h.users.SetActive(c.Request.Context(), principal, c.Param("id"), *req.IsActive)
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "failed to update account state")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account state updated"})
}

func (h *UserHandler) deleteUser(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	err := h.users.DeleteUserWithTasks(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return val
}
