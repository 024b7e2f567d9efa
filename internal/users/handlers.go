package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response messages
const (
	MsgInvalidData   = "Dados inválidos"
	MsgInvalidBody   = "Corpo da requisição inválido"
	MsgDuplicate     = "E-mail já cadastrado"
	MsgNotFound      = "Usuário não encontrado"
	MsgDeleted       = "Usuário deletado com sucesso!"
	MsgUnavailable   = "Serviço temporariamente indisponível"
	MsgInternalError = "Erro interno do servidor"
)

// retryAfterSeconds is advertised on transient failures
const retryAfterSeconds = "1"

// Handlers provides HTTP handlers for the /usuarios resource
type Handlers struct {
	service UserService
	logger  *zap.Logger
}

// NewHandlers creates new user handlers
func NewHandlers(service UserService, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the user resource routes
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	usuarios := router.Group("/usuarios")
	{
		usuarios.POST("", h.CreateUser)
		usuarios.GET("", h.ListUsers)
		usuarios.GET("/:id", h.GetUser)
		usuarios.PUT("/:id", h.UpdateUser)
		usuarios.DELETE("/:id", h.DeleteUser)
	}
}

// CreateUser handles POST /usuarios
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "create", "", err)
		return
	}

	h.logger.Info("User created", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, user)
}

// ListUsers handles GET /usuarios
func (h *Handlers) ListUsers(c *gin.Context) {
	req := &ListUsersRequest{
		Name:  c.Query("name"),
		Email: c.Query("email"),
		Age:   c.Query("age"),
	}

	users, err := h.service.ListUsers(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "list", "", err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetUser handles GET /usuarios/:id
func (h *Handlers) GetUser(c *gin.Context) {
	userID := c.Param("id")

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, "get", userID, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser handles PUT /usuarios/:id
func (h *Handlers) UpdateUser(c *gin.Context) {
	userID := c.Param("id")

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), userID, &req)
	if err != nil {
		h.respondError(c, "update", userID, err)
		return
	}

	h.logger.Info("User updated", zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /usuarios/:id
func (h *Handlers) DeleteUser(c *gin.Context) {
	userID := c.Param("id")

	if err := h.service.DeleteUser(c.Request.Context(), userID); err != nil {
		h.respondError(c, "delete", userID, err)
		return
	}

	h.logger.Info("User deleted", zap.String("user_id", userID))
	c.JSON(http.StatusOK, gin.H{"message": MsgDeleted})
}

// respondBindError reports wrongly typed fields like validation failures
// and anything else as an unreadable body
func (h *Handlers) respondBindError(c *gin.Context, err error) {
	if verr := BindingError(err); verr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": MsgInvalidData,
			"fields":  verr.Fields,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": MsgInvalidBody})
}

// respondError maps the error taxonomy onto HTTP responses. Internal
// causes are logged, never returned.
func (h *Handlers) respondError(c *gin.Context, op, userID string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"message": MsgInvalidData,
			"fields":  verr.Fields,
		})
	case errors.Is(err, ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"message": MsgDuplicate})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": MsgNotFound})
	case errors.Is(err, ErrUnavailable):
		h.logger.Warn("User storage unavailable",
			zap.String("operation", op),
			zap.String("user_id", userID),
			zap.Error(err))
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": MsgUnavailable})
	default:
		h.logger.Error("Failed to "+op+" user",
			zap.String("user_id", userID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": MsgInternalError})
	}
}
