package handler

import (
	"log/slog"

	"agritrace/internal/middleware"
	"agritrace/internal/service"
	"agritrace/internal/util"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	Users  *service.Users
	Logger *slog.Logger
}

func NewUserHandler(users *service.Users, logger *slog.Logger) *UserHandler {
	return &UserHandler{Users: users, Logger: logger}
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.Users.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch user")
		return
	}
	util.Success(c, util.Response{"user": user.Profile()})
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Users.UpdateUser(c.Request.Context(), middleware.CurrentActor(c), c.Param("userId"), req)
	if err != nil {
		fail(c, h.Logger, err, "failed to update user")
		return
	}
	util.Success(c, util.Response{"user": user.Profile()})
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordReq
	if !bindJSON(c, &req) {
		return
	}
	err := h.Users.ChangePassword(c.Request.Context(), middleware.CurrentActor(c),
		c.Param("userId"), req.OldPassword, req.NewPassword)
	if err != nil {
		fail(c, h.Logger, err, "failed to change password")
		return
	}
	util.Success(c, util.Response{"message": "password changed"})
}
