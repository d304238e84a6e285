package handler

import (
	"log/slog"
	"net/http"
	"time"

	"agritrace/internal/middleware"
	"agritrace/internal/service"
	"agritrace/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves registration, login and the current user.
type AuthHandler struct {
	Users     *service.Users
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
	Logger    *slog.Logger
}

func NewAuthHandler(users *service.Users, jwtSecret, issuer string, ttlHours int, logger *slog.Logger) *AuthHandler {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &AuthHandler{
		Users:     users,
		JWTSecret: jwtSecret,
		Issuer:    issuer,
		TokenTTL:  time.Duration(ttlHours) * time.Hour,
		Logger:    logger,
	}
}

type registerReq struct {
	service.RegisterInput
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if !bindJSON(c, &req) {
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		util.Error(c, http.StatusBadRequest, "passwords do not match")
		return
	}

	user, err := h.Users.Register(c.Request.Context(), middleware.CurrentActor(c), req.RegisterInput)
	if err != nil {
		fail(c, h.Logger, err, "failed to register user")
		return
	}
	util.Success(c, util.Response{"user": user.Profile()})
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.Users.Authenticate(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		fail(c, h.Logger, err, "failed to log in")
		return
	}

	token, err := util.GenerateToken(h.JWTSecret, h.Issuer, user.ID, string(user.Role), h.TokenTTL)
	if err != nil {
		fail(c, h.Logger, err, "failed to issue token")
		return
	}
	util.Success(c, util.Response{
		"token": token,
		"user":  user.Profile(),
	})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, "login required")
		return
	}
	util.Success(c, util.Response{"user": user.Profile()})
}
