package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/barong-iam/core"
	"github.com/layer-3/barong-iam/service"
)

// UserDirectory serves role and permission lookups
type UserDirectory interface {
	Roles(ctx context.Context, userID int64) ([]string, error)
	Permissions(ctx context.Context, userID int64) ([]string, error)
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	users       UserDirectory
	logger      *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, users UserDirectory, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		users:       users,
		logger:      logger.Named("handlers"),
	}
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Captcha    string `json:"captcha"`
	CaptchaKey string `json:"captchaKey"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type captchaResponse struct {
	Key      string `json:"key"`
	Image    string `json:"image"`
	ExpireIn int64  `json:"expireIn"`
}

type captchaV1Response struct {
	CaptchaID    string `json:"captchaId"`
	CaptchaImage string `json:"captchaImage"`
	ExpireTime   int64  `json:"expireTime"`
}

// fail writes the envelope for err and logs unexpected causes
func (h *AuthHandlers) fail(c *gin.Context, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	respondError(c, status, message)
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), core.LoginRequest{
		Username:   req.Username,
		Password:   req.Password,
		Captcha:    req.Captcha,
		CaptchaKey: req.CaptchaKey,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respondOK(c, "login succeeded", result)
}

// Logout revokes the token in the Authorization header. A bare token
// without the Bearer scheme is accepted too.
func (h *AuthHandlers) Logout(c *gin.Context) {
	header := c.GetHeader(AuthHeader)
	token := bearerToken(header)
	if token == "" && !strings.EqualFold(strings.TrimSpace(header), core.BearerScheme) {
		token = strings.TrimSpace(header)
	}

	if !h.authService.Logout(c.Request.Context(), token) {
		c.JSON(http.StatusInternalServerError, Result{Code: http.StatusInternalServerError, Message: "logout failed", Data: false})
		return
	}
	respondOK(c, "logout succeeded", true)
}

// Refresh rotates the refresh token given as a query, form or JSON field
func (h *AuthHandlers) Refresh(c *gin.Context) {
	token := c.Query("refreshToken")
	if token == "" {
		token = c.PostForm("refreshToken")
	}
	if token == "" && strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, msgBadRequest)
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.authService.RefreshSession(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}

	respondOK(c, "token refreshed", pair)
}

// Captcha issues a captcha challenge inside the result envelope
func (h *AuthHandlers) Captcha(c *gin.Context) {
	ch, err := h.authService.Captcha(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	respondOK(c, msgSuccess, captchaResponse{
		Key:      ch.ID,
		Image:    ch.Image,
		ExpireIn: int64(ch.TTL.Seconds()),
	})
}

// CaptchaV1 issues a captcha challenge as a bare object with an absolute
// expiry in epoch milliseconds
func (h *AuthHandlers) CaptchaV1(c *gin.Context) {
	ch, err := h.authService.Captcha(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, captchaV1Response{
		CaptchaID:    ch.ID,
		CaptchaImage: ch.Image,
		ExpireTime:   ch.ExpiresAt.UnixMilli(),
	})
}

// Me returns the authenticated principal
func (h *AuthHandlers) Me(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	respondOK(c, msgSuccess, p)
}

// UserRoles returns the roles of the user in the :id path parameter
func (h *AuthHandlers) UserRoles(c *gin.Context) {
	h.lookup(c, h.users.Roles)
}

// UserPermissions returns the permissions of the user in the :id path parameter
func (h *AuthHandlers) UserPermissions(c *gin.Context) {
	h.lookup(c, h.users.Permissions)
}

func (h *AuthHandlers) lookup(c *gin.Context, fn func(context.Context, int64) ([]string, error)) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	values, err := fn(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, msgSuccess, values)
}

// Health reports liveness
func (h *AuthHandlers) Health(c *gin.Context) {
	respondOK(c, msgSuccess, gin.H{"status": "ok"})
}
