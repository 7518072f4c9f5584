package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/barong-iam/config"
	"github.com/layer-3/barong-iam/core"
)

const (
	AuthHeader          = "Authorization"
	RequestIDHeader     = "X-Request-ID"
	ContextPrincipalKey = "principal"
	ContextRequestIDKey = "request_id"
)

// PrincipalResolver maps an access token to the identity it was issued for
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, accessToken string) (*core.Principal, error)
}

// Authenticate resolves the bearer token, if any, into a principal. Requests
// without a usable token continue unauthenticated; RequireAuth and
// RequirePermission enforce access per route.
func Authenticate(resolver PrincipalResolver, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("filter")
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader(AuthHeader))
		if token == "" {
			c.Next()
			return
		}

		principal, err := resolver.ResolvePrincipal(c.Request.Context(), token)
		if err != nil {
			logger.Debug("bearer token not accepted",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Request = c.Request.WithContext(core.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// bearerToken strips the Bearer scheme from an Authorization header value
func bearerToken(header string) string {
	const prefix = core.BearerScheme + " "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// CurrentPrincipal returns the principal set by Authenticate
func CurrentPrincipal(c *gin.Context) (*core.Principal, bool) {
	v, ok := c.Get(ContextPrincipalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*core.Principal)
	return p, ok && p != nil
}

// RequireAuth rejects unauthenticated requests with 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c); !ok {
			respondError(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		c.Next()
	}
}

// RequirePermission rejects requests whose principal lacks permission with 403
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		if !p.HasPermission(permission) {
			respondError(c, http.StatusForbidden, msgForbidden)
			return
		}
		c.Next()
	}
}

// RequestLogger logs every request with a request id
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if p, ok := CurrentPrincipal(c); ok {
			fields = append(fields, zap.String("username", p.Username))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}

// CORS builds the cross-origin middleware. A "*" origin allows every origin.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        cfg.MaxAge,
	}

	allowAll := len(cfg.AllowedOrigins) == 0
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}

	return cors.New(c)
}
