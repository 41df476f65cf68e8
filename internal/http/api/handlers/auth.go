package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shaiyaportal/accountd/internal/ratelimit"
	"github.com/shaiyaportal/accountd/internal/reconcile"

	log "github.com/sirupsen/logrus"
)

// AuthHandler exposes the login and post-registration entry points.
type AuthHandler struct {
	engine  *reconcile.Engine
	limiter ratelimit.Limiter
	limit   int
	debug   bool
}

// NewAuthHandler constructs an AuthHandler. limit is the per-IP login
// attempts allowed per second; 0 disables limiting. debug echoes error detail
// in responses and must stay off in production.
func NewAuthHandler(engine *reconcile.Engine, limiter ratelimit.Limiter, limit int, debug bool) *AuthHandler {
	return &AuthHandler{engine: engine, limiter: limiter, limit: limit, debug: debug}
}

// loginRequest defines the request body for game login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a game client and reconciles its game account.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.limiter != nil && h.limit > 0 {
		result, errAllow := h.limiter.Allow(c.Request.Context(), c.ClientIP(), h.limit)
		if errAllow != nil {
			log.WithError(errAllow).Warn("login: rate limiter unavailable, allowing request")
		} else if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many login attempts",
			})
			return
		}
	}

	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "username and password required",
		})
		return
	}

	result, errLogin := h.engine.Login(c.Request.Context(), body.Username, body.Password)
	if errLogin != nil {
		h.writeLoginError(c, errLogin)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user": gin.H{
			"webUserId":     result.WebUserID,
			"gameUserUID":   result.GameUserUID,
			"username":      result.Username,
			"email":         result.Email,
			"isNewGameUser": result.IsNewGameUser,
		},
	})
}

// writeLoginError translates engine errors into login responses.
func (h *AuthHandler) writeLoginError(c *gin.Context, err error) {
	var validationErr *reconcile.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validationErr.Message})
		return
	}
	var authErr *reconcile.AuthError
	if errors.As(err, &authErr) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": authErr.Error()})
		return
	}
	var upstreamErr *reconcile.UpstreamError
	if errors.As(err, &upstreamErr) {
		log.WithError(err).Error("login: upstream failure")
		c.JSON(http.StatusInternalServerError, h.internalErrorBody("Database connection failed", err))
		return
	}
	log.WithError(err).Error("login: unexpected failure")
	c.JSON(http.StatusInternalServerError, h.internalErrorBody("Server error during login", err))
}

// registrationRequest defines the request body for post-registration.
type registrationRequest struct {
	SupabaseUserID string `json:"supabaseUserId"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
}

// PostRegistration provisions accounts after the identity provider has
// created the external identity. Safe to replay.
func (h *AuthHandler) PostRegistration(c *gin.Context) {
	var body registrationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Missing required fields",
		})
		return
	}

	result, errRegister := h.engine.Register(
		c.Request.Context(),
		body.SupabaseUserID,
		body.Username,
		body.Email,
		body.Password,
	)
	if errRegister != nil {
		h.writeRegistrationError(c, errRegister)
		return
	}

	message := "User created successfully"
	if result.AlreadyExisted {
		message = "User already exists"
	}
	out := gin.H{
		"success": true,
		"message": message,
		"userId":  result.WebUserID,
	}
	if result.GameUserUID != nil {
		out["gameUserUid"] = *result.GameUserUID
	}
	c.JSON(http.StatusOK, out)
}

// writeRegistrationError translates engine errors into registration responses.
func (h *AuthHandler) writeRegistrationError(c *gin.Context, err error) {
	var validationErr *reconcile.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validationErr.Message})
		return
	}
	var conflictErr *reconcile.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": conflictErr.Message})
		return
	}
	var upstreamErr *reconcile.UpstreamError
	if errors.As(err, &upstreamErr) {
		log.WithError(err).Error("register: upstream failure")
		c.JSON(http.StatusServiceUnavailable, h.internalErrorBody("Database connection failed", err))
		return
	}
	log.WithError(err).Error("register: unexpected failure")
	c.JSON(http.StatusInternalServerError, h.internalErrorBody("Failed to complete registration", err))
}

// internalErrorBody hides error detail unless the service runs in debug mode.
func (h *AuthHandler) internalErrorBody(message string, err error) gin.H {
	body := gin.H{"success": false, "error": message}
	if h.debug {
		body["details"] = err.Error()
	}
	return body
}
