package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"agridoctor-back/internal/apperrors"
	"agridoctor-back/internal/auth"
	"agridoctor-back/internal/cache"
	"agridoctor-back/internal/database"
	"agridoctor-back/internal/middleware"
	"agridoctor-back/internal/models"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        models.User `json:"user"`
}

// LoginLimiter locks an email out after repeated failed logins.
type LoginLimiter struct {
	Store       cache.LockoutStore
	MaxAttempts int
	Window      time.Duration
}

// CookieConfig controls the auth cookie set on login.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func Register(store database.Store, tokens *auth.TokenService, cookie CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		ctx := c.Request.Context()
		req.Email = normalizeEmail(req.Email)
		req.Username = strings.TrimSpace(req.Username)

		if _, err := store.GetUserByEmail(ctx, req.Email); err == nil {
			respondError(c, apperrors.Conflict("Email already registered"))
			return
		} else if !errors.Is(err, database.ErrNotFound) {
			respondError(c, apperrors.Internal("Failed to check user", err))
			return
		}
		if _, err := store.GetUserByUsername(ctx, req.Username); err == nil {
			respondError(c, apperrors.Conflict("Username already taken"))
			return
		} else if !errors.Is(err, database.ErrNotFound) {
			respondError(c, apperrors.Internal("Failed to check user", err))
			return
		}

		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(c, apperrors.Internal("Failed to hash password", err))
			return
		}

		user := models.User{
			Email:          req.Email,
			Username:       req.Username,
			FullName:       strings.TrimSpace(req.FullName),
			HashedPassword: hashed,
			IsActive:       true,
			CreatedAt:      time.Now().UTC(),
		}
		if err := store.CreateUser(ctx, &user); err != nil {
			if errors.Is(err, database.ErrConflict) {
				respondError(c, apperrors.Conflict("Email or username already registered"))
				return
			}
			respondError(c, apperrors.Internal("Failed to create user", err))
			return
		}

		issueToken(c, tokens, cookie, http.StatusCreated, user)
	}
}

func Login(store database.Store, tokens *auth.TokenService, limiter *LoginLimiter, cookie CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		ctx := c.Request.Context()
		email := normalizeEmail(req.Email)

		if limiter.locked(c, email) {
			respondError(c, apperrors.TooManyAttempts("Too many failed login attempts. Try again later."))
			return
		}

		user, err := store.GetUserByEmail(ctx, email)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			respondError(c, apperrors.Internal("Failed to load user", err))
			return
		}
		if user == nil || !user.IsActive || !auth.CheckPassword(user.HashedPassword, req.Password) {
			limiter.fail(c, email)
			respondError(c, apperrors.Unauthorized("Incorrect email or password"))
			return
		}

		limiter.reset(c, email)
		issueToken(c, tokens, cookie, http.StatusOK, *user)
	}
}

func issueToken(c *gin.Context, tokens *auth.TokenService, cookie CookieConfig, status int, user models.User) {
	token, err := tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		respondError(c, apperrors.Internal("Failed to generate token", err))
		return
	}

	maxAge := cookie.MaxAge
	if maxAge <= 0 {
		maxAge = tokens.TTL()
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookie, token, int(maxAge.Seconds()), "/", "", cookie.Secure, true)

	c.JSON(status, AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

func GetProfile(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := store.GetUserByID(c.Request.Context(), c.GetString(middleware.ContextUserID))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(c, apperrors.NotFound("User not found"))
				return
			}
			respondError(c, apperrors.Internal("Failed to load user", err))
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func Logout(cookie CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.AuthCookie, "", -1, "/", "", cookie.Secure, true)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// locked reports whether key is currently locked out. A nil limiter or a failing
// lockout store never blocks a login.
func (l *LoginLimiter) locked(c *gin.Context, key string) bool {
	if l == nil || l.Store == nil {
		return false
	}
	st, err := l.Store.Get(c.Request.Context(), key)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "lockout lookup failed", "error", err)
		return false
	}
	return st.Locked(time.Now())
}

func (l *LoginLimiter) fail(c *gin.Context, key string) {
	if l == nil || l.Store == nil || l.MaxAttempts <= 0 {
		return
	}
	st, err := l.Store.RecordFailure(c.Request.Context(), key, time.Now(), l.MaxAttempts, l.Window)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "failed to record login failure", "error", err)
		return
	}
	if st.LockedUntil != nil {
		slog.WarnContext(c.Request.Context(), "login locked", "attempts", st.FailedCount, "until", *st.LockedUntil)
	}
}

func (l *LoginLimiter) reset(c *gin.Context, key string) {
	if l == nil || l.Store == nil {
		return
	}
	if err := l.Store.Clear(c.Request.Context(), key); err != nil {
		slog.WarnContext(c.Request.Context(), "failed to clear lockout", "error", err)
	}
}
