package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/server/auth"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

// SessionStrategy establishes and reads the admin login session.
type SessionStrategy interface {
	// Middleware must run before handlers that use the session. It may be nil.
	Middleware() gin.HandlerFunc
	Login(c *gin.Context, userID string) error
	// UserID returns common.ErrorUnauthorized when there is no valid session.
	UserID(c *gin.Context) (string, error)
	Logout(c *gin.Context) error
}

const (
	sessionName   = "newsletter_session"
	sessionUserID = "user_id"
	tokenCookie   = "newsletter_token"
)

// CookieSession keeps the user id in a signed gin-contrib/sessions cookie.
type CookieSession struct {
	store sessions.Store
}

func NewCookieSession(secret passwords.Secret, ttl time.Duration, secure bool) *CookieSession {
	store := cookie.NewStore(secret.Bytes())
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return &CookieSession{store: store}
}

func (s *CookieSession) Middleware() gin.HandlerFunc {
	return sessions.Sessions(sessionName, s.store)
}

func (s *CookieSession) Login(c *gin.Context, userID string) error {
	sess := sessions.Default(c)
	// a fresh session on login
	sess.Clear()
	sess.Set(sessionUserID, userID)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("%w: session save: %w", common.ErrorInternal, err)
	}
	return nil
}

func (s *CookieSession) UserID(c *gin.Context) (string, error) {
	id, _ := sessions.Default(c).Get(sessionUserID).(string)
	if id == "" {
		return "", common.ErrorUnauthorized
	}
	return id, nil
}

func (s *CookieSession) Logout(c *gin.Context) error {
	// the session itself survives so a flash can ride on it
	sess := sessions.Default(c)
	sess.Delete(sessionUserID)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("%w: session save: %w", common.ErrorInternal, err)
	}
	return nil
}

// TokenSession keeps an HS256 JWT in an HttpOnly cookie; the server holds
// no session state.
type TokenSession struct {
	secret passwords.Secret
	ttl    time.Duration
	secure bool
}

func NewTokenSession(secret passwords.Secret, ttl time.Duration, secure bool) *TokenSession {
	return &TokenSession{secret: secret, ttl: ttl, secure: secure}
}

func (s *TokenSession) Middleware() gin.HandlerFunc { return nil }

func (s *TokenSession) Login(c *gin.Context, userID string) error {
	token, err := auth.GenerateToken(userID, s.secret.Bytes(), s.ttl)
	if err != nil {
		return fmt.Errorf("%w: token: %w", common.ErrorInternal, err)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, token, int(s.ttl.Seconds()), "/", "", s.secure, true)
	return nil
}

func (s *TokenSession) UserID(c *gin.Context) (string, error) {
	token, err := c.Cookie(tokenCookie)
	if err != nil || token == "" {
		return "", common.ErrorUnauthorized
	}
	id, err := auth.GetUserIDFromToken(token, s.secret.Bytes())
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrInvalidToken) {
			return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
		}
		return "", err
	}
	return id, nil
}

func (s *TokenSession) Logout(c *gin.Context) error {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", s.secure, true)
	return nil
}
