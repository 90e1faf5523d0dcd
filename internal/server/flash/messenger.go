package flash

import (
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

// Messenger passes a message from a POST handler to the page it redirects
// to. Take never fails the page: an unreadable message is dropped.
type Messenger interface {
	// Attach stores message and returns the location to redirect to.
	Attach(c *gin.Context, location, message string) string
	// Take returns the pending message for this page, or "".
	Take(c *gin.Context) string
}

// SignedMessenger keeps the message in the redirect query, tagged with an
// HMAC so it cannot be forged into the page.
type SignedMessenger struct {
	secret passwords.Secret
	logger logging.Logger
}

func NewSignedMessenger(secret passwords.Secret, logger logging.Logger) *SignedMessenger {
	return &SignedMessenger{secret: secret, logger: logger.With("module", "flash")}
}

func (m *SignedMessenger) Attach(c *gin.Context, location, message string) string {
	return location + "?" + Sign(message, m.secret)
}

func (m *SignedMessenger) Take(c *gin.Context) string {
	raw := c.Request.URL.RawQuery
	if raw == "" {
		return ""
	}
	q, _ := url.ParseQuery(raw)
	if !q.Has(messageKey) && !q.Has(tagKey) {
		return ""
	}

	msg, err := Verify(raw, m.secret)
	if err != nil {
		m.logger.Warn(c.Request.Context(), "flash message rejected", "path", c.Request.URL.Path, "error", err)
		return ""
	}
	return msg
}

// SessionMessenger keeps the message in the session as a flash. It needs
// the sessions middleware.
type SessionMessenger struct {
	logger logging.Logger
}

func NewSessionMessenger(logger logging.Logger) *SessionMessenger {
	return &SessionMessenger{logger: logger.With("module", "flash")}
}

func (m *SessionMessenger) Attach(c *gin.Context, location, message string) string {
	s := sessions.Default(c)
	s.AddFlash(message)
	if err := s.Save(); err != nil {
		m.logger.Warn(c.Request.Context(), "flash save failed", "error", err)
	}
	return location
}

func (m *SessionMessenger) Take(c *gin.Context) string {
	s := sessions.Default(c)
	flashes := s.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	if err := s.Save(); err != nil {
		m.logger.Warn(c.Request.Context(), "flash save failed", "error", err)
	}
	msg, _ := flashes[0].(string)
	return msg
}
