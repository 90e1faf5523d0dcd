package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/metrics"
	"github.com/dmitrijs2005/newsletter/internal/server/auth"
	"github.com/dmitrijs2005/newsletter/internal/server/domain"
	"github.com/dmitrijs2005/newsletter/internal/server/flash"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
	"github.com/dmitrijs2005/newsletter/internal/server/throttle"
)

const (
	msgAuthFailed       = "Authentication failed"
	msgUnexpected       = "Something went wrong"
	msgThrottled        = "Too many login attempts"
	msgPasswordMismatch = "Passwords do not match"
	msgWrongCurrent     = "The current password is incorrect"
	msgPasswordChanged  = "Your password has been changed."
	msgLoggedOut        = "You have successfully logged out."
	msgPublished        = "The newsletter issue has been published!"
	msgPublishFailed    = "The newsletter issue could not be published"
)

type handler struct {
	auth          Authenticator
	subscriptions SubscriptionService
	newsletters   NewsletterService
	users         UserDirectory
	messenger     flash.Messenger
	sessions      SessionStrategy
	limiter       throttle.Limiter
	logger        logging.Logger
}

type subscribeForm struct {
	Name  string `form:"name"`
	Email string `form:"email"`
}

func (h *handler) subscribe(c *gin.Context) {
	var f subscribeForm
	if err := c.ShouldBind(&f); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	ns, err := domain.ParseNewSubscriber(f.Name, f.Email)
	if err != nil {
		h.logger.Info(c.Request.Context(), "subscription rejected", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.subscriptions.Subscribe(c.Request.Context(), ns); err != nil {
		h.logger.Error(c.Request.Context(), "subscribe failed", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusOK)
}

func (h *handler) confirm(c *gin.Context) {
	token := c.Query("subscription_token")
	if token == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	err := h.subscriptions.Confirm(c.Request.Context(), token)
	switch {
	case err == nil:
		c.Status(http.StatusOK)
	case errors.Is(err, common.ErrorUnauthorized):
		c.Status(http.StatusUnauthorized)
	default:
		h.logger.Error(c.Request.Context(), "confirm failed", "error", err)
		c.Status(http.StatusInternalServerError)
	}
}

func (h *handler) loginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Message": h.messenger.Take(c)})
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (h *handler) login(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.ClientIP()

	allowed, err := h.limiter.Allow(ctx, key)
	if err != nil {
		h.logger.Warn(ctx, "login throttle unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		metrics.RecordLogin(metrics.LoginThrottled)
		h.redirectWith(c, "/login", msgThrottled)
		return
	}

	var f loginForm
	_ = c.ShouldBind(&f)
	creds := auth.Credentials{Username: f.Username, Password: passwords.NewSecret(f.Password)}

	userID, err := h.auth.Verify(ctx, creds)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			metrics.RecordLogin(metrics.LoginInvalid)
			h.logger.Info(ctx, "login failed", "username", f.Username)
			h.redirectWith(c, "/login", msgAuthFailed)
			return
		}
		metrics.RecordLogin(metrics.LoginError)
		h.logger.Error(ctx, "login error", "error", err)
		h.redirectWith(c, "/login", msgUnexpected)
		return
	}

	if err := h.sessions.Login(c, userID); err != nil {
		metrics.RecordLogin(metrics.LoginError)
		h.logger.Error(ctx, "session start failed", "error", err)
		h.redirectWith(c, "/login", msgUnexpected)
		return
	}
	if err := h.limiter.Reset(ctx, key); err != nil {
		h.logger.Warn(ctx, "login throttle reset failed", "error", err)
	}

	metrics.RecordLogin(metrics.LoginSuccess)
	h.logger.Info(ctx, "login succeeded", "user_id", userID)
	c.Redirect(http.StatusSeeOther, "/admin/dashboard")
}

func (h *handler) redirectWith(c *gin.Context, location, message string) {
	c.Redirect(http.StatusSeeOther, h.messenger.Attach(c, location, message))
}

func (h *handler) dashboard(c *gin.Context) {
	username, err := h.users.Username(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Error(c.Request.Context(), "username lookup failed", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Username": username,
		"Message":  h.messenger.Take(c),
	})
}

func (h *handler) home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", nil)
}

func (h *handler) passwordForm(c *gin.Context) {
	c.HTML(http.StatusOK, "password.html", gin.H{"Message": h.messenger.Take(c)})
}

type passwordForm struct {
	Current  string `form:"password"`
	New      string `form:"new_password"`
	NewCheck string `form:"confirm_password"`
}

func (h *handler) changePassword(c *gin.Context) {
	ctx := c.Request.Context()

	var f passwordForm
	_ = c.ShouldBind(&f)
	current := passwords.NewSecret(f.Current)
	next := passwords.NewSecret(f.New)

	if !next.Equal(passwords.NewSecret(f.NewCheck)) {
		h.redirectWith(c, "/admin/password", msgPasswordMismatch)
		return
	}
	if err := domain.ValidateNewPassword(next); err != nil {
		h.redirectWith(c, "/admin/password", passwordRuleMessage())
		return
	}

	err := h.auth.ChangePassword(ctx, currentUserID(c), current, next)
	switch {
	case err == nil:
		h.redirectWith(c, "/admin/dashboard", msgPasswordChanged)
	case errors.Is(err, common.ErrInvalidCredentials):
		h.redirectWith(c, "/admin/password", msgWrongCurrent)
	default:
		h.logger.Error(ctx, "password change failed", "error", err)
		h.redirectWith(c, "/admin/password", msgUnexpected)
	}
}

func passwordRuleMessage() string {
	return fmt.Sprintf("The new password must be between %d and %d characters long",
		domain.MinPasswordLength, domain.MaxPasswordLength)
}

func (h *handler) logout(c *gin.Context) {
	if err := h.sessions.Logout(c); err != nil {
		h.logger.Error(c.Request.Context(), "logout failed", "error", err)
	}
	h.redirectWith(c, "/login", msgLoggedOut)
}

func (h *handler) newsletterForm(c *gin.Context) {
	c.HTML(http.StatusOK, "newsletters.html", gin.H{"Message": h.messenger.Take(c)})
}

type issueForm struct {
	Title       string `form:"title"`
	HTMLContent string `form:"html_content"`
	TextContent string `form:"text_content"`
}

func (h *handler) publishForm(c *gin.Context) {
	ctx := c.Request.Context()

	var f issueForm
	_ = c.ShouldBind(&f)
	in, err := domain.ParseNewIssue(f.Title, f.HTMLContent, f.TextContent)
	if err != nil {
		h.redirectWith(c, "/admin/newsletters", "The issue needs a title and some content")
		return
	}

	res, err := h.newsletters.Publish(ctx, currentUserID(c), in)
	if err != nil {
		h.logger.Error(ctx, "publish failed", "error", err)
		h.redirectWith(c, "/admin/newsletters", msgPublishFailed)
		return
	}

	h.logger.Info(ctx, "issue published", "issue_id", res.Issue.ID, "sent", res.Report.Sent, "queued", res.Report.Queued, "failed", res.Report.Failed)
	h.redirectWith(c, "/admin/newsletters", msgPublished)
}

type publishRequest struct {
	Title   string `json:"title"`
	Content struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	} `json:"content"`
}

type publishResponse struct {
	IssueID string `json:"issue_id"`
	Sent    int    `json:"sent"`
	Queued  int    `json:"queued"`
	Failed  int    `json:"failed"`
}

// publishBasic authenticates before reading the body.
func (h *handler) publishBasic(c *gin.Context) {
	ctx := c.Request.Context()

	creds, err := auth.BasicCredentials(c.Request)
	if err != nil {
		h.challenge(c)
		return
	}
	userID, err := h.auth.Verify(ctx, creds)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			h.challenge(c)
			return
		}
		h.logger.Error(ctx, "basic auth error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	in, err := domain.ParseNewIssue(req.Title, req.Content.HTML, req.Content.Text)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	res, err := h.newsletters.Publish(ctx, userID, in)
	if err != nil {
		h.logger.Error(ctx, "publish failed", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, publishResponse{
		IssueID: res.Issue.ID,
		Sent:    res.Report.Sent,
		Queued:  res.Report.Queued,
		Failed:  res.Report.Failed,
	})
}

func (h *handler) challenge(c *gin.Context) {
	c.Header("WWW-Authenticate", auth.BasicChallenge())
	c.Status(http.StatusUnauthorized)
}
