package httpapi

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/newsletter/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// NewRouter wires middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	h := &handler{
		auth:          d.Auth,
		subscriptions: d.Subscriptions,
		newsletters:   d.Newsletters,
		users:         d.Users,
		messenger:     d.Messenger,
		sessions:      d.Sessions,
		limiter:       d.Limiter,
		logger:        d.Logger.With("module", "http"),
	}

	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	r.SetHTMLTemplate(templates)

	r.Use(correlationMiddleware())
	r.Use(recoveryMiddleware(h.logger))
	r.Use(requestLogger(h.logger))
	r.Use(metrics.GinMiddleware())
	if mw := d.Sessions.Middleware(); mw != nil {
		r.Use(mw)
	}

	r.GET("/", h.home)
	r.GET("/health_check", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/subscriptions", h.subscribe)
	r.GET("/subscriptions/confirm", h.confirm)

	r.GET("/login", h.loginForm)
	r.POST("/login", h.login)

	r.POST("/newsletters", h.publishBasic)

	admin := r.Group("/admin", h.requireLogin)
	admin.GET("/dashboard", h.dashboard)
	admin.GET("/password", h.passwordForm)
	admin.POST("/password", h.changePassword)
	admin.POST("/logout", h.logout)
	admin.GET("/newsletters", h.newsletterForm)
	admin.POST("/newsletters", h.publishForm)

	return r
}
