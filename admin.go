// admin.go - privacy-conscious admin dashboard over the analytics store
package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/resume-terminal/internal/analytics"
	"github.com/Zachkp/resume-terminal/internal/apperr"
	"github.com/Zachkp/resume-terminal/internal/config"
)

const (
	adminCookie      = "admin_token"
	adminCookieAge   = 3600 * 24
	devAdminPassword = "admin123"
	adminListLimit   = 200
)

type adminAuth struct {
	token    string
	username string
	password string
}

// newAdminAuth returns nil when no password is configured, except in
// debug mode where the development default is used.
func newAdminAuth(cfg config.AdminConfig, mode string, log *slog.Logger) (*adminAuth, error) {
	password := cfg.Password
	if password == "" {
		if mode != gin.DebugMode {
			log.Info("admin disabled: set ADMIN_PASSWORD to enable /admin")
			return nil, nil
		}
		password = devAdminPassword
		log.Warn("using default admin password, set ADMIN_PASSWORD")
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	log.Info("admin access available at /admin/login")
	if mode == gin.DebugMode {
		log.Debug("admin token (dev only)", "token", token)
	}
	return &adminAuth{token: token, username: cfg.Username, password: password}, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (a *adminAuth) check(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(username), []byte(a.username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(a.password))
	return u&p == 1
}

func (s *server) adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(s.admin.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitorTracking records page views with a hashed client address. Static
// assets, admin pages and machine endpoints are skipped, and so is every
// request that sends DNT: 1.
func (s *server) visitorTracking() gin.HandlerFunc {
	skip := []string{"/static/", "/admin", "/favicon", "/privacy", "/metrics", "/healthz", "/api/", "/terminal/"}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range skip {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		v := analytics.Visit{
			HashedIP:  s.hashIP(c.ClientIP()),
			UserAgent: c.GetHeader("User-Agent"),
			Path:      path,
			Time:      s.now(),
		}
		s.background("record visit", func(ctx context.Context) error {
			return s.store.RecordVisit(ctx, v)
		})
		c.Next()
	}
}

func (s *server) adminError(c *gin.Context, err error) {
	ae := apperr.From(err)
	s.log.Error("admin request failed", "path", c.Request.URL.Path, "err", err)
	c.HTML(ae.Code, "admin-error.html", gin.H{"error": ae.Message})
}

func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		if s.admin.check(c.PostForm("username"), c.PostForm("password")) {
			c.SetSameSite(http.SameSiteStrictMode)
			c.SetCookie(adminCookie, s.admin.token, adminCookieAge, "/admin", "", c.Request.TLS != nil, true)
			s.log.Info("admin login successful", "client", s.hashIP(c.ClientIP()))
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		s.log.Warn("failed admin login attempt", "client", s.hashIP(c.ClientIP()))
		ae := apperr.Unauthorized("Invalid credentials")
		c.HTML(ae.Code, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": ae.Message,
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", c.Request.TLS != nil, true)
		s.log.Info("admin logout", "client", s.hashIP(c.ClientIP()))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin", s.adminRequired())

	admin.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context(), s.now())
		if err != nil {
			s.adminError(c, apperr.New(http.StatusInternalServerError, "Failed to load statistics", err))
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"title":         "Dashboard",
			"stats":         stats,
			"retentionDays": s.cfg.RetentionDays,
		})
	})

	admin.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context(), s.now())
		if err != nil {
			ae := apperr.Internal(err)
			s.log.Error("load stats", "err", err)
			c.JSON(ae.Code, ae)
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	admin.GET("/queries", func(c *gin.Context) {
		queries, err := s.store.RecentQueries(c.Request.Context(), adminListLimit)
		if err != nil {
			s.adminError(c, apperr.New(http.StatusInternalServerError, "Failed to load queries", err))
			return
		}
		c.HTML(http.StatusOK, "admin-queries.html", gin.H{
			"title":   "Terminal Queries",
			"queries": queries,
		})
	})

	admin.GET("/visitors", func(c *gin.Context) {
		visitors, err := s.store.RecentVisitors(c.Request.Context(), adminListLimit)
		if err != nil {
			s.adminError(c, apperr.New(http.StatusInternalServerError, "Failed to load visitors", err))
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"title":    "Visitors",
			"visitors": visitors,
		})
	})

	admin.POST("/privacy/cleanup", func(c *gin.Context) {
		n, err := s.cleanup(c.Request.Context())
		if err != nil {
			ae := apperr.Internal(err)
			c.JSON(ae.Code, ae)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "removed": n})
	})

	admin.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context(), s.now())
		if err != nil {
			ae := apperr.Internal(err)
			s.log.Error("export stats", "err", err)
			c.JSON(ae.Code, ae)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=portfolio-stats.json")
		s.log.Info("admin stats exported", "client", s.hashIP(c.ClientIP()))
		c.JSON(http.StatusOK, stats)
	})
}
