package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/smtp"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Zachkp/resume-terminal/internal/analytics"
	"github.com/Zachkp/resume-terminal/internal/apperr"
	"github.com/Zachkp/resume-terminal/internal/config"
	"github.com/Zachkp/resume-terminal/internal/middleware"
	"github.com/Zachkp/resume-terminal/internal/resume"
	"github.com/Zachkp/resume-terminal/internal/sqlengine"
)

const (
	shutdownTimeout   = 10 * time.Second
	backgroundTimeout = 5 * time.Second
	sweepInterval     = 5 * time.Minute
	cleanupInterval   = 24 * time.Hour
)

// analyticsStore is the subset of *analytics.Store the handlers use.
type analyticsStore interface {
	RecordVisit(ctx context.Context, v analytics.Visit) error
	RecordQuery(ctx context.Context, q analytics.QueryEvent) error
	Stats(ctx context.Context, now time.Time) (*analytics.Stats, error)
	RecentQueries(ctx context.Context, limit int) ([]analytics.QueryEvent, error)
	RecentVisitors(ctx context.Context, limit int) ([]analytics.Visit, error)
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type server struct {
	cfg      *config.Config
	log      *slog.Logger
	doc      *resume.Document
	engine   *sqlengine.Engine
	store    analyticsStore
	admin    *adminAuth
	limiter  *middleware.RateLimiter
	validate *validator.Validate
	tmpl     *template.Template
	salt     string
	sendMail sendMailFunc
	now      func() time.Time

	// bg tracks fire-and-forget writes so shutdown can wait for them.
	// bgMu guards bgClosed and every bg.Add.
	bg       sync.WaitGroup
	bgMu     sync.Mutex
	bgClosed bool
}

func newServer(cfg *config.Config, log *slog.Logger, doc *resume.Document, store analyticsStore) (*server, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	salt, err := generateToken()
	if err != nil {
		return nil, err
	}
	admin, err := newAdminAuth(cfg.Admin, cfg.Mode, log)
	if err != nil {
		return nil, err
	}

	log.Info("privacy: visitor tracking enabled with hashed IP addresses", "retention_days", cfg.RetentionDays)

	return &server{
		cfg:      cfg,
		log:      log,
		doc:      doc,
		engine:   sqlengine.New(doc),
		store:    store,
		admin:    admin,
		limiter:  middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, 15*time.Minute),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tmpl:     tmpl,
		salt:     salt,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}, nil
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLog(s.log), middleware.Metrics(), s.visitorTracking())
	r.SetHTMLTemplate(s.tmpl)
	r.StaticFS("/static", http.FS(staticFiles()))

	r.GET("/", s.handleIndex)
	r.GET("/work-content", s.handleWork)
	r.GET("/education-content", s.handleEducation)
	r.GET("/projects/:id", s.handleProject)
	r.GET("/contact-form", s.handleContactForm)
	r.POST("/contact", s.handleContact)
	r.GET("/privacy", s.handlePrivacy)

	limited := r.Group("/", s.limiter.Handler())
	limited.POST("/terminal/query", s.handleTerminalQuery)
	limited.POST("/api/query", s.handleAPIQuery)

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if s.admin != nil {
		s.setupAdminRoutes(r)
	}

	r.NoRoute(func(c *gin.Context) {
		s.fail(c, apperr.NotFound("Page not found"))
	})
	return r
}

// fail renders err as an error fragment with its status code.
func (s *server) fail(c *gin.Context, err error) {
	ae := apperr.From(err)
	if ae.Code >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.HTML(ae.Code, "error.html", gin.H{
		"code":    ae.Code,
		"message": ae.Message,
	})
}

// background runs fn outside the request with its own timeout. Work
// submitted after stopBackground is dropped.
func (s *server) background(what string, fn func(ctx context.Context) error) {
	s.bgMu.Lock()
	if s.bgClosed {
		s.bgMu.Unlock()
		s.log.Debug(what+" skipped: shutting down")
		return
	}
	s.bg.Add(1)
	s.bgMu.Unlock()

	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.log.Warn(what+" failed", "err", err)
		}
	}()
}

// stopBackground refuses new background work and waits for what is
// already running.
func (s *server) stopBackground() {
	s.bgMu.Lock()
	s.bgClosed = true
	s.bgMu.Unlock()
	s.bg.Wait()
}

func (s *server) hashIP(ip string) string {
	return analytics.HashIP(ip, s.salt)
}

// run serves until ctx is cancelled, then shuts down gracefully.
func (s *server) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server listening", "addr", srv.Addr, "mode", s.cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.stopBackground()
		return err
	})
	g.Go(func() error {
		s.maintain(ctx)
		return nil
	})
	return g.Wait()
}

// maintain runs the periodic privacy cleanup and rate limiter sweep.
func (s *server) maintain(ctx context.Context) {
	_, _ = s.cleanup(ctx)

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()
	retention := time.NewTicker(cleanupInterval)
	defer retention.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			if n := s.limiter.Sweep(); n > 0 {
				s.log.Debug("rate limiter swept", "removed", n)
			}
		case <-retention.C:
			_, _ = s.cleanup(ctx)
		}
	}
}

// cleanup removes analytics older than the retention period.
func (s *server) cleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)
	n, err := s.store.Cleanup(ctx, cutoff)
	if err != nil {
		s.log.Error("privacy cleanup failed", "err", err)
		return 0, err
	}
	if n > 0 {
		s.log.Info("privacy cleanup", "removed", n, "older_than", cutoff.Format(time.DateOnly))
	}
	return n, nil
}
