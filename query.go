package main

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Zachkp/resume-terminal/internal/analytics"
	"github.com/Zachkp/resume-terminal/internal/apperr"
	"github.com/Zachkp/resume-terminal/internal/metrics"
	"github.com/Zachkp/resume-terminal/internal/sqlengine"
)

const (
	sessionCookie  = "terminal_session"
	maxQueryLength = 2000
)

type queryRequest struct {
	Query string `json:"query"`
}

// handleTerminalQuery evaluates the form field "query" and returns one
// terminal entry fragment.
func (s *server) handleTerminalQuery(c *gin.Context) {
	query := c.PostForm("query")
	if utf8.RuneCountInString(query) > maxQueryLength {
		c.HTML(http.StatusOK, "terminal-entry.html", gin.H{
			"query":  truncate(query, 80),
			"result": tooLong(),
		})
		return
	}
	res := s.evaluate(c, query)
	c.HTML(http.StatusOK, "terminal-entry.html", gin.H{
		"query":  strings.TrimSpace(query),
		"result": res,
	})
}

// handleAPIQuery evaluates {"query": "..."} and returns the result as
// JSON. Evaluation failures are still 200; only a bad body is 400.
func (s *server) handleAPIQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ae := apperr.BadRequest("request body must be a JSON object with a \"query\" string")
		c.JSON(ae.Code, ae)
		return
	}
	if utf8.RuneCountInString(req.Query) > maxQueryLength {
		c.JSON(http.StatusOK, tooLong())
		return
	}
	c.JSON(http.StatusOK, s.evaluate(c, req.Query))
}

func tooLong() sqlengine.Result {
	return sqlengine.Result{
		Data:    []sqlengine.Record{},
		Columns: []string{},
		Message: "Query too long",
	}
}

// evaluate runs query, records metrics and, unless the client opted out
// with DNT, stores the query with the hashed client address.
func (s *server) evaluate(c *gin.Context, query string) sqlengine.Result {
	start := time.Now()
	res := s.engine.Evaluate(query)
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	kind := sqlengine.Classify(query).Kind.String()
	metrics.QueriesTotal.WithLabelValues(kind, metrics.Outcome(res.Success)).Inc()

	if c.GetHeader("DNT") != "1" {
		ev := analytics.QueryEvent{
			HashedIP:  s.hashIP(c.ClientIP()),
			SessionID: s.sessionID(c),
			Query:     strings.TrimSpace(query),
			Kind:      kind,
			Success:   res.Success,
			Rows:      len(res.Data),
			Time:      s.now(),
		}
		s.background("record query", func(ctx context.Context) error {
			return s.store.RecordQuery(ctx, ev)
		})
	}
	return res
}

// sessionID returns the terminal session cookie, issuing one if needed.
func (s *server) sessionID(c *gin.Context) string {
	if v, err := c.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(v); err == nil {
			return v
		}
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, 0, "/", "", c.Request.TLS != nil, true)
	return id
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
