package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/resume-terminal/internal/apperr"
	"github.com/Zachkp/resume-terminal/internal/terminal"
)

func (s *server) handleIndex(c *gin.Context) {
	p := s.doc.Personal
	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":          p.Name + " | " + p.Title,
		"eyebrow":        HeroEyebrow,
		"tagline":        HeroTagline,
		"personal":       p,
		"summary":        s.doc.Summary,
		"skillGroups":    s.doc.Skills.Groups(),
		"projects":       s.doc.Projects,
		"experience":     s.doc.Experience,
		"education":      s.doc.Education,
		"certifications": s.doc.Certifications,
		"terminalIntro":  TerminalIntro,
		"welcome":        terminal.WelcomeMessage(p.Name),
		"samples":        terminal.SampleQueries,
		"contactIntro":   ContactIntro,
		"contactNotice":  ContactNotice,
		"year":           s.now().Year(),
	})
}

func (s *server) handleWork(c *gin.Context) {
	c.HTML(http.StatusOK, "work-content.html", gin.H{
		"experience": s.doc.Experience,
	})
}

func (s *server) handleEducation(c *gin.Context) {
	c.HTML(http.StatusOK, "education-content.html", gin.H{
		"education":      s.doc.Education,
		"certifications": s.doc.Certifications,
	})
}

// handleProject renders one project by its 1-based position.
func (s *server) handleProject(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 || id > len(s.doc.Projects) {
		s.fail(c, apperr.NotFound("Project not found"))
		return
	}
	c.HTML(http.StatusOK, "project-detail.html", gin.H{
		"id":      id,
		"project": s.doc.Projects[id-1],
	})
}

func (s *server) handleContactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{
		"title":        "Contact Me",
		"inquiryTypes": inquiryTypes,
		"form":         contactForm{InquiryType: defaultInquiryType},
		"notice":       ContactNotice,
	})
}

func (s *server) handlePrivacy(c *gin.Context) {
	c.HTML(http.StatusOK, "privacy.html", gin.H{
		"title":         "Privacy Policy",
		"summary":       PrivacySummary,
		"retentionDays": s.cfg.RetentionDays,
		"owner":         s.doc.Personal.Name,
		"email":         s.doc.Personal.Email,
	})
}

func (s *server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
