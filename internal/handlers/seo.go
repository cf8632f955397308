package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"turtlecrossing/internal/models"
)

const sitemapStoryLimit = 500

type SEOHandler struct {
	db      *gorm.DB
	clock   clockwork.Clock
	siteURL string
}

func NewSEOHandler(db *gorm.DB, clock clockwork.Clock, siteURL string) *SEOHandler {
	return &SEOHandler{db: db, clock: clock, siteURL: strings.TrimRight(siteURL, "/")}
}

func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /admin/
Disallow: /login
Disallow: /signup
Disallow: /submit
Disallow: /vote/

Sitemap: %s/sitemap.xml
`, h.siteURL)
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// SitemapXML lists the listing pages and the latest published stories.
// Newer stories get a higher priority.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	now := h.clock.Now()
	today := now.Format("2006-01-02")
	set := urlset{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: h.siteURL + "/", LastMod: today, ChangeFreq: "hourly", Priority: 1.0},
			{Loc: h.siteURL + "/new", LastMod: today, ChangeFreq: "hourly", Priority: 0.9},
		},
	}

	var stories []models.Story
	err := h.db.WithContext(c.Request.Context()).
		Where("published = ?", true).
		Order("submitted_at DESC").
		Limit(sitemapStoryLimit).
		Find(&stories).Error
	if err != nil {
		abortWithError(c, err)
		return
	}
	for _, s := range stories {
		u := sitemapURL{
			Loc:        fmt.Sprintf("%s/s/%d", h.siteURL, s.ID),
			LastMod:    s.UpdatedAt.Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   0.6,
		}
		switch days := now.Sub(s.SubmittedAt).Hours() / 24; {
		case days < 7:
			u.ChangeFreq, u.Priority = "daily", 0.8
		case days < 30:
			u.Priority = 0.7
		}
		set.URLs = append(set.URLs, u)
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), out...))
}
