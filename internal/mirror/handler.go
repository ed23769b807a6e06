package mirror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"addonlocales/pkg/models"
)

const (
	defaultPageSize = 25
	maxPageSize     = 50
)

// Handler serves a local copy of the registry: the add-on search endpoint
// over a fixture list, and package files from a directory.
type Handler struct {
	Results    []models.SearchResult
	PackageDir string
}

// NewHandler sorts results by descending user count, the only order the
// search endpoint is queried with.
func NewHandler(results []models.SearchResult, packageDir string) *Handler {
	sorted := append([]models.SearchResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AverageDailyUsers > sorted[j].AverageDailyUsers
	})
	return &Handler{Results: sorted, PackageDir: packageDir}
}

// LoadFixture reads a JSON array of search results.
func LoadFixture(path string) ([]models.SearchResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var results []models.SearchResult
	if err := json.Unmarshal(b, &results); err != nil {
		return nil, fmt.Errorf("fixture %s invalid JSON: %w", path, err)
	}
	return results, nil
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.health)
	r.GET("/api/v5/addons/search/", h.search)
	r.GET("/downloads/:file", h.download)
}

// NewEngine returns a gin engine with recovery and the mirror routes.
func NewEngine(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "results": len(h.Results)})
}

func (h *Handler) search(c *gin.Context) {
	page := parseInt(c.Query("page"), 1)
	size := parseInt(c.Query("page_size"), defaultPageSize)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = maxPageSize
	}

	start := (page - 1) * size
	if start > len(h.Results) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
		return
	}
	end := min(start+size, len(h.Results))

	var next, prev *string
	if end < len(h.Results) {
		s := pageURL(c, page+1)
		next = &s
	}
	if page > 1 {
		s := pageURL(c, page-1)
		prev = &s
	}

	results := h.Results[start:end]
	if results == nil {
		results = []models.SearchResult{}
	}
	c.JSON(http.StatusOK, models.SearchPage{
		Count:    len(h.Results),
		Next:     next,
		Previous: prev,
		Results:  results,
	})
}

func (h *Handler) download(c *gin.Context) {
	name := c.Param("file")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad file name"})
		return
	}
	p := filepath.Join(h.PackageDir, name)
	if info, err := os.Stat(p); err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(p)
}

func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
