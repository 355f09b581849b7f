package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/logger"
	"github.com/agenthands/ambridge/internal/store"
)

const (
	requestIDHeader = "X-Request-ID"

	defaultPageSize    = 10
	maxPageSize        = 100
	defaultFamilyDepth = 3
	maxFamilyDepth     = 6
)

type Server struct {
	Store store.Store
	log   *logger.Logger
}

func NewServer(s store.Store, log *logger.Logger) *Server {
	return &Server{Store: s, log: logger.OrNop(log)}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)
	r.GET("/episodes/:date", s.EpisodeByDate)
	r.GET("/characters/:name", s.CharacterProfile)
	r.GET("/characters/:name/family", s.FamilyTree)
	r.GET("/characters/:name/timeline", s.CharacterTimeline)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) EpisodeByDate(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	view, err := s.Store.EpisodeByDate(c.Request.Context(), date)
	if err != nil {
		s.log.Error("failed to load episode", "date", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load episode"})
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no episode on that date"})
		return
	}

	c.JSON(http.StatusOK, view)
}

// timelineQuery holds the paging parameters of the timeline endpoint.
type timelineQuery struct {
	page     int
	pageSize int
	sort     string
}

func parseTimelineQuery(c *gin.Context) (timelineQuery, bool) {
	q := timelineQuery{page: 1, pageSize: defaultPageSize, sort: "desc"}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, false
		}
		q.page = n
	}
	if v := c.Query("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return q, false
		}
		q.pageSize = n
	}
	switch v := strings.ToLower(c.DefaultQuery("sort", "desc")); v {
	case "asc", "desc":
		q.sort = v
	default:
		return q, false
	}
	return q, true
}

// CharacterTimeline pages through the scenes a character appears in, newest
// first unless sort=asc.
func (s *Server) CharacterTimeline(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "character name required"})
		return
	}
	q, ok := parseTimelineQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page and page_size must be positive, sort asc or desc"})
		return
	}

	scenes, err := s.Store.CharacterTimeline(c.Request.Context(), name)
	if err != nil {
		s.log.Error("failed to load timeline", "character", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load timeline"})
		return
	}
	if q.sort == "asc" {
		sort.SliceStable(scenes, func(i, j int) bool {
			if scenes[i].Date != scenes[j].Date {
				return scenes[i].Date < scenes[j].Date
			}
			return scenes[i].SceneID < scenes[j].SceneID
		})
	}

	total := len(scenes)
	start := min((q.page-1)*q.pageSize, total)
	end := min(start+q.pageSize, total)
	page := append([]model.SceneView{}, scenes[start:end]...)

	c.JSON(http.StatusOK, gin.H{
		"character": name,
		"total":     total,
		"page":      q.page,
		"page_size": q.pageSize,
		"sort":      q.sort,
		"scenes":    page,
	})
}

// CharacterProfile returns the character with its relations and residences.
func (s *Server) CharacterProfile(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	g, err := s.Store.LoadSnapshot(c.Request.Context(), []string{})
	if err != nil {
		s.log.Error("failed to load cast", "character", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load character"})
		return
	}
	char, ok := g.Character(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown character"})
		return
	}

	profile := model.CharacterProfile{
		Character:  *char,
		Relations:  g.RelationsOf(name),
		Residences: g.Residences(name),
	}
	if profile.Relations == nil {
		profile.Relations = []model.Relation{}
	}
	if profile.Residences == nil {
		profile.Residences = []model.Residence{}
	}
	c.JSON(http.StatusOK, profile)
}

// FamilyTree returns the relatives within ?depth= CHILD_OF or partner hops.
func (s *Server) FamilyTree(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	depth := defaultFamilyDepth
	if v := c.Query("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxFamilyDepth {
			c.JSON(http.StatusBadRequest, gin.H{"error": "depth must be between 1 and " + strconv.Itoa(maxFamilyDepth)})
			return
		}
		depth = n
	}

	g, err := s.Store.LoadSnapshot(c.Request.Context(), []string{})
	if err != nil {
		s.log.Error("failed to load cast", "character", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load family"})
		return
	}
	members := g.Family(name, depth)
	if members == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown character"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": name, "members": members})
}
