package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(corsMiddleware())

	r.GET("/ping", s.handlePing)

	series := r.Group("/series")
	{
		series.GET("/list", s.handleSeriesList)
		series.GET("/profile", s.handleSeriesProfile)
		series.GET("/chapters", s.handleSeriesChapters)
	}

	chapter := r.Group("/chapter")
	{
		chapter.GET("/content", s.handleChapterContent)
		chapter.GET("/download", s.handleChapterDownload)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Infof("%s %s -> %d (%s)\n",
			c.Request.Method, c.Request.URL.RequestURI(),
			c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
