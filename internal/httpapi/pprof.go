package httpapi

import (
	hpprof "net/http/pprof"

	"github.com/gin-gonic/gin"
)

// mountPprof serves the runtime profiles under /debug/pprof behind the same
// token as the API. pprof.Index resolves named profiles from the path, so
// the group keeps the canonical prefix.
func (s *Server) mountPprof(r *gin.Engine) {
	g := r.Group("/debug/pprof", s.auth())
	g.GET("/", gin.WrapF(hpprof.Index))
	g.GET("/cmdline", gin.WrapF(hpprof.Cmdline))
	g.GET("/profile", gin.WrapF(hpprof.Profile))
	g.POST("/symbol", gin.WrapF(hpprof.Symbol))
	g.GET("/symbol", gin.WrapF(hpprof.Symbol))
	g.GET("/trace", gin.WrapF(hpprof.Trace))
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		g.GET("/"+name, gin.WrapF(hpprof.Index))
	}
}
