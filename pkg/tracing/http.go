package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// GinMiddleware starts a server span per request. Probe and scrape
// endpoints are not traced.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(traceable))
}

func traceable(r *http.Request) bool {
	path := r.URL.Path
	return path != "/health" && path != "/metrics" && !strings.HasPrefix(path, "/swagger/")
}
