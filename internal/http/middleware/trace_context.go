package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-authoring/internal/platform/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"

	maxIDLen = 128
)

// AttachTraceContext stores trace and request ids on the request context and
// echoes them back. The active span's trace id wins over a client-supplied one.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := headerID(c, HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		traceID := ""
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = headerID(c, HeaderTraceID)
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(HeaderTraceID, traceID)
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Next()
	}
}

func headerID(c *gin.Context, name string) string {
	v := strings.TrimSpace(c.GetHeader(name))
	if len(v) > maxIDLen {
		return ""
	}
	return v
}
