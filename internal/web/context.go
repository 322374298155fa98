package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/frameview/internal/core"
	appmw "github.com/JonMunkholm/frameview/internal/web/middleware"
)

// withRequestMetadata adds client IP and User-Agent to ctx for load logging.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, appmw.ClientIP(r))
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}
