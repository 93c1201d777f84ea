package obs

import "context"

type routeKey struct{}

// ContextWithRoute annotates the context with the matched router pattern so
// downstream middleware can label metrics and spans consistently.
func ContextWithRoute(ctx context.Context, route string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routeKey{}, route)
}

// RouteFromContext returns the matched route pattern, or "" when the request
// never passed through RoutePatternMiddleware.
func RouteFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	route, _ := ctx.Value(routeKey{}).(string)
	return route
}
