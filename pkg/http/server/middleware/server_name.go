package middleware

import (
	"github.com/valyala/fasthttp"
)

// ServerNameMiddleware stamps every response with the configured server name.
type ServerNameMiddleware struct {
	serverName []byte
}

func NewServerNameMiddleware(name string) ServerNameMiddleware {
	return ServerNameMiddleware{serverName: []byte(name)}
}

func (f ServerNameMiddleware) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		next(ctx)
		ctx.Response.Header.SetServerBytes(f.serverName)
	}
}
