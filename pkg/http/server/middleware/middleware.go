package middleware

import "github.com/valyala/fasthttp"

// HttpMiddleware wraps a request handler.
type HttpMiddleware interface {
	Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler
}
