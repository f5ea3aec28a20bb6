package controller

import "github.com/fasthttp/router"

// HttpController attaches its routes to the shared router.
type HttpController interface {
	AddRoute(router *router.Router)
}
