package serverutils

import (
	"encoding/json"
	"errors"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

var ErrWriteResponse = errors.New("error occurred while writing data into *fasthttp.RequestCtx")

var contentTypeJson = []byte("application/json; charset=utf-8")

func Write(b []byte, ctx *fasthttp.RequestCtx) (int, error) {
	n, err := ctx.Write(b)
	if err != nil {
		log.Error().Err(err).Msg("error while writing data into *fasthttp.RequestCtx")
		return 0, ErrWriteResponse
	}
	return n, nil
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(ctx *fasthttp.RequestCtx, status int, v any) error {
	ctx.SetStatusCode(status)
	ctx.Response.Header.SetContentTypeBytes(contentTypeJson)
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		log.Error().Err(err).Msg("error while encoding json into *fasthttp.RequestCtx")
		return ErrWriteResponse
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteError responds with {"error": msg}.
func WriteError(ctx *fasthttp.RequestCtx, status int, msg string) {
	_ = WriteJSON(ctx, status, errorResponse{Error: msg})
}
