package mid

import (
	"context"
	"errors"
	"net/http"

	"github.com/nilotic/blockchain/business/web/v1/response"
	"github.com/nilotic/blockchain/foundation/web"
	"go.uber.org/zap"
)

// Errors handles errors coming out of the call chain. It detects
// normal application errors which are used to respond to the client
// in a uniform way, and unexpected errors, which are logged but not
// otherwise disclosed.
func Errors(log *zap.SugaredLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v, err := web.GetValues(ctx)
			if err != nil {
				return web.NewShutdownError("web value missing from context")
			}

			if err := handler(ctx, w, r); err != nil {
				log.Errorw("request error", "traceid", v.TraceID, "ERROR", err)

				var fe web.FieldErrors
				switch {
				case errors.As(err, &fe):
					if rerr := web.Respond(ctx, w, response.Response{Error: fe.Error(), Fields: fe.Fields()}, http.StatusBadRequest); rerr != nil {
						return rerr
					}

				case response.IsTrusted(err):
					te := response.GetTrusted(err)
					if rerr := web.Respond(ctx, w, response.Response{Error: te.Error()}, te.Status); rerr != nil {
						return rerr
					}

				default:
					if rerr := web.Respond(ctx, w, response.Response{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError); rerr != nil {
						return rerr
					}
				}

				if web.IsShutdown(err) {
					return err
				}
			}

			return nil
		}

		return h
	}

	return m
}
