package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/sirupsen/logrus"
)

// Errors turns a handler error into a response. Errors carrying a response
// (see weberr) are answered with it; anything else becomes a generic 500 so
// internals never reach the client.
func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			fields := logrus.Fields{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			body, code, ok := weberr.Response(err)
			switch {
			case !ok || code >= http.StatusInternalServerError:
				log.WithFields(fields).Error("ERROR")
			default:
				log.WithFields(fields).Warn("request rejected")
			}

			if ok {
				return web.Respond(ctx, w, body, code)
			}

			er := weberr.ErrorResponse{
				Error: "internal processing exception",
			}
			return web.Respond(ctx, w, er, http.StatusInternalServerError)
		}
		return h
	}
	return m
}
