package mid

import (
	"context"
	"expvar"
	"net/http"
	"runtime"

	"github.com/nilotic/blockchain/foundation/web"
)

// m holds the process-wide metrics exposed at /debug/vars.
var m = struct {
	req   *expvar.Int
	goroutines *expvar.Int
	errors     *expvar.Int
}{
	req:        expvar.NewInt("requests"),
	goroutines: expvar.NewInt("goroutines"),
	errors:     expvar.NewInt("errors"),
}

// Metrics updates program counters using the expvar package.
func Metrics() web.Middleware {
	mw := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)

			m.req.Add(1)

			if m.req.Value()%1000 == 0 {
				m.goroutines.Set(int64(runtime.NumGoroutine()))
			}

			if err != nil {
				m.errors.Add(1)
			}

			return err
		}

		return h
	}

	return mw
}
