package web

// Middleware is a function designed to run some code before and/or
// after another Handler, returning a new Handler wrapping the one
// passed in.
type Middleware func(Handler) Handler

// wrapMiddleware creates a new handler by wrapping middleware around
// a final handler. The middlewares are executed in the order they are
// passed in, since each middleware is wrapping the next one around
// the final handler.
func wrapMiddleware(mw []Middleware, handler Handler) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h := mw[i]
		if h != nil {
			handler = h(handler)
		}
	}

	return handler
}
