// Package requestid assigns every request an id, reusing a well-formed
// X-Request-ID from the caller.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"clerk/pkg/requestcontext"
)

const Header = "X-Request-ID"

const maxLength = 128

// Middleware stores the request id in the context and echoes it in the
// response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" || len(id) > maxLength {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
