package shield

import "net/http"

// MaxBytes returns middleware that caps the request body size for every
// request. Reads past the cap fail with *http.MaxBytesError, which the
// upload handler maps to 413; multipart uploads hit the cap while the
// file part is still streaming, so oversized files never land on disk.
func MaxBytes(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
