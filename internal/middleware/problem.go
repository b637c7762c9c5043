package middleware

import (
	"net/http"

	"github.com/go-chi/render"

	apierrors "salespulse/internal/errors"
)

// writeProblem renders an RFC 7807 response for failures raised by the
// middleware chain itself, before any handler runs.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	problem := apierrors.NewProblemDetails(status, problemType, title, detail, r.URL.Path).
		WithExtension("trace_id", GetReqID(r.Context()))
	render.Render(w, r, problem)
}
