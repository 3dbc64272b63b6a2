// Package health implements the liveness and readiness endpoints.
//
// /healthz answers 200 whenever the process serves HTTP at all. /readyz
// consults the registered [Checker]s and answers 200 only when every one
// of them passes, so orchestrators can route traffic elsewhere while a
// dependency is down. Both reply with a JSON body carrying a top-level
// "status" of "ok" or "fail"; readiness adds a "checks" map with one
// entry per checker.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker couples a probe function with the name it reports under. Check
// returns nil for healthy and an error describing the failure otherwise;
// it must honour ctx cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// report is the response body shape shared by both endpoints.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the probe endpoints. The checker set is fixed at
// construction; the handler itself is stateless and safe for concurrent
// requests.
type Handler struct {
	checkers []Checker
}

// New returns a Handler that runs the given checkers on every /readyz
// request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz answers liveness: a process that reaches this handler is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "ok"})
}

// Readyz answers readiness. All checkers run concurrently, each under its
// own [checkTimeout], so one stalled dependency cannot hide the state of
// the others.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	outcomes := make([]error, len(h.checkers))

	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			outcomes[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	rep := report{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	code := http.StatusOK
	for i, c := range h.checkers {
		if err := outcomes[i]; err != nil {
			rep.Checks[c.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			code = http.StatusServiceUnavailable
		} else {
			rep.Checks[c.Name] = "ok"
		}
	}

	respond(w, code, rep)
}

// Register mounts both probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func respond(w http.ResponseWriter, code int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
