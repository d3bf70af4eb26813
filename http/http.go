package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// Shutdown describes how ListenAndServe stops its servers.
type Shutdown struct {
	// How long in-flight requests get to complete once shutdown starts. Zero
	// waits for all of them.
	Timeout time.Duration

	// Called once before the servers shut down, for example to start
	// failing readiness checks.
	Prepare func()
}

// ListenAndServe serves on every server until ctx is done or one of them
// fails, then shuts them all down. It returns the first server failure.
func ListenAndServe(ctx context.Context, shutdown Shutdown, servers ...*http.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	failures := make(chan error, len(servers))
	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s *http.Server) {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("starting server")

			switch err := s.ListenAndServe(); err {
			case nil, http.ErrServerClosed:
				logs.WithTag("addr", s.Addr).Info("stopping server")

			default:
				failures <- errors.New("server stopped").
					WithTag("addr", s.Addr).
					Wrap(err)
				cancel()
			}
		}(s)
	}

	<-ctx.Done()
	if shutdown.Prepare != nil {
		shutdown.Prepare()
	}

	shutdownCtx := context.Background()
	if shutdown.Timeout > 0 {
		var cancelShutdown context.CancelFunc
		shutdownCtx, cancelShutdown = context.WithTimeout(shutdownCtx, shutdown.Timeout)
		defer cancelShutdown()
	}

	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			logs.Warn(errors.New("shutting down the server failed").
				WithTag("addr", s.Addr).
				WithTag("timeout", shutdown.Timeout).
				Wrap(err))
		}
	}

	wg.Wait()
	close(failures)
	return <-failures
}

// NewMetricsPathFormatter returns a path formatter for HTTP metrics that
// keeps the given routes and reports every other path as the catch-all
// route "/". Redirects, bad requests, unknown routes and wrong methods are
// not reported.
func NewMetricsPathFormatter(routes ...string) func(statusCode int, path string) string {
	known := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		known[r] = struct{}{}
	}

	return func(statusCode int, path string) string {
		switch statusCode {
		case http.StatusMovedPermanently,
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusMethodNotAllowed:
			return ""
		}

		if _, ok := known[path]; ok {
			return path
		}
		return "/"
	}
}
