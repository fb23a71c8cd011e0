package controllers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/toolyard-backend/api/responses"
	"github.com/angelmondragon/toolyard-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Toolyard-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently. Nil pingers are skipped.
// Any failure is a 503 listing the unreachable dependencies by name.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Toolyard-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			failed []string
			first  error
		)
		var g errgroup.Group
		for name, p := range deps {
			if p == nil {
				continue
			}
			g.Go(func() error {
				if err := p.Ping(ctx); err != nil {
					mu.Lock()
					failed = append(failed, name)
					if first == nil {
						first = err
					}
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()

		if len(failed) > 0 {
			sort.Strings(failed)
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, first, "dependencies unavailable").
				WithDetails(map[string]any{"dependencies": failed}))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
