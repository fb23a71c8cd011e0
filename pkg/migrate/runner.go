package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

// Command is a schema operation understood by Runner.Apply.
type Command string

const (
	CommandUp      Command = "up"
	CommandDown    Command = "down"
	CommandStatus  Command = "status"
	CommandVersion Command = "version"
)

// Runner applies migrations to one Postgres database.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// NewRunner builds a runner over fsys, usually Embedded().
func NewRunner(db *sql.DB, fsys fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if _, err := Validate(fsys); err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Apply runs cmd. target is only read by CommandVersion, which migrates up or
// down until the database sits at that version.
func (r *Runner) Apply(ctx context.Context, cmd Command, target int64) error {
	switch cmd {
	case CommandUp:
		results, err := r.provider.Up(ctx)
		r.report(ctx, results)
		return wrap(cmd, err)
	case CommandDown:
		result, err := r.provider.Down(ctx)
		if result != nil {
			r.report(ctx, []*goose.MigrationResult{result})
		}
		return wrap(cmd, err)
	case CommandStatus:
		return r.status(ctx)
	case CommandVersion:
		return r.migrateTo(ctx, target)
	}
	return fmt.Errorf("unknown migrate command %q", cmd)
}

func (r *Runner) migrateTo(ctx context.Context, target int64) error {
	if target <= 0 {
		return fmt.Errorf("target version required")
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	case current > target:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.report(ctx, results)
	return wrap(CommandVersion, err)
}

func (r *Runner) status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return wrap(CommandStatus, err)
	}
	for _, st := range statuses {
		fields := map[string]any{
			"version": st.Source.Version,
			"file":    st.Source.Path,
			"state":   string(st.State),
		}
		if !st.AppliedAt.IsZero() {
			fields["applied_at"] = st.AppliedAt
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migration status")
	}
	return nil
}

func (r *Runner) report(ctx context.Context, results []*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		entry := r.logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"file":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		})
		if res.Error != nil {
			r.logg.Error(entry, "migration failed", res.Error)
			continue
		}
		r.logg.Info(entry, "migration applied")
	}
}

func wrap(cmd Command, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", cmd, err)
}
