// Command migrate applies the embedded goose migrations to Postgres and
// scaffolds new migration files.
//
//	migrate -cmd up|down|status
//	migrate -cmd version -version 20260301090300
//	migrate -cmd create -name add_payment_index
//	migrate -cmd validate [-dir pkg/migrate/migrations]
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"github.com/angelmondragon/toolyard-backend/pkg/bootstrap"
	"github.com/angelmondragon/toolyard-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "on-disk migrations dir for create/validate (default: embedded, or "+migrate.SourceDir+" for create)")
	name := flag.String("name", "", "migration name for -cmd create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd version")
	flag.Parse()

	switch *cmd {
	case "create":
		out := *dir
		if out == "" {
			out = migrate.SourceDir
		}
		path, err := migrate.Create(out, *name, time.Now())
		if err != nil {
			fmt.Fprintln(os.Stderr, "create migration:", err)
			os.Exit(1)
		}
		fmt.Println("created", path)
		return
	case "validate":
		fsys := migrate.Embedded()
		if *dir != "" {
			fsys = os.DirFS(*dir)
		}
		files, err := migrate.Validate(fsys)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid migrations:", err)
			os.Exit(1)
		}
		fmt.Printf("%d migrations ok\n", len(files))
		return
	}

	rt := bootstrap.Start("migrate")
	defer rt.Close()
	ctx := rt.Logger.WithFields(context.Background(), map[string]any{
		"env": rt.Config.App.Env,
		"cmd": *cmd,
	})

	var version int64
	if migrate.Command(*cmd) == migrate.CommandVersion {
		parsed, err := strconv.ParseInt(*target, 10, 64)
		rt.Must(ctx, "target version", err)
		version = parsed
	}

	sqlDB, err := sql.Open("postgres", rt.Config.DB.DSN)
	rt.Must(ctx, "database", err)
	rt.OnClose("database", sqlDB.Close)
	rt.Must(ctx, "database ping", sqlDB.PingContext(ctx))

	runner, err := migrate.NewRunner(sqlDB, migrate.Embedded(), rt.Logger)
	rt.Must(ctx, "migration runner", err)
	rt.Must(ctx, "migrate "+*cmd, runner.Apply(ctx, migrate.Command(*cmd), version))
	rt.Logger.Info(ctx, "migrate finished")
}
