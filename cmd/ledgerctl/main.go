package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-ledger/internal/application/alerts"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/bootstrap"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/urfave/cli/v2"
)

// env estado compartido entre Before y las acciones.
type env struct {
	cfg       *config.Config
	log       *logger.Logger
	container *bootstrap.Container
}

func main() {
	e := &env{}
	app := &cli.App{
		Name:  "ledgerctl",
		Usage: "Operación del libro de inventario: migraciones, barrido de alertas, recálculo y reconciliación",
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, App: "ledgerctl", Output: os.Stderr})
			return nil
		},
		After: func(c *cli.Context) error {
			if e.container != nil {
				e.container.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Aplicar (o revertir con --down) las migraciones de PostgreSQL",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "revertir todas las migraciones"},
					&cli.BoolFlag{Name: "version", Usage: "solo mostrar la versión aplicada"},
				},
				Action: e.migrate,
			},
			{
				Name:  "sweep",
				Usage: "Ejecutar el detector de alertas sobre todos los ítems",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tipo", Value: "all", Usage: "stock | precios | all"},
					&cli.BoolFlag{Name: "dry-run", Usage: "solo reportar, sin crear alertas"},
				},
				Before: e.build,
				Action: e.sweep,
			},
			{
				Name:  "recompute-cost",
				Usage: "Recalcular el costo promedio desde el historial completo",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "item-id", Usage: "ítem a recalcular (vacío = todos)"},
					&cli.BoolFlag{Name: "dry-run", Usage: "solo reportar, sin persistir (todos los ítems)"},
				},
				Before: e.build,
				Action: e.recompute,
			},
			{
				Name:  "reconcile",
				Usage: "Comparar existencias con la reproducción del libro",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "item-id", Usage: "ítem a reconciliar (vacío = todos)"},
					&cli.BoolFlag{Name: "apply", Usage: "corregir la proyección cuando difiere"},
				},
				Before: e.build,
				Action: e.reconcile,
			},
			{
				Name:  "token",
				Usage: "Emitir un JWT de servicio (integraciones, pruebas locales)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true, Usage: "user_id (actor)"},
					&cli.StringFlag{Name: "role", Value: jwt.RoleBodeguero, Usage: "admin | bodeguero | auditor"},
				},
				Action: e.token,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (e *env) build(c *cli.Context) error {
	container, err := bootstrap.Build(c.Context, e.cfg, e.log)
	if err != nil {
		return err
	}
	e.container = container
	return nil
}

func (e *env) migrate(c *cli.Context) error {
	url := e.cfg.DB.ConnectionString()
	if c.Bool("version") {
		v, dirty, err := postgres.MigrationVersion(url)
		if err != nil {
			return err
		}
		fmt.Printf("versión %d (dirty=%t)\n", v, dirty)
		return nil
	}
	if c.Bool("down") {
		return postgres.MigrateDown(url)
	}
	if err := postgres.Migrate(url); err != nil {
		return err
	}
	e.log.Info().Msg("migraciones aplicadas")
	return nil
}

func (e *env) sweep(c *cli.Context) error {
	opts, err := alerts.ParseSweepKind(c.String("tipo"), c.Bool("dry-run"))
	if err != nil {
		return err
	}
	rep, err := e.container.Sweeper.Sweep(c.Context, opts)
	if err != nil {
		return err
	}
	return printJSON(dto.ToSweepResponse(rep, opts.DryRun))
}

func (e *env) recompute(c *cli.Context) error {
	if id := c.String("item-id"); id != "" {
		res, err := e.container.Valuation.RecomputeAverageCost(c.Context, id)
		if err != nil {
			return err
		}
		return printJSON(dto.ToRecomputeResponse(res))
	}
	results, err := e.container.Valuation.RecomputeAll(c.Context, c.Bool("dry-run"), e.cfg.Sweep.Concurrency)
	if err != nil {
		return err
	}
	out := make([]dto.RecomputeResponse, 0, len(results))
	for _, r := range results {
		out = append(out, dto.ToRecomputeResponse(r))
	}
	return printJSON(out)
}

func (e *env) reconcile(c *cli.Context) error {
	if id := c.String("item-id"); id != "" {
		res, err := e.container.Valuation.Reconcile(c.Context, id, c.Bool("apply"))
		if err != nil {
			return err
		}
		return printJSON(dto.ToReconcileResponse(res))
	}
	drifted, err := e.container.Valuation.ReconcileAll(c.Context, c.Bool("apply"), e.cfg.Sweep.Concurrency)
	if err != nil {
		return err
	}
	out := make([]dto.ReconcileResponse, 0, len(drifted))
	for _, r := range drifted {
		out = append(out, dto.ToReconcileResponse(r))
	}
	return printJSON(out)
}

func (e *env) token(c *cli.Context) error {
	tok, err := jwt.Generate(e.cfg.JWT.Secret, c.String("user"), c.String("role"), e.cfg.JWT.Issuer, e.cfg.JWT.Expiration)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

