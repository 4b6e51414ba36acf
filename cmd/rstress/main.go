// Package main wires the command line to the workload engine. Flags come
// straight out of the option registry so the CLI and the operation selector
// always agree on the available tunables.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rstress/internal/core"
	"rstress/internal/grammar"
	"rstress/internal/options"
	"rstress/internal/random"
	"rstress/internal/server"
	"rstress/internal/sqlgen"
	"rstress/internal/workload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options.New()
	var mysqldOptions []string

	cmd := &cobra.Command{
		Use:          "rstress",
		Short:        "Randomized concurrent stress-test engine for MySQL-family servers",
		Long: `rstress synthesizes a random schema, seeds it with bulk data and runs a
configurable mix of concurrent DDL, DML, SELECT and grammar SQL against one
or more endpoints for a bounded duration. Steps share schema state through
a checkpoint file, so a crashing server can be hit again with the same
tables it corrupted.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyFlags(cmd, opts)
			return run(cmd.Context(), opts, mysqldOptions)
		},
	}

	registerFlags(cmd, opts)
	cmd.Flags().StringArrayVar(&mysqldOptions, "mysqld-option", nil,
		"server variable to fuzz: [prob:]name=v1,v2 (repeatable)")
	return cmd
}

// registerFlags declares one cobra flag per registry option, carrying the
// registry defaults so --help tells the truth.
func registerFlags(cmd *cobra.Command, opts *options.Registry) {
	opts.Each(func(o *options.Option) {
		switch o.Kind {
		case options.KindBool:
			cmd.Flags().Bool(o.Name, o.ValueString() == "true", o.Help)
		case options.KindInt:
			def, _ := strconv.Atoi(o.ValueString())
			cmd.Flags().Int(o.Name, def, o.Help)
		case options.KindString:
			cmd.Flags().String(o.Name, o.ValueString(), o.Help)
		}
	})
}

// applyFlags copies changed flag values back into the registry and marks
// them as command-line settings for only-cl-sql / only-cl-ddl.
func applyFlags(cmd *cobra.Command, opts *options.Registry) {
	opts.Each(func(o *options.Option) {
		flag := cmd.Flags().Lookup(o.Name)
		if flag == nil || !flag.Changed {
			return
		}
		if err := o.SetFromString(flag.Value.String()); err != nil {
			// cobra already type-checked the value
			return
		}
		o.FromCL = true
	})
}

func run(ctx context.Context, opts *options.Registry, mysqldOptions []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if path := opts.Str(options.OptionProbFile); path != "" {
		if err := opts.LoadProbFile(path); err != nil {
			return err
		}
	}

	endpoints, err := resolveEndpoints(opts)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return fmt.Errorf("no endpoint with run = true")
	}

	serverOpts, err := resolveServerOptions(opts, mysqldOptions)
	if err != nil {
		return err
	}

	probe := server.NewNode(endpoints[0], nil)
	db, err := sql.Open("mysql", probe.DSN())
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("unable to connect to %s: %w", endpoints[0].Name, err)
	}
	if opts.Bool(options.TestConnection) {
		fmt.Println("connection ok")
		return nil
	}

	info := server.GatherServerInfo(ctx, db)
	info.HasServerOptions = len(serverOpts) > 0
	info.Darwin = runtime.GOOS == "darwin"

	if err := opts.Normalize(info); err != nil {
		return err
	}

	sh := &workload.Shared{
		Opts:      opts,
		Env:       sqlgen.BuildEnv(opts, info),
		Catalog:   core.NewCatalog(),
		ServerOpt: serverOpts,
		Database:  databaseName(opts, endpoints[0]),
		LogDir:    endpoints[0].LogDir,
		Console:   os.Stderr,
	}
	sh.Pool = random.NewPool(sh.StepSeed())

	if opts.Int(options.GrammarSQL) > 0 {
		templates, err := grammar.Load(opts.Str(options.GrammarFile))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		sh.Templates = templates
	}

	metaDir := opts.Str(options.MetadataPath)
	if metaDir == "" {
		metaDir = endpoints[0].LogDir
	}

	step := opts.Int(options.Step)
	if step > 1 && !opts.Bool(options.Prepare) {
		catalog, err := core.Load(core.StepFile(metaDir, step-1))
		if err != nil {
			return err
		}
		sh.Catalog = catalog
		opts.SetInt(options.Tables, catalog.Len())
		fmt.Printf("metadata loaded from %s\n", core.StepFile(metaDir, step-1))
	} else {
		if err := createMetadata(ctx, sh, db); err != nil {
			return err
		}
		fmt.Println("metadata created randomly")
	}
	if sh.Catalog.Len() == 0 && !opts.Bool(options.OnlyTemporary) {
		return fmt.Errorf("no table to work on")
	}
	sh.InitialTables = sh.Catalog.Len()
	sh.StartTime = time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range endpoints {
		node := server.NewNode(ep, sh)
		g.Go(func() error {
			if err := node.Open(gctx); err != nil {
				return err
			}
			defer node.Close()
			return node.StartWork(gctx)
		})
	}
	workErr := g.Wait()

	// the next step should be able to resume even after a failed run
	if err := core.Save(sh.Catalog, core.StepFile(metaDir, step)); err != nil {
		return err
	}
	fmt.Printf("metadata saved to %s\n", core.StepFile(metaDir, step))

	if workErr != nil {
		return workErr
	}
	if sh.Failed.Load() {
		return fmt.Errorf("workload failed, check logs under %s", endpoints[0].LogDir)
	}
	fmt.Println("COMPLETED")
	return nil
}

func resolveEndpoints(opts *options.Registry) ([]server.Endpoint, error) {
	if path := opts.Str(options.ConfigFile); path != "" {
		return server.LoadConfig(path)
	}
	return server.EndpointsFromOptions(opts)
}

func resolveServerOptions(opts *options.Registry, entries []string) ([]workload.ServerOption, error) {
	var out []workload.ServerOption
	if path := opts.Str(options.ServerOptionFile); path != "" {
		fromFile, err := server.LoadServerOptionFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, fromFile...)
	}
	for _, entry := range entries {
		opt, err := server.ParseServerOption(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, opt)
	}
	return out, nil
}

func databaseName(opts *options.Registry, ep server.Endpoint) string {
	if ep.Database != "" {
		return ep.Database
	}
	return opts.Str(options.Database)
}

// createMetadata builds the fresh catalog and the database objects it needs
// through a setup worker on the probe connection.
func createMetadata(ctx context.Context, sh *workload.Shared, db *sql.DB) error {
	runner, err := workload.NewConnRunner(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		_ = runner.Close()
	}()

	w := workload.NewWorker(0, sh, runner, io.Discard, nil)
	if err := w.CreateDatabaseTablespaces(ctx); err != nil {
		return err
	}
	workload.GenerateMetadata(sh, w)
	return nil
}
