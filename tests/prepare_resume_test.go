// Package tests holds cross-package scenarios. The container-backed tests
// spin up a disposable MySQL and drive a full prepare/resume cycle; they
// skip in -short mode or when no container runtime is available.
package tests

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"rstress/internal/core"
	"rstress/internal/options"
	"rstress/internal/random"
	"rstress/internal/server"
	"rstress/internal/sqlgen"
	"rstress/internal/workload"
)

const mysqlImage = "mysql:8.0.36"

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	container, err := tcmysql.Run(ctx, mysqlImage,
		tcmysql.WithUsername("root"),
		tcmysql.WithPassword("rstress"),
		tcmysql.WithDatabase("seed"),
	)
	if err != nil {
		t.Skipf("could not start mysql container: %v", err)
	}
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "multiStatements=true")
	require.NoError(t, err)
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	require.NoError(t, db.Ping())
	return db
}

func prepareRegistry(t *testing.T, logDir string, step int) *options.Registry {
	t.Helper()
	opts := options.New()
	opts.SetInt(options.Step, step)
	opts.SetInt(options.Tables, 2)
	opts.SetInt(options.Columns, 3)
	opts.SetBool(options.ExactColumns, true)
	opts.SetInt(options.Indexes, 1)
	opts.SetBool(options.ExactIndexes, true)
	opts.SetInt(options.InitialRecords, 4)
	opts.SetBool(options.ExactInitialRecords, true)
	opts.SetBool(options.NoPartition, true)
	opts.SetBool(options.NoFK, true)
	opts.SetBool(options.NoTemporary, true)
	opts.SetBool(options.NoTablespace, true)
	opts.SetBool(options.NoEncryption, true)
	opts.SetBool(options.NoTableCompression, true)
	opts.SetBool(options.NoColumnCompression, true)
	opts.SetInt(options.UndoTablespaces, 0)
	opts.SetStr(options.Database, "stress")
	opts.SetStr(options.LogDir, logDir)
	return opts
}

func newShared(t *testing.T, db *sql.DB, opts *options.Registry) *workload.Shared {
	t.Helper()
	info := server.GatherServerInfo(context.Background(), db)
	require.NoError(t, opts.Normalize(info))

	sh := &workload.Shared{
		Opts:     opts,
		Env:      sqlgen.BuildEnv(opts, info),
		Catalog:  core.NewCatalog(),
		Database: opts.Str(options.Database),
		LogDir:   opts.Str(options.LogDir),
		Console:  io.Discard,
	}
	sh.Pool = random.NewPool(sh.StepSeed())
	sh.StartTime = time.Now()
	return sh
}

func TestFreshPrepareWritesCheckpoint(t *testing.T) {
	db := startMySQL(t)
	ctx := context.Background()
	logDir := t.TempDir()

	opts := prepareRegistry(t, logDir, 1)
	opts.SetBool(options.Prepare, true)
	sh := newShared(t, db, opts)

	runner, err := workload.NewConnRunner(ctx, db)
	require.NoError(t, err)
	defer func() {
		_ = runner.Close()
	}()

	w := workload.NewWorker(0, sh, runner, io.Discard, nil)
	require.NoError(t, w.CreateDatabaseTablespaces(ctx))
	workload.GenerateMetadata(sh, w)
	require.Equal(t, 2, sh.Catalog.Len())
	sh.InitialTables = sh.Catalog.Len()

	_, err = w.Setup(ctx)
	require.NoError(t, err)
	require.False(t, sh.Failed.Load())

	for _, name := range []string{"tt_1", "tt_2"} {
		tbl := sh.Catalog.Find(name)
		require.NotNil(t, tbl, "catalog must hold %s", name)

		var count int
		require.NoError(t, db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM stress.%s", name)).Scan(&count))
		assert.LessOrEqual(t, count, 4)
	}

	path := core.StepFile(logDir, 1)
	require.NoError(t, core.Save(sh.Catalog, path))

	loaded, err := core.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.NotNil(t, loaded.Find("tt_1"))
	assert.NotNil(t, loaded.Find("tt_2"))
}

func TestResumeReloadsIdenticalCatalog(t *testing.T) {
	db := startMySQL(t)
	ctx := context.Background()
	logDir := t.TempDir()

	// step 1: prepare
	opts := prepareRegistry(t, logDir, 1)
	opts.SetBool(options.Prepare, true)
	sh := newShared(t, db, opts)
	runner, err := workload.NewConnRunner(ctx, db)
	require.NoError(t, err)
	w := workload.NewWorker(0, sh, runner, io.Discard, nil)
	require.NoError(t, w.CreateDatabaseTablespaces(ctx))
	workload.GenerateMetadata(sh, w)
	sh.InitialTables = sh.Catalog.Len()
	_, err = w.Setup(ctx)
	require.NoError(t, err)
	_ = runner.Close()

	step1 := core.StepFile(logDir, 1)
	require.NoError(t, core.Save(sh.Catalog, step1))

	// step 2: resume without any operation, then write the next checkpoint
	catalog, err := core.Load(step1)
	require.NoError(t, err)

	step2 := core.StepFile(logDir, 2)
	require.NoError(t, core.Save(catalog, step2))

	first, err := core.Load(step1)
	require.NoError(t, err)
	second, err := core.Load(step2)
	require.NoError(t, err)

	a, err := core.Marshal(first)
	require.NoError(t, err)
	b, err := core.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b), "an idle step preserves the checkpoint")
}

func TestWorkloadSmoke(t *testing.T) {
	db := startMySQL(t)
	ctx := context.Background()
	logDir := t.TempDir()

	opts := prepareRegistry(t, logDir, 1)
	opts.SetInt(options.Seconds, 3)
	opts.SetInt(options.Columns, 4)
	opts.SetInt(options.Tables, 2)
	opts.SetStr(options.IgnoreErrors, "all")
	sh := newShared(t, db, opts)

	runner, err := workload.NewConnRunner(ctx, db)
	require.NoError(t, err)
	defer func() {
		_ = runner.Close()
	}()

	w := workload.NewWorker(0, sh, runner, io.Discard, nil)
	require.NoError(t, w.CreateDatabaseTablespaces(ctx))
	workload.GenerateMetadata(sh, w)
	sh.InitialTables = sh.Catalog.Len()
	_, err = w.Setup(ctx)
	require.NoError(t, err)

	require.NoError(t, w.Run(ctx))
	assert.False(t, sh.Failed.Load())
	assert.Greater(t, sh.PerformedTotal.Load(), uint64(0))

	// the catalog must still be well formed after random mutations
	for _, tbl := range sh.Catalog.Tables() {
		autoInc, pk := 0, 0
		for _, c := range tbl.Columns {
			if c.AutoIncrement {
				autoInc++
			}
			if c.PrimaryKey {
				pk++
			}
		}
		assert.LessOrEqual(t, autoInc, 1)
		assert.LessOrEqual(t, pk, 1)
		for _, idx := range tbl.Indexes {
			for _, ic := range idx.Columns {
				assert.Same(t, tbl.FindColumn(ic.Column.Name), ic.Column)
			}
		}
	}

	require.NoError(t, core.Save(sh.Catalog, core.StepFile(logDir, 1)))
	_, err = core.Load(filepath.Join(logDir, "step_1.dll"))
	assert.NoError(t, err)
}
