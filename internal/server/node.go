package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"rstress/internal/options"
	"rstress/internal/workload"
)

// logFileMaxMB caps one log file before lumberjack rolls it.
const logFileMaxMB = 256

// Node is one endpoint: its pool, its general log, and the worker threads
// it runs.
type Node struct {
	Params Endpoint
	Shared *workload.Shared

	db         *sql.DB
	generalLog io.WriteCloser
	closers    []io.Closer
}

// NewNode wires a node to the shared run state.
func NewNode(params Endpoint, sh *workload.Shared) *Node {
	return &Node{Params: params, Shared: sh}
}

// DSN renders the endpoint's connection string.
func (n *Node) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = n.Params.User
	cfg.Passwd = n.Params.Password
	cfg.DBName = n.Params.Database
	if n.Params.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = n.Params.Socket
	} else {
		cfg.Net = "tcp"
		cfg.Addr = n.Params.Address + ":" + strconv.Itoa(n.Params.Port)
	}
	cfg.MultiStatements = true
	if n.Params.MaxPacketSize > 0 {
		cfg.MaxAllowedPacket = n.Params.MaxPacketSize
	}
	return cfg.FormatDSN()
}

// Open dials the endpoint and creates the node's log files.
func (n *Node) Open(ctx context.Context) error {
	if err := os.MkdirAll(n.Params.LogDir, 0o755); err != nil {
		return fmt.Errorf("could not create log dir: %w", err)
	}
	step := n.Shared.Opts.Int(options.Step)
	logName := filepath.Join(n.Params.LogDir,
		n.Params.Name+"_ddl_step_"+strconv.Itoa(step)+".log")
	n.generalLog = &lumberjack.Logger{Filename: logName, MaxSize: logFileMaxMB}
	n.Shared.AttachDDLLog(n.generalLog)

	db, err := sql.Open("mysql", n.DSN())
	if err != nil {
		return fmt.Errorf("failed to open connection pool: %w", err)
	}
	// every worker pins one dedicated connection
	db.SetMaxOpenConns(n.Params.Threads + 2)
	db.SetMaxIdleConns(n.Params.Threads + 2)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", n.Params.Name, err)
	}
	n.db = db
	return nil
}

// DB exposes the pool for setup work.
func (n *Node) DB() *sql.DB { return n.db }

// threadLogs creates the per-worker log sinks.
func (n *Node) threadLogs(id int) (threadLog, clientLog io.Writer) {
	step := n.Shared.Opts.Int(options.Step)
	base := n.Params.Name + "_thread_" + strconv.Itoa(id) + "_step_" + strconv.Itoa(step)
	tl := &lumberjack.Logger{
		Filename: filepath.Join(n.Params.LogDir, base+".log"),
		MaxSize:  logFileMaxMB,
	}
	n.closers = append(n.closers, tl)
	if !n.Shared.Opts.Bool(options.LogClientOutput) {
		return tl, nil
	}
	cl := &lumberjack.Logger{
		Filename: filepath.Join(n.Params.LogDir, base+"_client.log"),
		MaxSize:  logFileMaxMB,
	}
	n.closers = append(n.closers, cl)
	return tl, cl
}

// StartWork runs the node: one worker goroutine per configured thread, each
// with a pinned connection, through setup and the workload loop.
func (n *Node) StartWork(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n.Params.Threads; i++ {
		id := i
		threadLog, clientLog := n.threadLogs(id)
		g.Go(func() error {
			runner, err := workload.NewConnRunner(gctx, n.db)
			if err != nil {
				return err
			}
			defer func() {
				_ = runner.Close()
			}()

			w := workload.NewWorker(id, n.Shared, runner, threadLog, clientLog)
			_, err = w.Setup(gctx)
			if err != nil {
				return err
			}
			if n.Shared.Opts.Bool(options.JustLoadDDL) || n.Shared.Opts.Bool(options.Prepare) {
				return nil
			}
			return w.Run(gctx)
		})
	}
	return g.Wait()
}

// Close writes the final report and releases the node's resources.
func (n *Node) Close() {
	n.writeFinalReport()
	for _, c := range n.closers {
		_ = c.Close()
	}
	if n.generalLog != nil {
		_ = n.generalLog.Close()
	}
	if n.db != nil {
		_ = n.db.Close()
	}
}

func (n *Node) writeFinalReport() {
	if n.generalLog == nil {
		return
	}
	performed := n.Shared.PerformedTotal.Load()
	failed := n.Shared.FailedTotal.Load()
	if performed == 0 {
		return
	}
	_, _ = fmt.Fprintf(n.generalLog,
		"* NODE SUMMARY: %d/%d queries failed, (%.2f%% were successful)\n",
		failed, performed, float64(performed-failed)*100.0/float64(performed))
}
