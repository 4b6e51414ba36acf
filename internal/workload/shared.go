package workload

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"rstress/internal/core"
	"rstress/internal/grammar"
	"rstress/internal/options"
	"rstress/internal/sqlgen"
)

// maxConsolePrints bounds error spam before the run gives up.
const maxConsolePrints = 300

// ServerOption is one fuzzable server variable with its probability weight
// and candidate values.
type ServerOption struct {
	Name   string
	Prob   int
	Values []string
}

// Shared is the state every worker of a run sees: options, catalog, string
// pool, grammar templates, the cooperative failure flag and the log sinks
// shared across threads.
type Shared struct {
	Opts      *options.Registry
	Env       *sqlgen.Env
	Catalog   *core.Catalog
	Pool      []string
	Templates []grammar.Template
	ServerOpt []ServerOption
	Database  string
	LogDir    string

	// Failed is the cooperative cancellation flag; any worker observing a
	// fatal error sets it and every loop exits after its current operation.
	Failed atomic.Bool

	// StartTime anchors the workload deadline.
	StartTime time.Time

	// InitialTables is the catalog size before the workload loop starts.
	InitialTables int

	DDLLog  io.Writer
	Console io.Writer

	logMu      sync.Mutex
	printSoFar atomic.Int64

	tableStarted   atomic.Int64
	tableCompleted atomic.Int64
	CheckFailures  atomic.Int64

	PerformedTotal atomic.Uint64
	FailedTotal    atomic.Uint64
}

// StepSeed is the step's base seed.
func (s *Shared) StepSeed() int64 {
	return int64(s.Opts.Int(options.InitialSeed) + s.Opts.Int(options.Step))
}

// PrintAndLog writes one line to the console and the thread log under the
// shared log mutex. Crossing the print budget marks the run failed.
func (s *Shared) PrintAndLog(threadLog io.Writer, msg string) {
	if s.printSoFar.Add(1) > maxConsolePrints {
		if s.Failed.CompareAndSwap(false, true) {
			s.logMu.Lock()
			_, _ = fmt.Fprintf(s.Console, "more than %d errors on console, stopping\n", maxConsolePrints)
			s.logMu.Unlock()
		}
		return
	}
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if s.Console != nil {
		_, _ = fmt.Fprintln(s.Console, msg)
	}
	if threadLog != nil {
		_, _ = fmt.Fprintln(threadLog, msg)
	}
}

// AttachDDLLog installs the DDL log sink; the first node wins when several
// endpoints share one run.
func (s *Shared) AttachDDLLog(w io.Writer) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if s.DDLLog == nil {
		s.DDLLog = w
	}
}

// LogDDL appends one line to the shared DDL log.
func (s *Shared) LogDDL(threadID int, sqlText, errText string) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if s.DDLLog == nil {
		return
	}
	_, _ = fmt.Fprintf(s.DDLLog, "%d %s %s\n", threadID, sqlText, errText)
}

// NextTableID hands out initial-load work items.
func (s *Shared) NextTableID() int {
	return int(s.tableStarted.Add(1))
}

// TableDone marks one table loaded.
func (s *Shared) TableDone() {
	s.tableCompleted.Add(1)
}

// TablesCompleted is how many tables finished loading.
func (s *Shared) TablesCompleted() int {
	return int(s.tableCompleted.Load())
}
