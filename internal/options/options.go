// Package options holds the registry of tunables that drive the run: every
// knob carries a kind (bool/int/string), its current value, flags telling
// whether it produces SQL (and whether that SQL is DDL), and running
// success/total counters. CLI parsing and the workload selector both read
// options by enumerated tag, never by name lookup.
package options

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Kind is the value kind an option carries.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindString
)

// ID enumerates every option.
type ID int

const (
	InitialSeed ID = iota
	Step
	Prepare
	MetadataPath
	Tables
	Columns
	ExactColumns
	Indexes
	ExactIndexes
	IndexColumns
	InitialRecords
	ExactInitialRecords
	UniqueRange
	Engine
	RowFormat
	EncryptionType
	GeneralTablespaces
	UndoTablespaces
	MaxPartitions
	PartitionSupported
	PartitionProb
	FKProb
	TemporaryProb
	NoFKCascade
	PrimaryKeyProb
	PKColumnAutoinc
	UniqueIndexProbK
	PositiveIntProb
	NullProb
	UsingPKProb
	ColumnTypes
	Algorithm
	Lock
	Seconds
	JustLoadDDL
	TestConnection
	CheckTablePreload
	ThreadPerTable
	SingleThreadDDL
	IgnoreErrors
	IgnoreDMLClause
	DropWithNBO
	GrammarFile
	OptionProbFile
	ServerOptionFile
	FunctionContainsDML

	// transaction shape
	TransactionProbK
	TransactionsSize
	CommitProb
	SavepointProbK

	// feature disables
	NoDDL
	OnlyCLDDL
	OnlyCLSQL
	NoEncryption
	NoColumnCompression
	NoTableCompression
	NoTablespace
	NoBlob
	NoVirtualColumns
	NoAutoInc
	NoDescIndex
	OnlyTemporary
	OnlyPartition
	NoTemporary
	NoPartition
	NoFK
	NoSelect
	OnlySelect
	NoInsert
	NoUpdate
	NoDelete
	NoInt
	NoInteger
	NoFloat
	NoDouble
	NoBool
	NoDate
	NoDatetime
	NoTimestamp
	NoChar
	NoVarchar
	NoText
	NoBit

	// SQL-producing operations; the int value is the probability weight
	SelectAllRow
	SelectRowUsingPKey
	SelectForUpdate
	SelectForUpdateBulk
	InsertRandomRow
	UpdateRowUsingPKey
	UpdateAllRows
	DeleteRowUsingPKey
	DeleteAllRow
	CallFunction
	GrammarSQL
	DropColumn
	AddColumn
	DropIndex
	AddIndex
	RenameColumn
	RenameIndex
	Truncate
	Optimize
	Analyze
	CheckTable
	DropCreate
	AddNewTable
	AddDropPartition
	AlterColumnModify
	AlterTableEncryption
	AlterTableCompression
	AlterDiscardTablespace
	AlterTablespaceEncryption
	AlterTablespaceRename
	AlterDatabaseEncryption
	AlterDatabaseCollation
	AlterMasterKey
	AlterEncryptionKey
	AlterGCacheMasterKey
	AlterInstanceReloadKeyring
	RotateRedoLogKey
	AlterRedoLogging
	UndoSQL
	SetGlobalVariable

	// secondary engine
	SecondaryEngine
	SecondaryAfterCreate
	WaitForSync
	SelectInSecondary
	DelayInSecondary
	CompareResult
	NotSecondary
	ModifyColumnSecondaryEngine
	AlterSecondaryEngine
	EnforceMerge
	SecondaryGC
	PlainRewrite
	RewriteRowGroupMinRows
	RewriteRowGroupMaxBytes
	RewriteRowGroupMaxRows
	RewriteDeltaNumRows
	RewriteDeltaNumUndo
	RewriteGC
	RewriteBlocking
	RewriteMaxRowIDHashMap
	RewriteForce
	RewriteNoResidual
	RewriteMaxInternalBlobSize
	RewriteBlockCookerRowGroupMaxRows
	RewritePartial

	// endpoint defaults used when no config file is given
	Database
	Address
	Socket
	Port
	User
	Password
	ConfigFile
	Infile
	LogDir
	Threads
	QueriesPerThread

	// logging
	LogAllQueries
	LogFailedQueries
	LogSuccededQueries
	LogQueryDuration
	LogQueryNumbers
	LogClientOutput

	maxID
)

// Option is one tunable.
type Option struct {
	ID   ID
	Name string // command-line flag name
	Kind Kind
	Help string

	// SQL marks options whose weight feeds the operation selector; DDL marks
	// the subset whose SQL is DDL.
	SQL bool
	DDL bool

	// FromCL records that the value was set on the command line.
	FromCL bool

	boolVal bool
	intVal  int
	strVal  string

	Total   atomic.Uint64
	Success atomic.Uint64
}

// Registry is the full option set, indexed by ID.
type Registry struct {
	opts   [maxID]*Option
	byName map[string]*Option
}

func (r *Registry) add(o *Option) *Option {
	if r.opts[o.ID] != nil {
		panic(fmt.Sprintf("options: duplicate id %d (%s)", o.ID, o.Name))
	}
	r.opts[o.ID] = o
	r.byName[o.Name] = o
	return o
}

// At returns the option for id.
func (r *Registry) At(id ID) *Option { return r.opts[id] }

// Lookup finds an option by flag name.
func (r *Registry) Lookup(name string) (*Option, bool) {
	o, ok := r.byName[name]
	return o, ok
}

// Each visits every option in ID order.
func (r *Registry) Each(fn func(*Option)) {
	for _, o := range r.opts {
		if o != nil {
			fn(o)
		}
	}
}

// Bool returns the current bool value of id.
func (r *Registry) Bool(id ID) bool { return r.opts[id].boolVal }

// Int returns the current int value of id.
func (r *Registry) Int(id ID) int { return r.opts[id].intVal }

// Str returns the current string value of id.
func (r *Registry) Str(id ID) string { return r.opts[id].strVal }

// SetBool overwrites the bool value of id.
func (r *Registry) SetBool(id ID, v bool) { r.opts[id].boolVal = v }

// SetInt overwrites the int value of id.
func (r *Registry) SetInt(id ID, v int) { r.opts[id].intVal = v }

// SetStr overwrites the string value of id.
func (r *Registry) SetStr(id ID, v string) { r.opts[id].strVal = v }

// Weight is the selector weight of a SQL option; zero for everything else.
func (o *Option) Weight() int {
	if !o.SQL {
		return 0
	}
	return o.intVal
}

// SetFromString assigns a parsed command-line or probability-file value.
func (o *Option) SetFromString(v string) error {
	switch o.Kind {
	case KindBool:
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "ON", "TRUE", "1":
			o.boolVal = true
		case "OFF", "FALSE", "0":
			o.boolVal = false
		default:
			return fmt.Errorf("invalid bool value %q for --%s", v, o.Name)
		}
	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid int value %q for --%s: %w", v, o.Name, err)
		}
		o.intVal = n
	case KindString:
		o.strVal = v
	}
	return nil
}

// ValueString renders the current value for the per-thread option dump.
func (o *Option) ValueString() string {
	switch o.Kind {
	case KindBool:
		return strconv.FormatBool(o.boolVal)
	case KindInt:
		return strconv.Itoa(o.intVal)
	default:
		return o.strVal
	}
}

// SplitIntSet parses a comma separated list of error numbers.
func SplitIntSet(input string) map[int]struct{} {
	out := make(map[int]struct{})
	for _, tok := range strings.Split(input, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			out[n] = struct{}{}
		}
	}
	return out
}

// SplitList parses a comma separated list, trimming blanks and uppercasing.
func SplitList(input string) []string {
	var out []string
	for _, tok := range strings.Split(input, ",") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
