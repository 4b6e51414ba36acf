// Package sqlgen synthesizes random schemas and SQL text. A Generator owns a
// worker's PRNG and reads the option registry; the shared Env carries the
// per-run universes (tablespaces, row formats, encryption values) computed
// once at startup.
package sqlgen

import (
	"strconv"
	"strings"

	"rstress/internal/options"
)

// InnoDB page sizes in KiB.
const (
	Page8K  = 8
	Page16K = 16
	Page32K = 32
	Page64K = 64
)

// MaxColumnLength caps random column and index prefix lengths.
const MaxColumnLength = 30

// DescIndexPercent is the chance of an index key part being DESC.
const DescIndexPercent = 34

// ListPartitionMaxValues bounds the integer domain of one LIST partition.
const ListPartitionMaxValues = 100

// Env is the per-run universe of table attributes, derived from the options
// and the server once before workers start; read-only afterwards.
type Env struct {
	Tablespaces     []string
	UndoTablespaces []string
	RowFormats      []string
	KeyBlockSizes   []int
	Encryption      []string
	Compression     []string
	Algorithms      []string
	Locks           []string

	PageSizeKB    int
	ServerVersion int

	EncryptedTempTables     bool
	EncryptedSysTablespaces bool
	KeyringActive           bool
}

// BuildEnv derives the run universe the way the options ask for it.
func BuildEnv(opts *options.Registry, srv options.ServerInfo) *Env {
	e := &Env{
		Compression:   []string{"none", "zlib", "lz4"},
		PageSizeKB:    srv.InnodbPageSizeKB,
		ServerVersion: srv.Version,

		EncryptedTempTables:     srv.TempTablesEncrypted,
		EncryptedSysTablespaces: srv.SysTablespaceEncrypted,
		KeyringActive:           srv.KeyringActive,
	}
	if e.PageSizeKB == 0 {
		e.PageSizeKB = Page16K
	}

	if !opts.Bool(options.NoTablespace) {
		e.Tablespaces = []string{"tab02k", "tab04k", "innodb_system"}
		if e.PageSizeKB >= Page8K {
			e.Tablespaces = append(e.Tablespaces, "tab08k")
		}
		if e.PageSizeKB >= Page16K {
			e.Tablespaces = append(e.Tablespaces, "tab16k")
		}
		if e.PageSizeKB >= Page32K {
			e.Tablespaces = append(e.Tablespaces, "tab32k")
		}
		if e.PageSizeKB >= Page64K {
			e.Tablespaces = append(e.Tablespaces, "tab64k")
		}
		if n := opts.Int(options.GeneralTablespaces); n > 1 {
			base := len(e.Tablespaces)
			for i := 0; i < base; i++ {
				if e.Tablespaces[i] == "innodb_system" {
					continue
				}
				for j := 1; j <= n; j++ {
					e.Tablespaces = append(e.Tablespaces, e.Tablespaces[i]+strconv.Itoa(j))
				}
			}
		}
		// alternate tablespaces are created encrypted
		if !opts.Bool(options.NoEncryption) && !(srv.Fork == "MySQL" && srv.Version < 80000) {
			for i := range e.Tablespaces {
				if i%2 == 0 && e.Tablespaces[i] != "innodb_system" {
					e.Tablespaces[i] += "_e"
				}
			}
		}
	}

	switch enc := strings.ToLower(opts.Str(options.EncryptionType)); enc {
	case "all":
		e.Encryption = []string{"Y", "N"}
		if srv.Fork == "Percona-Server" {
			e.Encryption = append(e.Encryption, "KEYRING")
		}
	case "oracle":
		e.Encryption = []string{"Y", "N"}
	default:
		e.Encryption = []string{opts.Str(options.EncryptionType)}
	}

	rowFormat := strings.ToLower(opts.Str(options.RowFormat))
	if rowFormat == "all" && opts.Bool(options.NoTableCompression) {
		rowFormat = "uncompressed"
	}
	switch rowFormat {
	case "uncompressed":
		e.RowFormats = []string{"DYNAMIC", "REDUNDANT"}
	case "all":
		e.RowFormats = []string{"DYNAMIC", "REDUNDANT", "COMPRESSED"}
		e.KeyBlockSizes = []int{0, 0, 1, 2, 4}
	case "none":
	default:
		e.RowFormats = []string{strings.ToUpper(rowFormat)}
	}

	if opts.Bool(options.NoTableCompression) {
		e.Compression = nil
	}
	if e.PageSizeKB > Page16K || opts.Str(options.SecondaryEngine) != "" {
		e.RowFormats = nil
		e.KeyBlockSizes = nil
		e.Compression = nil
	}

	for i := 1; i <= opts.Int(options.UndoTablespaces); i++ {
		e.UndoTablespaces = append(e.UndoTablespaces, "undo_00"+strconv.Itoa(i))
	}

	e.Algorithms = pickSet(opts.Str(options.Algorithm),
		[]string{"INPLACE", "COPY", "INSTANT", "DEFAULT"})
	e.Locks = pickSet(opts.Str(options.Lock),
		[]string{"DEFAULT", "EXCLUSIVE", "SHARED", "NONE"})

	return e
}

func pickSet(value string, all []string) []string {
	if strings.EqualFold(value, "all") {
		return all
	}
	upper := strings.ToUpper(value)
	var out []string
	for _, v := range all {
		if strings.Contains(upper, v) {
			out = append(out, v)
		}
	}
	return out
}
