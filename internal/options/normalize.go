package options

import (
	"fmt"
	"slices"
	"strings"
)

// ServerInfo is what normalization needs to know about the primary server.
type ServerInfo struct {
	// Version in number form, e.g. 8.0.26 -> 80026.
	Version int
	// InnodbPageSizeKB is the page size in KiB when the engine is InnoDB.
	InnodbPageSizeKB int
	// Fork is the server flavor reported by the client library.
	Fork string
	// KeyringActive is true when the keyring component reports Active.
	KeyringActive bool
	// TempTablesEncrypted mirrors innodb_temp_tablespace_encrypt.
	TempTablesEncrypted bool
	// SysTablespaceEncrypted mirrors innodb_sys_tablespace_encrypt.
	SysTablespaceEncrypted bool
	// HasServerOptions is true when set-variable fuzzing has any input.
	HasServerOptions bool
	// Darwin disables hole-punching dependent features.
	Darwin bool
}

var columnTypeDisables = map[string]ID{
	"INT":       NoInt,
	"INTEGER":   NoInteger,
	"FLOAT":     NoFloat,
	"DOUBLE":    NoDouble,
	"BOOL":      NoBool,
	"DATE":      NoDate,
	"DATETIME":  NoDatetime,
	"TIMESTAMP": NoTimestamp,
	"BIT":       NoBit,
	"BLOB":      NoBlob,
	"CHAR":      NoChar,
	"VARCHAR":   NoVarchar,
	"TEXT":      NoText,
	"GENERATED": NoVirtualColumns,
}

// Normalize applies every feature disable exactly once, before any selector
// is built. Calling it twice is an error in the caller; the ordering of
// disables against selector construction is what keeps runs reproducible.
func (r *Registry) Normalize(srv ServerInfo) error {
	if v := r.Int(MaxPartitions); v < 1 || v > 8192 {
		return fmt.Errorf("invalid range for --max-partitions %d: choose between 1 and 8192", v)
	}
	if r.Bool(OnlyPartition) && r.Bool(OnlyTemporary) {
		return fmt.Errorf("choose either only-partition or only-temporary")
	}
	if r.Bool(OnlyPartition) && r.Bool(NoPartition) {
		return fmt.Errorf("choose either only-partition or no-partition")
	}
	if r.Bool(OnlyCLDDL) && r.Bool(NoDDL) {
		return fmt.Errorf("no-ddl and only-cl-ddl can't be passed together")
	}

	if types := r.Str(ColumnTypes); types != "all" {
		kept := SplitList(types)
		for name, disable := range columnTypeDisables {
			if !slices.Contains(kept, name) {
				r.SetBool(disable, true)
			}
		}
	}

	if srv.Version < 80000 {
		r.SetInt(AlterTablespaceRename, 0)
		r.SetInt(RenameColumn, 0)
		r.SetInt(UndoSQL, 0)
		r.SetInt(AlterRedoLogging, 0)
	}
	// discard tablespace is broken on 8.0.x before .31
	if srv.Version >= 80000 && srv.Version <= 80030 {
		r.SetInt(AlterDiscardTablespace, 0)
	}

	if strings.EqualFold(r.Str(EncryptionType), "oracle") {
		r.SetInt(AlterEncryptionKey, 0)
	}
	if srv.Fork == "MySQL" {
		r.SetInt(AlterDatabaseEncryption, 0)
		r.SetBool(NoColumnCompression, true)
		r.SetInt(AlterEncryptionKey, 0)
	}
	if srv.Fork != "Percona-XtraDB-Cluster" || srv.Version < 80000 {
		r.SetInt(AlterGCacheMasterKey, 0)
	}
	if srv.Darwin {
		r.SetBool(NoTableCompression, true)
	}

	if r.Str(SecondaryEngine) == "" {
		for _, id := range []ID{
			AlterSecondaryEngine, EnforceMerge, SecondaryGC,
			ModifyColumnSecondaryEngine, NotSecondary, DelayInSecondary,
			RewriteRowGroupMinRows, RewriteRowGroupMaxBytes,
			RewriteRowGroupMaxRows, RewriteDeltaNumRows, RewriteDeltaNumUndo,
			RewriteGC, RewriteBlocking, RewriteMaxRowIDHashMap, RewriteForce,
			RewriteNoResidual, RewriteMaxInternalBlobSize,
			RewriteBlockCookerRowGroupMaxRows, RewritePartial,
		} {
			r.SetInt(id, 0)
		}
		r.SetBool(WaitForSync, false)
		r.SetBool(SecondaryAfterCreate, false)
		r.SetBool(SelectInSecondary, false)
		r.SetBool(CompareResult, false)
	} else {
		r.SetBool(NoEncryption, true)
		r.SetBool(NoPartition, true)
		r.SetBool(NoTemporary, true)
		r.SetBool(NoTablespace, true)
		r.SetBool(NoFK, true)
		if r.Int(PrimaryKeyProb) < 100 {
			r.SetBool(NoAutoInc, true)
		}
		r.SetInt(UndoSQL, 0)
		r.SetInt(AlterRedoLogging, 0)
	}

	if r.Bool(OnlyPartition) {
		r.SetBool(NoTemporary, true)
	}

	if r.Bool(OnlySelect) {
		r.SetBool(NoUpdate, true)
		r.SetBool(NoDelete, true)
		r.SetBool(NoInsert, true)
	} else if r.Bool(NoSelect) {
		r.SetInt(SelectAllRow, 0)
		r.SetInt(SelectRowUsingPKey, 0)
		r.SetInt(SelectForUpdate, 0)
		r.SetInt(SelectForUpdateBulk, 0)
		r.SetInt(GrammarSQL, 0)
	}
	if r.Bool(NoDelete) {
		r.SetInt(DeleteAllRow, 0)
		r.SetInt(DeleteRowUsingPKey, 0)
	}
	if r.Bool(NoUpdate) {
		r.SetInt(UpdateRowUsingPKey, 0)
		r.SetInt(UpdateAllRows, 0)
	}
	if r.Bool(NoInsert) {
		r.SetInt(InsertRandomRow, 0)
	}
	if r.Bool(NoUpdate) && r.Bool(NoDelete) && r.Bool(NoInsert) {
		r.SetInt(CallFunction, 0)
	}

	if r.Bool(NoTablespace) {
		r.SetInt(AlterTablespaceRename, 0)
		r.SetInt(AlterTablespaceEncryption, 0)
	}

	if strings.EqualFold(r.Str(Engine), "ROCKSDB") {
		r.SetBool(NoTemporary, true)
		r.SetBool(NoColumnCompression, true)
		r.SetBool(NoEncryption, true)
		r.SetBool(NoDescIndex, true)
		r.SetBool(NoTableCompression, true)
	}

	if r.Bool(NoEncryption) {
		r.SetInt(AlterTableEncryption, 0)
		r.SetInt(AlterTablespaceEncryption, 0)
		r.SetInt(AlterMasterKey, 0)
		r.SetInt(AlterEncryptionKey, 0)
		r.SetInt(AlterGCacheMasterKey, 0)
		r.SetInt(RotateRedoLogKey, 0)
		r.SetInt(AlterDatabaseEncryption, 0)
		r.SetInt(AlterInstanceReloadKeyring, 0)
	}
	if !srv.KeyringActive {
		r.SetInt(AlterInstanceReloadKeyring, 0)
	}

	if r.Bool(NoTableCompression) {
		r.SetInt(AlterTableCompression, 0)
	}

	if !srv.HasServerOptions {
		r.SetInt(SetGlobalVariable, 0)
	}

	// indexes disabled implies no auto-increment key to hang them on
	if r.Int(Indexes) == 0 {
		r.SetBool(NoAutoInc, true)
	}

	if r.Bool(OnlyCLSQL) {
		r.Each(func(o *Option) {
			if o.SQL && !o.FromCL {
				o.intVal = 0
			}
		})
	}
	if r.Bool(OnlyCLDDL) {
		r.Each(func(o *Option) {
			if o.DDL && !o.FromCL {
				o.intVal = 0
			}
		})
	}
	if r.Bool(NoDDL) {
		r.Each(func(o *Option) {
			if o.SQL && o.DDL {
				o.intVal = 0
			}
		})
	}

	return nil
}
