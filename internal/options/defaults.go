package options

// New returns the registry with every option at its default value.
func New() *Registry {
	r := &Registry{byName: make(map[string]*Option, int(maxID))}

	boolOpt := func(id ID, name string, def bool, help string) *Option {
		o := r.add(&Option{ID: id, Name: name, Kind: KindBool, Help: help})
		o.boolVal = def
		return o
	}
	intOpt := func(id ID, name string, def int, help string) *Option {
		o := r.add(&Option{ID: id, Name: name, Kind: KindInt, Help: help})
		o.intVal = def
		return o
	}
	strOpt := func(id ID, name string, def string, help string) *Option {
		o := r.add(&Option{ID: id, Name: name, Kind: KindString, Help: help})
		o.strVal = def
		return o
	}
	sqlOpt := func(id ID, name string, weight int, help string) *Option {
		o := intOpt(id, name, weight, help)
		o.SQL = true
		return o
	}
	ddlOpt := func(id ID, name string, weight int, help string) *Option {
		o := sqlOpt(id, name, weight, help)
		o.DDL = true
		return o
	}

	intOpt(InitialSeed, "seed", 1793, "initial seed; the step number is added to it")
	intOpt(Step, "step", 1, "step of the workload; steps share schema via the checkpoint file")
	boolOpt(Prepare, "prepare", false, "create database, tablespaces, tables and initial data, then exit")
	strOpt(MetadataPath, "metadata-path", "", "directory for checkpoint files; defaults to logdir")
	intOpt(Tables, "tables", 10, "number of initial tables")
	intOpt(Columns, "columns", 10, "maximum number of columns per table")
	boolOpt(ExactColumns, "exact-columns", false, "create exactly --columns columns instead of a random count")
	intOpt(Indexes, "indexes", 4, "maximum number of indexes per table")
	boolOpt(ExactIndexes, "exact-indexes", false, "create exactly --indexes indexes instead of a random count")
	intOpt(IndexColumns, "index-columns", 4, "maximum number of columns per index")
	intOpt(InitialRecords, "initial-records-in-table", 1000, "target rows per table at bulk load")
	boolOpt(ExactInitialRecords, "exact-initial-records", false, "load exactly the target row count")
	intOpt(UniqueRange, "unique-range", 10, "multiplier for the unique key value space")
	strOpt(Engine, "engine", "INNODB", "storage engine for created tables")
	strOpt(RowFormat, "row-format", "all", "row formats to use: all, uncompressed, none, or a single format")
	strOpt(EncryptionType, "encryption-type", "all", "encryption values: all, oracle, or a single value")
	intOpt(GeneralTablespaces, "number-of-general-tablespace", 1, "general tablespaces created per size class")
	intOpt(UndoTablespaces, "number-of-undo-tablespace", 2, "undo tablespaces created at prepare")
	intOpt(MaxPartitions, "max-partitions", 25, "maximum partitions per partitioned table, between 1 and 8192")
	strOpt(PartitionSupported, "partition-types", "all", "partition strategies to use: all or a list of HASH,KEY,LIST,RANGE")
	intOpt(PartitionProb, "partition-probability", 30, "percent of table ids that also get a partitioned table")
	intOpt(FKProb, "fk-probability", 20, "percent of tables with a primary key that get a foreign key child")
	intOpt(TemporaryProb, "temporary-probability", 10, "divisor for session temporary tables per thread")
	boolOpt(NoFKCascade, "no-fk-cascade", false, "do not pick CASCADE as a referential action")
	intOpt(PrimaryKeyProb, "primary-key-probability", 50, "percent of tables whose first column is an INT primary key")
	intOpt(PKColumnAutoinc, "pk-column-autoinc", 50, "percent of primary key columns that are auto-increment")
	intOpt(UniqueIndexProbK, "unique-index-probability-k", 30, "probability out of 1000 that an index with an INT column is UNIQUE")
	intOpt(PositiveIntProb, "positive-int-probability", 990, "probability out of 1000 that integer values stay positive")
	intOpt(NullProb, "null-probability", 25, "probability out of 1000 that a generated value is NULL")
	intOpt(UsingPKProb, "using-pkey-probability", 50, "percent of WHERE clauses preferring the primary key column")
	strOpt(ColumnTypes, "column-types", "all", "column types to use: all or a comma separated list")
	strOpt(Algorithm, "alter-algorithm", "all", "ALTER algorithms to use: all or a list of INPLACE,COPY,INSTANT,DEFAULT")
	strOpt(Lock, "alter-lock", "all", "ALTER locks to use: all or a list of DEFAULT,EXCLUSIVE,SHARED,NONE")
	intOpt(Seconds, "seconds", 120, "wall-clock duration of the workload phase")
	boolOpt(JustLoadDDL, "just-load-ddl", false, "create tables without bulk data and exit the workload")
	boolOpt(TestConnection, "test-connection", false, "only test the connection and exit")
	boolOpt(CheckTablePreload, "check-table-preload", false, "run CHECK TABLE on every table and partition before the workload")
	boolOpt(ThreadPerTable, "thread-per-table", false, "pin every worker thread to the table matching its id")
	boolOpt(SingleThreadDDL, "single-thread-ddl", false, "only the leader thread runs DDL")
	strOpt(IgnoreErrors, "ignore-errors", "", "comma separated server error numbers to ignore, or all")
	intOpt(IgnoreDMLClause, "ignore-dml-clause", 20, "percent of DML statements carrying IGNORE")
	intOpt(DropWithNBO, "drop-with-nbo", 0, "percent of DROP TABLE run under wsrep NBO")
	strOpt(GrammarFile, "grammar-file", "grammar.sql", "file with templated SQL for the grammar operation")
	strOpt(OptionProbFile, "option-prob-file", "", "file with OPTION=N lines adjusting option weights")
	strOpt(ServerOptionFile, "mysqld-option-file", "", "file with server variables for set-global fuzzing")
	strOpt(FunctionContainsDML, "function-contains-dml", "insert,update,delete", "DML kinds wrapped into generated stored functions")

	intOpt(TransactionProbK, "transaction-probability-k", 200, "probability out of 1000 of starting a transaction")
	intOpt(TransactionsSize, "transaction-size", 10, "maximum statements inside one transaction")
	intOpt(CommitProb, "commit-probability", 90, "percent of transactions ending in COMMIT instead of ROLLBACK")
	intOpt(SavepointProbK, "savepoint-probability-k", 200, "probability out of 1000 of creating a savepoint inside a transaction")

	boolOpt(NoDDL, "no-ddl", false, "disable every DDL operation")
	boolOpt(OnlyCLDDL, "only-cl-ddl", false, "only run DDL whose weight was set on the command line")
	boolOpt(OnlyCLSQL, "only-cl-sql", false, "only run SQL whose weight was set on the command line")
	boolOpt(NoEncryption, "no-encryption", false, "disable every encryption feature")
	boolOpt(NoColumnCompression, "no-column-compression", false, "disable compressed columns")
	boolOpt(NoTableCompression, "no-table-compression", false, "disable table compression")
	boolOpt(NoTablespace, "no-tablespace", false, "do not use general tablespaces")
	boolOpt(NoBlob, "no-blob", false, "do not create blob columns")
	boolOpt(NoVirtualColumns, "no-virtual-columns", false, "do not create generated columns")
	boolOpt(NoAutoInc, "no-auto-inc", false, "do not create auto-increment columns")
	boolOpt(NoDescIndex, "no-desc-index", false, "do not create descending index columns")
	boolOpt(OnlyTemporary, "only-temporary", false, "create only temporary tables")
	boolOpt(OnlyPartition, "only-partition", false, "create only partitioned tables")
	boolOpt(NoTemporary, "no-temporary", false, "do not create temporary tables")
	boolOpt(NoPartition, "no-partition", false, "do not create partitioned tables")
	boolOpt(NoFK, "no-fk", false, "do not create foreign key tables")
	boolOpt(NoSelect, "no-select", false, "disable every SELECT operation")
	boolOpt(OnlySelect, "only-select", false, "disable insert, update and delete")
	boolOpt(NoInsert, "no-insert", false, "disable inserts")
	boolOpt(NoUpdate, "no-update", false, "disable updates")
	boolOpt(NoDelete, "no-delete", false, "disable deletes")
	boolOpt(NoInt, "no-int", false, "do not create INT columns")
	boolOpt(NoInteger, "no-integer", false, "do not create INTEGER columns")
	boolOpt(NoFloat, "no-float", false, "do not create FLOAT columns")
	boolOpt(NoDouble, "no-double", false, "do not create DOUBLE columns")
	boolOpt(NoBool, "no-bool", false, "do not create BOOL columns")
	boolOpt(NoDate, "no-date", false, "do not create DATE columns")
	boolOpt(NoDatetime, "no-datetime", false, "do not create DATETIME columns")
	boolOpt(NoTimestamp, "no-timestamp", false, "do not create TIMESTAMP columns")
	boolOpt(NoChar, "no-char", false, "do not create CHAR columns")
	boolOpt(NoVarchar, "no-varchar", false, "do not create VARCHAR columns")
	boolOpt(NoText, "no-text", false, "do not create TEXT columns")
	boolOpt(NoBit, "no-bit", false, "do not create BIT columns")

	sqlOpt(SelectAllRow, "select-all-row", 80, "bulk SELECT")
	sqlOpt(SelectRowUsingPKey, "select-row-using-pkey", 800, "point SELECT")
	sqlOpt(SelectForUpdate, "select-for-update", 20, "point SELECT FOR UPDATE")
	sqlOpt(SelectForUpdateBulk, "select-for-update-bulk", 5, "bulk SELECT FOR UPDATE")
	sqlOpt(InsertRandomRow, "insert-random-row", 400, "INSERT a random row")
	sqlOpt(UpdateRowUsingPKey, "update-row-using-pkey", 150, "point UPDATE")
	sqlOpt(UpdateAllRows, "update-all-rows", 10, "bulk UPDATE")
	sqlOpt(DeleteRowUsingPKey, "delete-row-using-pkey", 150, "point DELETE")
	sqlOpt(DeleteAllRow, "delete-all-row", 10, "bulk DELETE")
	sqlOpt(CallFunction, "call-function", 5, "create and call a stored function wrapping DML")
	sqlOpt(GrammarSQL, "grammar-sql", 10, "execute templated SQL from the grammar file")
	ddlOpt(DropColumn, "drop-column", 2, "ALTER TABLE DROP COLUMN")
	ddlOpt(AddColumn, "add-column", 2, "ALTER TABLE ADD COLUMN")
	ddlOpt(DropIndex, "drop-index", 2, "ALTER TABLE DROP INDEX")
	ddlOpt(AddIndex, "add-index", 2, "ALTER TABLE ADD INDEX")
	ddlOpt(RenameColumn, "rename-column", 2, "ALTER TABLE RENAME COLUMN")
	ddlOpt(RenameIndex, "rename-index", 2, "ALTER TABLE RENAME INDEX")
	ddlOpt(Truncate, "truncate", 1, "TRUNCATE a table or one partition")
	ddlOpt(Optimize, "optimize", 1, "OPTIMIZE a table or one partition")
	ddlOpt(Analyze, "analyze", 1, "ANALYZE a table or one partition")
	ddlOpt(CheckTable, "check-table", 1, "CHECK a table or one partition")
	ddlOpt(DropCreate, "drop-create", 1, "DROP TABLE then CREATE it again")
	ddlOpt(AddNewTable, "add-new-table", 1, "create an additional table mid-run")
	ddlOpt(AddDropPartition, "add-drop-partition", 2, "add, drop, coalesce or reorganize partitions")
	ddlOpt(AlterColumnModify, "alter-column-modify", 2, "ALTER TABLE MODIFY COLUMN")
	ddlOpt(AlterTableEncryption, "alter-table-encryption", 1, "ALTER TABLE ENCRYPTION")
	ddlOpt(AlterTableCompression, "alter-table-compression", 1, "ALTER TABLE COMPRESSION")
	ddlOpt(AlterDiscardTablespace, "alter-discard-tablespace", 0, "ALTER TABLE DISCARD TABLESPACE followed by drop-create")
	ddlOpt(AlterTablespaceEncryption, "alter-tablespace-encryption", 1, "ALTER TABLESPACE ENCRYPTION")
	ddlOpt(AlterTablespaceRename, "alter-tablespace-rename", 1, "ALTER TABLESPACE RENAME")
	ddlOpt(AlterDatabaseEncryption, "alter-database-encryption", 1, "ALTER DATABASE ENCRYPTION")
	ddlOpt(AlterDatabaseCollation, "alter-database-collation", 1, "ALTER DATABASE COLLATE")
	ddlOpt(AlterMasterKey, "alter-master-key", 1, "ALTER INSTANCE ROTATE INNODB MASTER KEY")
	ddlOpt(AlterEncryptionKey, "alter-encryption-key", 1, "ALTER INSTANCE ROTATE INNODB SYSTEM KEY")
	ddlOpt(AlterGCacheMasterKey, "alter-gcache-master-key", 0, "ALTER INSTANCE ROTATE GCACHE MASTER KEY")
	ddlOpt(AlterInstanceReloadKeyring, "alter-instance-reload-keyring", 1, "ALTER INSTANCE RELOAD KEYRING")
	ddlOpt(RotateRedoLogKey, "rotate-redo-log-key", 0, "SELECT rotate_system_key for the redo log")
	ddlOpt(AlterRedoLogging, "alter-redo-logging", 1, "ALTER INSTANCE ENABLE or DISABLE INNODB REDO_LOG")
	ddlOpt(UndoSQL, "undo-tbs-sql", 1, "create, alter or drop undo tablespaces")
	sqlOpt(SetGlobalVariable, "set-variable", 1, "SET a random server variable from the mysqld option list")

	strOpt(SecondaryEngine, "secondary-engine", "", "secondary engine name; empty disables the secondary surface")
	boolOpt(SecondaryAfterCreate, "secondary-after-create", false, "attach the secondary engine after CREATE TABLE and bulk load")
	boolOpt(WaitForSync, "wait-for-sync", true, "wait until tables sync to the secondary engine")
	boolOpt(SelectInSecondary, "select-in-secondary", false, "force SELECT execution in the secondary engine")
	intOpt(DelayInSecondary, "delay-in-secondary", 0, "upper bound in ms of the injected post-GTID-lookup delay")
	boolOpt(CompareResult, "compare-result", false, "run SELECT on both engines and compare result sets")
	intOpt(NotSecondary, "not-secondary", 0, "percent of columns created with NOT SECONDARY")
	ddlOpt(ModifyColumnSecondaryEngine, "modify-column-secondary-engine", 0, "toggle NOT SECONDARY on columns")
	ddlOpt(AlterSecondaryEngine, "alter-secondary-engine", 0, "ALTER TABLE SECONDARY_ENGINE")
	sqlOpt(EnforceMerge, "enforce-merge", 0, "rewrite a table in the secondary engine")
	sqlOpt(SecondaryGC, "secondary-gc", 0, "trigger garbage collection in the secondary engine")
	boolOpt(PlainRewrite, "plain-rewrite", false, "rewrite without random row-group options")
	intOpt(RewriteRowGroupMinRows, "rewrite-row-group-min-rows", 10, "percent chance of a row_group_min_rows rewrite option")
	intOpt(RewriteRowGroupMaxBytes, "rewrite-row-group-max-bytes", 10, "percent chance of a row_group_max_bytes rewrite option")
	intOpt(RewriteRowGroupMaxRows, "rewrite-row-group-max-rows", 10, "percent chance of a row_group_max_rows rewrite option")
	intOpt(RewriteDeltaNumRows, "rewrite-delta-num-rows", 10, "percent chance of a delta_num_rows rewrite option")
	intOpt(RewriteDeltaNumUndo, "rewrite-delta-num-undo", 10, "percent chance of a delta_num_undo rewrite option")
	intOpt(RewriteGC, "rewrite-gc", 10, "percent chance of a gc rewrite option")
	intOpt(RewriteBlocking, "rewrite-blocking", 10, "percent chance of a blocking rewrite option")
	intOpt(RewriteMaxRowIDHashMap, "rewrite-max-row-id-hash-map", 10, "percent chance of a max_row_id_hash_map rewrite option")
	intOpt(RewriteForce, "rewrite-force", 10, "percent chance of a force rewrite option")
	intOpt(RewriteNoResidual, "rewrite-no-residual", 10, "percent chance of a no_residual rewrite option")
	intOpt(RewriteMaxInternalBlobSize, "rewrite-max-internal-blob-size", 10, "percent chance of a max_internal_blob_size rewrite option")
	intOpt(RewriteBlockCookerRowGroupMaxRows, "rewrite-block-cooker-row-group-max-rows", 10, "percent chance of a block_cooker_row_group_max_rows rewrite option")
	intOpt(RewritePartial, "rewrite-partial", 10, "percent chance of a partial rewrite option")

	strOpt(Database, "database", "test", "database to run against")
	strOpt(Address, "address", "localhost", "server address")
	strOpt(Socket, "socket", "", "unix socket path")
	strOpt(Port, "port", "3306", "server port, or a comma separated list for multiple endpoints")
	strOpt(User, "user", "root", "user name")
	strOpt(Password, "password", "", "password")
	strOpt(ConfigFile, "config-file", "", "TOML file with one section per endpoint")
	strOpt(Infile, "infile", "pquery.sql", "plain SQL file for replay mode")
	strOpt(LogDir, "logdir", "/tmp", "directory for log and checkpoint files")
	intOpt(Threads, "threads", 10, "worker threads per endpoint")
	intOpt(QueriesPerThread, "queries-per-thread", 10000, "queries per thread in replay mode")

	boolOpt(LogAllQueries, "log-all-queries", false, "log every query")
	boolOpt(LogFailedQueries, "log-failed-queries", false, "log failed queries")
	boolOpt(LogSuccededQueries, "log-succeded-queries", false, "log successful queries")
	boolOpt(LogQueryDuration, "log-query-duration", false, "log per-query durations")
	boolOpt(LogQueryNumbers, "log-query-numbers", false, "number client log rows")
	boolOpt(LogClientOutput, "log-client-output", false, "dump result rows to the client log")

	return r
}
