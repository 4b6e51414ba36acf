package server

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"rstress/internal/options"
)

// GatherServerInfo probes the primary server for everything option
// normalization needs. Probes that the flavor does not support simply leave
// their defaults.
func GatherServerInfo(ctx context.Context, db *sql.DB) options.ServerInfo {
	info := options.ServerInfo{Fork: "MySQL"}

	var version string
	if err := db.QueryRowContext(ctx, "select @@version").Scan(&version); err == nil {
		info.Version = parseServerVersion(version)
	}

	var comment string
	if err := db.QueryRowContext(ctx, "select @@version_comment").Scan(&comment); err == nil {
		switch {
		case strings.Contains(comment, "XtraDB Cluster"):
			info.Fork = "Percona-XtraDB-Cluster"
		case strings.Contains(comment, "Percona"):
			info.Fork = "Percona-Server"
		}
	}

	var pageSize int
	if err := db.QueryRowContext(ctx, "select @@innodb_page_size").Scan(&pageSize); err == nil {
		info.InnodbPageSizeKB = pageSize / 1024
	}

	var status string
	if err := db.QueryRowContext(ctx,
		`SELECT status_value FROM performance_schema.keyring_component_status
		 WHERE status_key='component_status'`).Scan(&status); err == nil {
		info.KeyringActive = status == "Active"
	}

	var flag string
	if err := db.QueryRowContext(ctx,
		"select @@innodb_temp_tablespace_encrypt").Scan(&flag); err == nil {
		info.TempTablesEncrypted = flag == "1"
	}
	if info.Fork == "Percona-Server" {
		if err := db.QueryRowContext(ctx,
			"select @@innodb_sys_tablespace_encrypt").Scan(&flag); err == nil {
			info.SysTablespaceEncrypted = flag == "1"
		}
	}
	return info
}

// parseServerVersion turns 8.0.26-debug into 80026.
func parseServerVersion(v string) int {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
	nums := make([]int, 0, 3)
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		nums = append(nums, n)
		if len(nums) == 3 {
			break
		}
	}
	for len(nums) < 3 {
		nums = append(nums, 0)
	}
	return nums[0]*10000 + nums[1]*100 + nums[2]
}
