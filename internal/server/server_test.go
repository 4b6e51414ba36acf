package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rstress/internal/options"
	"rstress/internal/workload"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.toml")
	content := `
[node1]
run = true
address = "10.0.0.1"
port = 3307
user = "stress"
password = "secret"
database = "bench"
threads = 4
queries-per-thread = 500
max-packet-size = 4194304
logdir = "/var/log/rstress"

[node2]
run = false
address = "10.0.0.2"

[node3]
run = true
socket = "/tmp/mysql.sock"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	endpoints, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, endpoints, 2, "only run = true sections participate")

	n1 := endpoints[0]
	assert.Equal(t, "node1", n1.Name)
	assert.Equal(t, "10.0.0.1", n1.Address)
	assert.Equal(t, 3307, n1.Port)
	assert.Equal(t, "stress", n1.User)
	assert.Equal(t, "bench", n1.Database)
	assert.Equal(t, 4, n1.Threads)
	assert.Equal(t, 500, n1.QueriesPerThread)
	assert.Equal(t, "/var/log/rstress", n1.LogDir)

	n3 := endpoints[1]
	assert.Equal(t, "node3", n3.Name)
	assert.Equal(t, "/tmp/mysql.sock", n3.Socket)
	assert.Equal(t, 10, n3.Threads, "missing settings keep their defaults")
	assert.Equal(t, 3306, n3.Port)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent.toml")
	assert.Error(t, err)
}

func TestEndpointsFromOptions(t *testing.T) {
	opts := options.New()
	opts.SetStr(options.Port, "3306,3307")
	opts.SetStr(options.Address, "db.internal")
	opts.SetStr(options.User, "root")
	opts.SetInt(options.Threads, 3)

	endpoints, err := EndpointsFromOptions(opts)
	require.NoError(t, err)
	require.Len(t, endpoints, 2)
	assert.Equal(t, "node.3306", endpoints[0].Name)
	assert.Equal(t, "node.3307", endpoints[1].Name)
	assert.Equal(t, "db.internal", endpoints[0].Address)
	assert.Equal(t, 3, endpoints[0].Threads)
	assert.True(t, endpoints[0].Run)
}

func TestEndpointsFromOptionsBadPort(t *testing.T) {
	opts := options.New()
	opts.SetStr(options.Port, "not-a-port")
	_, err := EndpointsFromOptions(opts)
	assert.Error(t, err)
}

func TestNodeDSN(t *testing.T) {
	n := NewNode(Endpoint{
		Address: "127.0.0.1", Port: 3310, User: "u", Password: "p", Database: "d",
	}, nil)
	dsn := n.DSN()
	assert.Contains(t, dsn, "u:p@tcp(127.0.0.1:3310)/d")
	assert.Contains(t, dsn, "multiStatements=true")

	sock := NewNode(Endpoint{Socket: "/run/mysqld.sock", User: "u", Database: "d"}, nil)
	assert.Contains(t, sock.DSN(), "unix(/run/mysqld.sock)")
}

func TestParseServerVersion(t *testing.T) {
	assert.Equal(t, 80026, parseServerVersion("8.0.26"))
	assert.Equal(t, 80033, parseServerVersion("8.0.33-25.1"))
	assert.Equal(t, 50735, parseServerVersion("5.7.35-log"))
	assert.Equal(t, 80000, parseServerVersion("8.0"))
}

func TestParseServerOption(t *testing.T) {
	opt, err := ParseServerOption("innodb_flush_log_at_trx_commit=0,1,2")
	require.NoError(t, err)
	assert.Equal(t, "innodb_flush_log_at_trx_commit", opt.Name)
	assert.Equal(t, []string{"0", "1", "2"}, opt.Values)
	assert.Equal(t, defaultServerOptionProb, opt.Prob)

	opt, err = ParseServerOption("90:sort_buffer_size=32768,1048576")
	require.NoError(t, err)
	assert.Equal(t, 90, opt.Prob)
	assert.Equal(t, "sort_buffer_size", opt.Name)

	_, err = ParseServerOption("no-equals-sign")
	assert.Error(t, err)
	_, err = ParseServerOption("name=")
	assert.Error(t, err)
}

func TestLoadServerOptionFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vars")
	content := "# comment\n\ninnodb_log_buffer_size=1048576,2097152\n20:max_heap_table_size=16384,32768\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts, err := LoadServerOptionFile(path)
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, workload.ServerOption{
		Name: "innodb_log_buffer_size", Prob: 50,
		Values: []string{"1048576", "2097152"},
	}, opts[0])
	assert.Equal(t, 20, opts[1].Prob)

	_, err = LoadServerOptionFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
