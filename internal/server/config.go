// Package server runs the workload against configured endpoints: it parses
// the endpoint file, owns the per-node logs and connections, and fans the
// worker threads out.
package server

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"rstress/internal/options"
)

// Endpoint is one server target and its worker settings.
type Endpoint struct {
	Name string
	Run  bool `toml:"run"`

	Socket   string `toml:"socket"`
	Address  string `toml:"address"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	Port     int    `toml:"port"`

	Threads          int    `toml:"threads"`
	QueriesPerThread int    `toml:"queries-per-thread"`
	MaxPacketSize    int    `toml:"max-packet-size"`
	Infile           string `toml:"infile"`
	LogDir           string `toml:"logdir"`
}

func defaultEndpoint() Endpoint {
	return Endpoint{
		Address:          "localhost",
		User:             "test",
		Port:             3306,
		Threads:          10,
		QueriesPerThread: 10000,
		Infile:           "pquery.sql",
		LogDir:           "/tmp",
	}
}

// LoadConfig reads the endpoint file: one TOML table per endpoint, only
// sections with run = true participate. Sections come back sorted by name
// so runs stay reproducible.
func LoadConfig(path string) ([]Endpoint, error) {
	raw := map[string]toml.Primitive{}
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("can't load %s: %w", path, err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var endpoints []Endpoint
	for _, name := range names {
		ep := defaultEndpoint()
		if err := meta.PrimitiveDecode(raw[name], &ep); err != nil {
			return nil, fmt.Errorf("section %s: %w", name, err)
		}
		ep.Name = name
		if !ep.Run {
			continue
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// EndpointsFromOptions builds one endpoint per configured port when no
// config file is given.
func EndpointsFromOptions(opts *options.Registry) ([]Endpoint, error) {
	ports := options.SplitIntSet(opts.Str(options.Port))
	if len(ports) == 0 {
		return nil, fmt.Errorf("invalid --port value %q", opts.Str(options.Port))
	}
	sorted := make([]int, 0, len(ports))
	for p := range ports {
		sorted = append(sorted, p)
	}
	sort.Ints(sorted)

	var endpoints []Endpoint
	for _, port := range sorted {
		endpoints = append(endpoints, Endpoint{
			Name:             fmt.Sprintf("node.%d", port),
			Run:              true,
			Socket:           opts.Str(options.Socket),
			Address:          opts.Str(options.Address),
			User:             opts.Str(options.User),
			Password:         opts.Str(options.Password),
			Database:         opts.Str(options.Database),
			Port:             port,
			Threads:          opts.Int(options.Threads),
			QueriesPerThread: opts.Int(options.QueriesPerThread),
			Infile:           opts.Str(options.Infile),
			LogDir:           opts.Str(options.LogDir),
		})
	}
	return endpoints, nil
}
