package server

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"rstress/internal/workload"
)

const defaultServerOptionProb = 50

// ParseServerOption parses one set-variable entry of the form
// [prob:]name=value1,value2,... used by the set-variable operation.
func ParseServerOption(entry string) (workload.ServerOption, error) {
	opt := workload.ServerOption{Prob: defaultServerOptionProb}

	spec := entry
	if head, rest, ok := strings.Cut(entry, ":"); ok {
		if prob, err := strconv.Atoi(strings.TrimSpace(head)); err == nil {
			opt.Prob = prob
			spec = rest
		}
	}
	name, values, ok := strings.Cut(spec, "=")
	if !ok {
		return opt, fmt.Errorf("invalid server option %q: expected [prob:]name=v1,v2", entry)
	}
	opt.Name = strings.TrimSpace(name)
	for _, v := range strings.Split(values, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			opt.Values = append(opt.Values, v)
		}
	}
	if opt.Name == "" || len(opt.Values) == 0 {
		return opt, fmt.Errorf("invalid server option %q: empty name or values", entry)
	}
	return opt, nil
}

// LoadServerOptionFile reads one server option per line; blank lines and
// # comments are skipped.
func LoadServerOptionFile(path string) ([]workload.ServerOption, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server option file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var out []workload.ServerOption
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		opt, err := ParseServerOption(line)
		if err != nil {
			return nil, err
		}
		out = append(out, opt)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read server option file: %w", err)
	}
	return out, nil
}
