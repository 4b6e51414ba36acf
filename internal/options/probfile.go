package options

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadProbFile reads OPTION=N lines and overwrites the named options'
// integer values. Option names match flag names, case-insensitively, with
// underscores accepted in place of dashes. Blank lines and # comments are
// skipped.
func (r *Registry) LoadProbFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open option probability file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		name, value, ok := strings.Cut(text, "=")
		if !ok {
			return fmt.Errorf("%s:%d: expected OPTION=N, got %q", path, line, text)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		name = strings.ReplaceAll(name, "_", "-")
		opt, found := r.Lookup(name)
		if !found {
			return fmt.Errorf("%s:%d: unknown option %q", path, line, name)
		}
		if err := opt.SetFromString(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read option probability file: %w", err)
	}
	return nil
}
