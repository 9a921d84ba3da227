package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// postgresOnly lists constructs the sqlite test database cannot execute.
// Migrations run against both drivers, so they must stay portable.
var postgresOnly = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcreate\s+type\b`),
	regexp.MustCompile(`(?i)\bnow\(\)`),
	regexp.MustCompile(`\$\$`),
	regexp.MustCompile(`(?i)\bcreate\s+extension\b`),
	regexp.MustCompile(`(?i)\busing\s+gin\b`),
	regexp.MustCompile(`(?i)\b(big|small)?serial\b`),
	regexp.MustCompile(`::[a-z]`),
}

// ValidateDir checks every migration in dir and returns all problems found,
// not just the first.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var errs error
	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
		}
		seen[m[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read file %q: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, validateBody(name, body))
	}
	return errs
}

func validateBody(name string, body []byte) error {
	var (
		errs           error
		hasUp, hasDown bool
		open           int
	)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "-- +goose Up":
			hasUp = true
			continue
		case "-- +goose Down":
			if open != 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: Down section starts inside an open statement block", name, line))
			}
			hasDown = true
			continue
		case "-- +goose StatementBegin":
			open++
			if open > 1 {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: nested StatementBegin", name, line))
			}
			continue
		case "-- +goose StatementEnd":
			open--
			if open < 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: StatementEnd without StatementBegin", name, line))
				open = 0
			}
			continue
		}
		if strings.HasPrefix(text, "--") {
			continue
		}
		for _, re := range postgresOnly {
			if match := re.FindString(text); match != "" {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: %q is not portable to sqlite", name, line, match))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return multierr.Append(errs, fmt.Errorf("scan %q: %w", name, err))
	}
	if !hasUp {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Up\"", name))
	}
	if !hasDown {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Down\"", name))
	}
	if open != 0 {
		errs = multierr.Append(errs, fmt.Errorf("migration %q has an unterminated StatementBegin", name))
	}
	return errs
}
