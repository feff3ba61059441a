package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arc-language/core-emit/backend"
)

// OutputResolver turns an output option into an absolute artifact path.
type OutputResolver struct {
	workDir string
}

// NewOutputResolver resolves relative paths against workDir, or the
// process working directory when workDir is empty.
func NewOutputResolver(workDir string) (*OutputResolver, error) {
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		workDir = wd
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("working directory %s: %w", workDir, err)
	}
	return &OutputResolver{workDir: abs}, nil
}

// WorkDir returns the directory relative outputs resolve against.
func (r *OutputResolver) WorkDir() string {
	return r.workDir
}

// Resolve returns the absolute path for output. An empty output becomes
// "main" plus the format's extension. The parent directory must exist.
func (r *OutputResolver) Resolve(output string, format backend.Format) (string, error) {
	if output == "" {
		output = DefaultOutputBase + format.Ext()
	}

	path := output
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.workDir, path)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output directory %s is not a directory", dir)
	}
	return path, nil
}

// MatchesFormat reports whether path carries format's extension.
func MatchesFormat(path string, format backend.Format) bool {
	return filepath.Ext(path) == format.Ext()
}
