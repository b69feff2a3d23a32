// Package seed loads activity fixtures from YAML files and creates them
// through the activity service.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Ethan041028/audacieuses-content/internal/activity"
)

// Fixture is one activity described in a YAML file. Content may be a string
// or a mapping in any shape the content codec understands.
type Fixture struct {
	ID       string `yaml:"id"`
	ModuleID string `yaml:"module_id"`
	Title    string `yaml:"title"`
	Content  any    `yaml:"content"`

	Path string `yaml:"-"`
}

// Creator is the part of activity.Service the seeder needs.
type Creator interface {
	Create(ctx context.Context, in activity.CreateInput) (activity.Activity, error)
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

// Loader loads fixtures from a directory tree.
type Loader struct {
	rootDir  string
	fixtures map[string]Fixture // by path
	mu       sync.RWMutex
}

// NewLoader creates a loader and reads every *.yaml and *.yml file under
// rootDir. Files that do not parse or lack a module_id or title are skipped
// with a warning.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir:  rootDir,
		fixtures: make(map[string]Fixture),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading fixtures: %w", err)
	}

	slog.Info("seed fixtures loaded", "dir", rootDir, "fixtures", len(l.fixtures))
	return l, nil
}

// Fixtures returns the loaded fixtures ordered by file path.
func (l *Loader) Fixtures() []Fixture {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Fixture, 0, len(l.fixtures))
	for _, f := range l.fixtures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Apply creates every fixture. Fixtures whose id already exists count as
// skipped, so seeding the same directory twice is harmless. Fixtures the
// service rejects are skipped with a warning.
func (l *Loader) Apply(ctx context.Context, svc Creator) (Result, error) {
	var res Result
	for _, f := range l.Fixtures() {
		a, err := svc.Create(ctx, activity.CreateInput{
			ID:       f.ID,
			ModuleID: f.ModuleID,
			Title:    f.Title,
			Content:  f.Content,
		})
		switch {
		case err == nil:
			res.Created++
			slog.Debug("fixture applied", "path", f.Path, "activity_id", a.ID)
		case errors.Is(err, activity.ErrConflict):
			res.Skipped++
		case activity.IsClientError(err):
			res.Skipped++
			slog.Warn("skipping invalid fixture", "path", f.Path, "error", err)
		default:
			return res, fmt.Errorf("apply fixture %s: %w", f.Path, err)
		}
	}

	slog.Info("seed applied", "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadFixture(path)
		}
		return nil
	})
}

func (l *Loader) loadFixture(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping invalid fixture YAML", "path", path, "error", err)
		return nil
	}
	if strings.TrimSpace(f.ModuleID) == "" || strings.TrimSpace(f.Title) == "" {
		slog.Warn("skipping fixture without module_id or title", "path", path)
		return nil
	}
	f.Path = path

	l.mu.Lock()
	l.fixtures[path] = f
	l.mu.Unlock()

	return nil
}
