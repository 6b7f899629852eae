// Package domain contains the coverage auditor: module discovery, naming
// conventions and the individual coverage checks.
package domain

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"pragmatic.dev/pkg/pragmatic/internal/adapter"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const (
	goExt         = ".go"
	testFileExt   = "_test.go"
	testsSegment  = "tests"
	testModPrefix = "test_"
)

// ErrModuleNotFound is returned when a module name is not part of the project.
var ErrModuleNotFound = errors.New("module not found")

// ImportError wraps a failure to load a discovered module.
type ImportError struct {
	Module string
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Module, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ModuleRegistry indexes the Go files of a project under dotted module names
// and parses them on first use.
type ModuleRegistry interface {
	// Root returns the project root the registry was built from.
	Root() m.Path
	// Names returns every leaf module name, sorted.
	Names() []string
	// Has reports whether name is a known module or package.
	Has(name string) bool
	// IsPackage reports whether name is a package directory.
	IsPackage(name string) bool
	// Packages returns every package name, sorted.
	Packages() []string
	// Load returns the parsed module, parsing it when not yet loaded.
	Load(name string) (*m.Module, error)
	// Preload parses the given modules concurrently.
	Preload(ctx context.Context, names []string, threads int) error
}

type registry struct {
	adapter.SourceFSAdapter
	adapter.GoFileAdapter

	root     m.Path
	files    map[string][]m.Path // module name -> file paths
	packages map[string]m.Path // package name -> directory path

	mu      sync.Mutex
	loaded  map[string]*m.Module
	methods map[string]map[string][]m.Method // package dir -> receiver -> methods
}

// NewRegistry walks root and indexes every Go file below it.
func NewRegistry(fsAdapter adapter.SourceFSAdapter, goAdapter adapter.GoFileAdapter, root m.Path) (ModuleRegistry, error) {
	r := &registry{
		SourceFSAdapter: fsAdapter,
		GoFileAdapter:   goAdapter,
		root:            root,
		files:           make(map[string][]m.Path),
		packages:        make(map[string]m.Path),
		loaded:          make(map[string]*m.Module),
		methods:         make(map[string]map[string][]m.Method),
	}

	if err := r.index(); err != nil {
		return nil, err
	}

	slog.Debug("indexed project", "root", root, "modules", len(r.files), "packages", len(r.packages))

	return r, nil
}

func (r *registry) index() error {
	if _, err := r.FileInfo(r.root); err != nil {
		slog.Error("Project root is not accessible", "root", r.root, "error", err)
		return fmt.Errorf("root path error: %w", err)
	}

	return r.Walk(r.root, true, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || filepath.Ext(path) != goExt {
			return nil
		}

		rel, err := r.RelPath(r.root, m.Path(path))
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}

		name := ModuleNameForPath(string(rel))
		if len(r.files[name]) > 0 {
			slog.Debug("merging files into one module", "module", name, "path", path, "with", r.files[name])
		}

		r.files[name] = append(r.files[name], m.Path(path))

		dir := packageNameForPath(string(rel))
		if dir != "" {
			r.packages[dir] = m.Path(filepath.Dir(path))
		}

		return nil
	})
}

// ModuleNameForPath converts a root-relative file path into a dotted module
// name. Test files are placed under a synthetic tests.test_<base> name.
func ModuleNameForPath(rel string) string {
	rel = filepath.ToSlash(rel)
	dir, base := splitDirBase(rel)

	if strings.HasSuffix(base, testFileExt) {
		parts := dotted(dir)
		if len(parts) > 0 && parts[len(parts)-1] == testsSegment {
			parts = parts[:len(parts)-1]
		}

		parts = append(parts, testsSegment, testModPrefix+strings.TrimSuffix(base, testFileExt))

		return strings.Join(parts, ".")
	}

	return strings.Join(append(dotted(dir), strings.TrimSuffix(base, goExt)), ".")
}

func packageNameForPath(rel string) string {
	dir, _ := splitDirBase(filepath.ToSlash(rel))
	return strings.Join(dotted(dir), ".")
}

func splitDirBase(rel string) (string, string) {
	idx := strings.LastIndex(rel, "/")
	if idx < 0 {
		return "", rel
	}

	return rel[:idx], rel[idx+1:]
}

func dotted(dir string) []string {
	if dir == "" || dir == "." {
		return nil
	}

	return strings.Split(dir, "/")
}

func (r *registry) Root() m.Path {
	return r.root
}

func (r *registry) Names() []string {
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *registry) Packages() []string {
	names := make([]string, 0, len(r.packages))
	for name := range r.packages {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *registry) Has(name string) bool {
	if _, ok := r.files[name]; ok {
		return true
	}

	return r.IsPackage(name)
}

func (r *registry) IsPackage(name string) bool {
	_, ok := r.packages[name]
	return ok
}

func (r *registry) Load(name string) (*m.Module, error) {
	r.mu.Lock()
	if mod, ok := r.loaded[name]; ok {
		r.mu.Unlock()
		return mod, nil
	}
	r.mu.Unlock()

	paths, ok := r.files[name]
	if !ok {
		return nil, &ImportError{Module: name, Err: ErrModuleNotFound}
	}

	mod := &m.Module{Name: name}

	for _, path := range paths {
		if err := r.parseInto(mod, path); err != nil {
			slog.Error("Failed to import module", "module", name, "path", path, "error", err)
			return nil, &ImportError{Module: name, Err: err}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.loaded[name]; ok {
		return existing, nil
	}

	r.loaded[name] = mod

	return mod, nil
}

func (r *registry) Preload(ctx context.Context, names []string, threads int) error {
	group, groupCtx := errgroup.WithContext(ctx)
	if threads > 0 {
		group.SetLimit(threads)
	}

	for _, name := range names {
		current := name

		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			_, err := r.Load(current)

			return err
		})
	}

	return group.Wait()
}

// parseInto parses the file at path and adds its declarations to mod.
func (r *registry) parseInto(mod *m.Module, path m.Path) error {
	src, err := r.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	fset := token.NewFileSet()

	file, err := r.Parse(fset, string(path), src)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	rel, err := r.RelPath(r.root, path)
	if err != nil {
		return err
	}

	mod.Files = append(mod.Files, &m.File{
		ShortPath: rel,
		FullPath:  path,
		Lines:     strings.Split(string(src), "\n"),
	})

	if strings.HasSuffix(string(path), testFileExt) {
		mod.IsTest = true
		mod.Tests = append(mod.Tests, r.ExtractTests(fset, file, src)...)

		return nil
	}

	types := r.ExtractTypes(fset, file)

	methods, err := r.packageMethods(filepath.Dir(string(path)), file.Name.Name)
	if err != nil {
		return err
	}

	for i := range types {
		types[i].Methods = methods[types[i].Name]
	}

	mod.Funcs = append(mod.Funcs, r.ExtractFuncs(fset, file)...)
	mod.Types = append(mod.Types, types...)

	return nil
}

// packageMethods collects methods of every non-test file in dir that belongs
// to pkgName. Methods of a type may be declared outside the file holding it.
func (r *registry) packageMethods(dir, pkgName string) (map[string][]m.Method, error) {
	key := dir + "#" + pkgName

	r.mu.Lock()
	if cached, ok := r.methods[key]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	methods := make(map[string][]m.Method)

	err := r.Walk(m.Path(dir), false, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || filepath.Ext(path) != goExt || strings.HasSuffix(path, testFileExt) {
			return nil
		}

		src, err := r.ReadFile(m.Path(path))
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		fset := token.NewFileSet()

		file, err := r.Parse(fset, path, src)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		if file.Name.Name != pkgName {
			return nil
		}

		for receiver, list := range r.ExtractMethods(fset, file) {
			methods[receiver] = append(methods[receiver], list...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.methods[key] = methods
	r.mu.Unlock()

	return methods, nil
}
