package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pragmatic.dev/pkg/pragmatic/internal/adapter"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

// writeProject lays out files (slash separated, relative to the returned
// root) next to a go.mod.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	files["go.mod"] = "module example.com/shop\n\ngo 1.25\n"

	for rel, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}

	return root
}

func newTestRegistry(t *testing.T, files map[string]string) ModuleRegistry {
	t.Helper()

	root := writeProject(t, files)

	reg, err := NewRegistry(adapter.NewLocalSourceFSAdapter(), adapter.NewLocalGoFileAdapter(), m.Path(root))
	require.NoError(t, err)

	return reg
}

func newTestAuditor(t *testing.T, files map[string]string) Auditor {
	t.Helper()

	return NewAuditor(newTestRegistry(t, files), DefaultConfig("shop"))
}

func messages(findings []m.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Message)
	}

	return out
}
