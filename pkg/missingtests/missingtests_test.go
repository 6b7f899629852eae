package missingtests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pragmatic.dev/pkg/pragmatic/internal/domain"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const filters = `package orders

type FilterSet struct{}

type OrderFilterSet struct {
	FilterSet
}

func (f *OrderFilterSet) FilterStatus(v string) {}
`

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

func TestCheck_CoveredProject(t *testing.T) {
	root := writeProject(t, map[string]string{
		"shop/orders/filters.go": filters,
		"shop/orders/filters_test.go": `package orders

import "testing"

func TestOrderFilterSet(t *testing.T) {}

func TestOrderFilterSet_FilterStatus(t *testing.T) {}
`,
	})

	Check(t, Config{Root: root, CheckModules: []string{"shop"}, Checks: []string{"filters", "asserts"}})
}

func TestAudit_ReportsFindings(t *testing.T) {
	root := writeProject(t, map[string]string{
		"shop/orders/filters.go": filters,
		"shop/orders/filters_test.go": `package orders

import "testing"

func TestOrderFilterSet(t *testing.T) {
	// assert.Equal(t, 1, 2)
}
`,
	})

	report, err := audit(context.Background(), Config{Root: filepath.Join(root, "shop"), CheckModules: []string{"shop"}})
	require.NoError(t, err)

	assert.Equal(t, m.AllChecks, report.Checks)
	assert.Len(t, report.FindingsFor(m.CheckFilters), 1)
	assert.Len(t, report.FindingsFor(m.CheckAsserts), 1)
}

func TestAudit_UnknownCheck(t *testing.T) {
	_, err := audit(context.Background(), Config{Root: t.TempDir(), Checks: []string{"coverage"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coverage")
}

func TestAuditConfig(t *testing.T) {
	defaults := auditConfig(Config{CheckModules: []string{"shop"}})
	assert.Equal(t, domain.DefaultConfig("shop"), defaults)

	custom := auditConfig(Config{
		CheckModules:   []string{"shop"},
		ExcludeModules: []string{},
		FilterBases:    []string{"BaseFilter"},
	})
	assert.Empty(t, custom.ExcludeModules)
	assert.Equal(t, []string{"BaseFilter"}, custom.FilterBases)
	assert.Equal(t, []string{"FilterSet"}, custom.FilterSetBases)
}
