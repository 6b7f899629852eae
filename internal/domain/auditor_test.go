package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

func TestAuditor_Run(t *testing.T) {
	files := map[string]string{
		"shop/orders/filters.go": `package orders

type FilterSet struct{}

type OrderFilterSet struct {
	FilterSet
}
`,
		"shop/orders/signals.go": "package orders\n\nfunc OnOrderCreated() {}\n",
		"shop/orders/signals_test.go": `package orders

import "testing"

func TestOnOrderCreated(t *testing.T) {}
`,
	}

	t.Run("all checks", func(t *testing.T) {
		report, err := newTestAuditor(t, files).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, m.AllChecks, report.Checks)
		assert.False(t, report.Passed())
		require.Len(t, report.FindingsFor(m.CheckFilters), 1)
		assert.Equal(t, "shop.orders.filters.OrderFilterSet test missing", report.FindingsFor(m.CheckFilters)[0].Message)
		assert.Empty(t, report.FindingsFor(m.CheckSignals))
	})

	t.Run("selected checks only", func(t *testing.T) {
		report, err := newTestAuditor(t, files).Run(context.Background(), m.CheckSignals)
		require.NoError(t, err)

		assert.Equal(t, []m.CheckKind{m.CheckSignals}, report.Checks)
		assert.True(t, report.Passed())
	})

	t.Run("unknown check", func(t *testing.T) {
		_, err := newTestAuditor(t, files).Run(context.Background(), m.CheckKind("bogus"))
		require.Error(t, err)
	})
}

func TestAuditor_Run_ImportErrorAborts(t *testing.T) {
	auditor := newTestAuditor(t, map[string]string{
		"shop/orders/filters.go": "package orders\n\ntype {",
	})

	_, err := auditor.Run(context.Background())
	require.Error(t, err)

	var importErr *ImportError
	require.True(t, errors.As(err, &importErr))
	assert.Equal(t, "shop.orders.filters", importErr.Module)
}

func TestAuditor_RootFor(t *testing.T) {
	a := NewAuditor(newTestRegistry(t, map[string]string{}), DefaultConfig("shop", "shop.orders")).(*auditor)

	assert.Equal(t, "shop.orders", a.rootFor("shop.orders.tests.test_permissions"))
	assert.Equal(t, "shop", a.rootFor("shop.users.tests.test_permissions"))
	assert.Equal(t, "other", a.rootFor("other.tests.test_permissions"))
}
