package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const ordersViews = `package orders

type User struct{ IsSuperuser bool }

func (u User) HasPerm(p string) bool { return true }

func CreateOrder(u User) bool {
	return u.HasPerm("orders.add_order")
}

func DeleteOrder(u User) bool {
	// u.HasPerm("orders.delete_order")
	return u.IsSuperuser
}
`

const ordersRules = `package orders

type Rule struct{ Permission string }

var editRule = Rule{Permission: "orders.change_order"}
`

func TestAuditor_CheckPermissions(t *testing.T) {
	t.Run("each occurrence has a test", func(t *testing.T) {
		auditor := newTestAuditor(t, map[string]string{
			"shop/orders/views.go": ordersViews,
			"shop/orders/rules.go": ordersRules,
			"shop/orders/permissions_test.go": `package orders

import "testing"

func TestOrdersViewsCreateOrder(t *testing.T) {
	permission := "orders.add_order"
	_ = permission
}

func TestDeleteOrderSuperuser(t *testing.T) {
	permission := "is_superuser"
	permissionPath := "shop.orders.views"
	_, _ = permission, permissionPath
}

func TestOrdersRulesEditRule(t *testing.T) {
	var permission = "orders.change_order"
	_ = permission
}
`,
		})

		findings, err := auditor.CheckPermissions(context.Background())
		require.NoError(t, err)
		assert.Empty(t, findings)
	})

	t.Run("missing surplus and undeclared tests", func(t *testing.T) {
		auditor := newTestAuditor(t, map[string]string{
			"shop/orders/views.go": ordersViews,
			"shop/orders/rules.go": ordersRules,
			"shop/orders/permissions_test.go": `package orders

import "testing"

func TestOrdersViewsCreateOrder(t *testing.T) {
	permission := "orders.add_order"
	_ = permission
}

func TestDeleteOrderSuperuser(t *testing.T) {
	permission := "is_superuser"
	permissionPath := "shop.orders.views"
	_, _ = permission, permissionPath
}

func TestOrdersViewsViewOrder(t *testing.T) {
	permission := "orders.view_order"
	_ = permission
}

func TestOrdersViewsNothing(t *testing.T) {}
`,
		})

		findings, err := auditor.CheckPermissions(context.Background())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			"test shop.orders.tests.test_permissions.TestOrdersViewsNothing does not declare the permission it covers",
			`Missing test for permission "orders.change_order" in "shop.orders.rules", lines [5]. Tests found: []`,
			"Surplus tests found: [shop.orders.tests.test_permissions.TestOrdersViewsViewOrder]",
		}, messages(findings))
	})
}

func TestAuditor_PermissionUsage(t *testing.T) {
	a := NewAuditor(newTestRegistry(t, map[string]string{
		"shop/orders/views.go": ordersViews,
		"shop/orders/rules.go": ordersRules,
	}), DefaultConfig("shop")).(*auditor)

	usage, err := a.permissionUsage()
	require.NoError(t, err)

	assert.Equal(t, permissionUsage{
		"orders.add_order":    {"shop.orders.views": {8}},
		"is_superuser":        {"shop.orders.views": {13}},
		"orders.change_order": {"shop.orders.rules": {5}},
	}, usage)
}

func TestAuditor_PermissionPathForTest(t *testing.T) {
	a := NewAuditor(newTestRegistry(t, map[string]string{
		"shop/orders/views.go":            "package orders\n",
		"shop/orders/order_rules.go":      "package orders\n",
		"shop/orders/permissions_test.go": "package orders\n",
	}), DefaultConfig("shop")).(*auditor)

	mod := "shop.orders.tests.test_permissions"

	tests := []struct {
		name string
		want string
	}{
		{"TestOrdersViewsCreateOrder", "shop.orders.views"},
		{"TestOrdersOrderRulesEdit", "shop.orders.order_rules"},
		{"TestOrdersUnknownThing", "shop.orders"},
		{"TestNowhere", "shop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := testRef{module: &m.Module{Name: mod}, test: m.TestFunc{Name: tt.name}}
			assert.Equal(t, tt.want, a.permissionPathForTest(ref))
		})
	}
}
