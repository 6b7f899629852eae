package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSubmoduleNames(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"shop/orders/filters.go":            "package orders\n",
		"shop/orders/filters_test.go":       "package orders\n",
		"shop/orders/migrations/filters.go": "package migrations\n",
		"shop/users/filters.go":             "package users\n",
		"shop/users/managers.go":            "package users\n",
		"other/filters.go":                  "package other\n",
	})

	tests := []struct {
		name     string
		parents  []string
		markers  []string
		excludes []string
		want     []string
	}{
		{
			name:     "filters without excluded modules",
			parents:  []string{"shop"},
			markers:  []string{"filters"},
			excludes: DefaultExcludeModules,
			want:     []string{"shop.orders.filters", "shop.users.filters"},
		},
		{
			name:    "test modules",
			parents: []string{"shop"},
			markers: []string{"tests.test_filters"},
			want:    []string{"shop.orders.tests.test_filters"},
		},
		{
			name:    "overlapping parents are de-duplicated",
			parents: []string{"shop", "shop.users"},
			markers: []string{"filters", "managers"},
			want: []string{
				"shop.orders.filters",
				"shop.orders.migrations.filters",
				"shop.orders.tests.test_filters",
				"shop.users.filters",
				"shop.users.managers",
			},
		},
		{
			name:     "packages are never returned",
			parents:  []string{"shop"},
			markers:  []string{"shop.orders"},
			excludes: []string{"filters"},
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SubmoduleNames(reg, tt.parents, tt.markers, tt.excludes)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SubmoduleNames() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAppsToCheck(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"shop/orders/managers.go": "package orders\n",
		"shop/users/managers.go":  "package users\n",
		"other/managers.go":       "package other\n",
	})

	got := AppsToCheck(reg, []string{"shop"})
	if diff := cmp.Diff([]string{"shop.orders", "shop.users"}, got); diff != "" {
		t.Errorf("AppsToCheck() mismatch (-want +got):\n%s", diff)
	}
}
