package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

func TestAuditor_CheckCommentedAsserts(t *testing.T) {
	auditor := newTestAuditor(t, map[string]string{
		"shop/orders/views.go": "package orders\n\n// assert.Equal(t, 1, 2)\n",
		"shop/orders/views_test.go": `package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestView(t *testing.T) {
	assert.Equal(t, 1, 1)
	// assert.Equal(t, 1, 2)
	//require.NoError(t, nil)
	// s.Require().Len(x, 1)
	// t.Fatalf("boom")
	// the assert.Equal below is fine
}
`,
		"shop/orders/migrations/old_test.go": "package migrations\n\n// assert.True(t, false)\n",
	})

	findings, err := auditor.CheckCommentedAsserts(context.Background())
	require.NoError(t, err)

	var lines []int
	for _, f := range findings {
		assert.Equal(t, m.CheckAsserts, f.Check)
		assert.Equal(t, "shop.orders.tests.test_views", f.Module)
		assert.Equal(t, m.Path("shop/orders/views_test.go"), f.File)
		lines = append(lines, f.Lines...)
	}

	assert.Equal(t, []int{11, 12, 13, 14}, lines)
	assert.Equal(t, "// assert.Equal(t, 1, 2)", findings[0].Subject)
	assert.Contains(t, findings[0].Message, "shop/orders/views_test.go, line 11")
}

func TestAuditor_CheckCommentedAsserts_SuiteAssertions(t *testing.T) {
	auditor := newTestAuditor(t, map[string]string{
		"shop/orders/orders_test.go": `package orders

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type OrdersSuite struct {
	suite.Suite
}

func (s *OrdersSuite) TestTotal() {
	s.Equal(1, 1)
	// s.Equal(1, 2)
	// s.NoError(err)
	//s.ErrorIs(err, ErrNotFound)
	// s.Require().Len(items, 2)
	// s.T().Log("debugging")
	// fmt.Println(total)
	// s.total is cached
}

func TestOrdersSuite(t *testing.T) {
	suite.Run(t, new(OrdersSuite))
}
`,
	})

	findings, err := auditor.CheckCommentedAsserts(context.Background())
	require.NoError(t, err)

	var subjects []string
	for _, f := range findings {
		assert.Equal(t, "shop.orders.tests.test_orders", f.Module)
		subjects = append(subjects, f.Subject)
	}

	assert.Equal(t, []string{
		"// s.Equal(1, 2)",
		"// s.NoError(err)",
		"//s.ErrorIs(err, ErrNotFound)",
		"// s.Require().Len(items, 2)",
	}, subjects)
}

func TestAuditor_CheckCommentedAsserts_MergedModule(t *testing.T) {
	auditor := newTestAuditor(t, map[string]string{
		"shop/orders/views_test.go":       "package orders\n\n// assert.True(t, ok)\n",
		"shop/orders/tests/views_test.go": "package tests\n\nimport \"testing\"\n\nfunc TestView(t *testing.T) {\n\t// t.Fatal(\"boom\")\n}\n",
	})

	findings, err := auditor.CheckCommentedAsserts(context.Background())
	require.NoError(t, err)
	require.Len(t, findings, 2)

	files := map[m.Path][]int{}
	for _, f := range findings {
		assert.Equal(t, "shop.orders.tests.test_views", f.Module)
		files[f.File] = f.Lines
	}

	assert.Equal(t, map[m.Path][]int{
		"shop/orders/views_test.go":       {3},
		"shop/orders/tests/views_test.go": {6},
	}, files)
}
