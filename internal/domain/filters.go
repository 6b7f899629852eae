package domain

import (
	"context"
	"fmt"
	"strings"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const (
	filtersMarker     = "filters"
	filterTestsMarker = "tests.test_filters"
	filterPrefix      = "filter"
	filterSetSep      = "_filter_set_"
	filterSep         = "_filter_"
)

var filterClassSuffixes = []string{"filter", "filter_set", "mixin"}

type filterClass struct {
	module string
	decl   m.TypeDecl
	isSet  bool
}

// CheckFilters requires a test for every filter class and, for filter sets,
// a test for each filter method.
func (a *auditor) CheckFilters(ctx context.Context) ([]m.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	classes, err := a.filterClasses()
	if err != nil {
		return nil, err
	}

	tests, err := a.testsBySubmodule(filterTestsMarker)
	if err != nil {
		return nil, err
	}

	testedClasses, testedMethods, findings := deriveFilterTests(tests)

	for _, class := range classes {
		if _, ok := testedClasses[strings.ToLower(class.decl.Name)]; !ok {
			findings = append(findings, m.Finding{
				Check:   m.CheckFilters,
				Subject: class.module + "." + class.decl.Name,
				Module:  class.module,
				Lines:   []int{class.decl.Line},
				Message: fmt.Sprintf("%s.%s test missing", class.module, class.decl.Name),
			})
		}

		if !class.isSet {
			continue
		}

		var missing []string

		for _, method := range class.decl.Methods {
			snake := Snake(method.Name)
			if !strings.HasPrefix(snake, filterPrefix) {
				continue
			}

			key := class.decl.Name + "." + snake
			if _, ok := testedMethods[strings.ToLower(key)]; !ok {
				missing = append(missing, key)
			}
		}

		if len(missing) > 0 {
			findings = append(findings, m.Finding{
				Check:   m.CheckFilters,
				Subject: class.module + "." + class.decl.Name,
				Module:  class.module,
				Message: "missing tests for " + formatSet(missing),
			})
		}
	}

	return findings, nil
}

// filterClasses collects types of filters modules that build on a filter base
// or declare a filter* method.
func (a *auditor) filterClasses() ([]filterClass, error) {
	names := SubmoduleNames(a, a.cfg.CheckModules, []string{filtersMarker}, a.cfg.ExcludeModules)

	modules, err := a.loadModules(names)
	if err != nil {
		return nil, err
	}

	var classes []filterClass

	for _, mod := range modules {
		for _, decl := range mod.Types {
			isSet := embedsAny(decl, a.cfg.FilterSetBases)
			if isSet || embedsAny(decl, a.cfg.FilterBases) || hasFilterMethod(decl) {
				classes = append(classes, filterClass{module: mod.Name, decl: decl, isSet: isSet})
			}
		}
	}

	return classes, nil
}

func hasFilterMethod(decl m.TypeDecl) bool {
	for _, method := range decl.Methods {
		if strings.HasPrefix(Snake(method.Name), filterPrefix) {
			return true
		}
	}

	return false
}

// deriveFilterTests splits filter tests into class tests and method tests and
// derives the tested class and Class.method names, keyed in lower case.
func deriveFilterTests(tests []testRef) (map[string]struct{}, map[string]struct{}, []m.Finding) {
	classes := make(map[string]struct{})
	methods := make(map[string]struct{})

	var findings []m.Finding

	for _, ref := range tests {
		name := NormalizeTestName(ref.test.Name)

		if hasAnySuffix(name, filterClassSuffixes) {
			classes[strings.ToLower(Pascal(name))] = struct{}{}
			continue
		}

		class, method, ok := splitFilterMethodTest(name)
		if !ok {
			findings = append(findings, m.Finding{
				Check:   m.CheckFilters,
				Subject: ref.qualifiedName(),
				Module:  ref.module.Name,
				Lines:   []int{ref.test.StartLine},
				Message: fmt.Sprintf("cannot derive filter class from test name %s", ref.qualifiedName()),
			})

			continue
		}

		methods[strings.ToLower(class+"."+method)] = struct{}{}
	}

	return classes, methods, findings
}

// splitFilterMethodTest maps foo_filter_set_filter_bar to FooFilterSet.filter_bar
// and foo_filter_by_date to FooFilter.filter_by_date.
func splitFilterMethodTest(name string) (string, string, bool) {
	if strings.Contains(name, "filter_set") {
		parts := strings.SplitN(name, filterSetSep, 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", false
		}

		return Pascal(parts[0]) + "FilterSet", parts[1], true
	}

	parts := strings.SplitN(name, filterSep, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return Pascal(parts[0]) + "Filter", filterPrefix + "_" + parts[1], true
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}
