package domain

import (
	"context"
	"fmt"
	"strings"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const (
	managerTestsMarker   = "tests.test_managers"
	implicitTestClassKey = ""
)

var (
	managerMarkers      = []string{"managers", "querysets"}
	managerTestSuffixes = []string{"manager", "queryset", "query_set"}
)

// CheckManagers requires a test for every type declared in managers and
// querysets modules, then verifies per app that each manager test suite
// covers exactly the app's managers.
func (a *auditor) CheckManagers(ctx context.Context) ([]m.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := SubmoduleNames(a, a.cfg.CheckModules, managerMarkers, a.cfg.ExcludeModules)

	modules, err := a.loadModules(names)
	if err != nil {
		return nil, err
	}

	tests, err := a.testsBySubmodule(managerTestsMarker)
	if err != nil {
		return nil, err
	}

	tested := make(map[string]struct{})

	for _, ref := range tests {
		if class, ok := managerClassForTest(ref.test.Name); ok {
			tested[strings.ToLower(class)] = struct{}{}
		}
	}

	var findings []m.Finding

	for _, mod := range modules {
		for _, decl := range mod.Types {
			if _, ok := tested[strings.ToLower(decl.Name)]; ok {
				continue
			}

			findings = append(findings, m.Finding{
				Check:   m.CheckManagers,
				Subject: mod.Name + "." + decl.Name,
				Module:  mod.Name,
				Lines:   []int{decl.Line},
				Message: fmt.Sprintf("%s.%s test missing", mod.Name, decl.Name),
			})
		}
	}

	appFindings, err := a.checkAppManagers(ctx)
	if err != nil {
		return nil, err
	}

	return append(findings, appFindings...), nil
}

func (a *auditor) checkAppManagers(ctx context.Context) ([]m.Finding, error) {
	var findings []m.Finding

	for _, app := range AppsToCheck(a, a.cfg.CheckModules) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		managers := make(map[string]string) // lower -> declared name

		for _, marker := range managerMarkers {
			name := app + "." + marker
			if !a.Has(name) || a.IsPackage(name) {
				continue
			}

			mod, err := a.Load(name)
			if err != nil {
				return nil, err
			}

			for _, decl := range mod.Types {
				managers[strings.ToLower(decl.Name)] = decl.Name
			}
		}

		testsName := app + "." + managerTestsMarker
		if !a.Has(testsName) {
			if len(managers) > 0 {
				findings = append(findings, m.Finding{
					Check:   m.CheckManagers,
					Subject: app,
					Message: "Missing manager tests for app " + app,
				})
			}

			continue
		}

		if len(managers) == 0 {
			continue
		}

		testMod, err := a.Load(testsName)
		if err != nil {
			return nil, err
		}

		classes := testClasses(testMod)

		for _, class := range sortedKeys(classes) {
			covered := make(map[string]struct{})

			for _, test := range classes[class] {
				if derived, ok := managerClassForTest(test.Name); ok {
					covered[strings.ToLower(derived)] = struct{}{}
				}
			}

			// suite runners such as TestManagersSuite(t) test nothing by name
			if len(covered) == 0 {
				continue
			}

			var missing, surplus []string

			for lower, declared := range managers {
				if _, ok := covered[lower]; !ok {
					missing = append(missing, declared)
				}
			}

			for lower := range covered {
				if _, ok := managers[lower]; !ok {
					surplus = append(surplus, lower)
				}
			}

			if len(missing) == 0 && len(surplus) == 0 {
				continue
			}

			subject := testsName
			if class != implicitTestClassKey {
				subject += "." + class
			}

			message := fmt.Sprintf("Missing managers for app %s: %s", app, formatSet(missing))
			if len(surplus) > 0 {
				message += fmt.Sprintf(", tests without manager: %s", formatSet(surplus))
			}

			findings = append(findings, m.Finding{
				Check:   m.CheckManagers,
				Subject: subject,
				Module:  testsName,
				Message: message,
			})
		}
	}

	return findings, nil
}

// managerClassForTest maps TestOrderManager or Test_order_queryset to the
// manager type it covers. Tests not ending in a manager suffix are ignored.
func managerClassForTest(testName string) (string, bool) {
	name := NormalizeTestName(testName)
	if !hasAnySuffix(name, managerTestSuffixes) {
		return "", false
	}

	return strings.ReplaceAll(Pascal(name), "Queryset", "QuerySet"), true
}

// testClasses groups tests by suite receiver. Top-level tests share the
// implicit class keyed by the empty string.
func testClasses(mod *m.Module) map[string][]m.TestFunc {
	classes := make(map[string][]m.TestFunc)

	for _, test := range mod.Tests {
		classes[test.Receiver] = append(classes[test.Receiver], test)
	}

	return classes
}
