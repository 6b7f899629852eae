package domain

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const (
	permissionTestsMarker = "tests.test_permissions"
	superuserPermission   = "is_superuser"
)

var (
	commentLineRe     = regexp.MustCompile(`^\s*//`)
	hasPermRe         = regexp.MustCompile(`HasPerm\(\s*"([a-z]+\.[a-z_]+)`)
	permissionFieldRe = regexp.MustCompile(`\b[Pp]ermission\s*(?::=|=|:)\s*"([a-z]+\.[a-z_]+)`)
	superuserRe       = regexp.MustCompile(`\.(?:IsSuperuser|is_superuser)\b`)

	testPermissionRe = regexp.MustCompile(`\bpermission\s*:?=\s*"([a-z]+\.[a-z_]+|` + superuserPermission + `)"`)
	testPathRe       = regexp.MustCompile(`\bpermission(?:Path|_path)\s*:?=\s*"([a-z_.]+)"`)
)

// permissionUsage maps permission -> module path -> line numbers.
type permissionUsage map[string]map[string][]int

func (u permissionUsage) add(perm, path string, line int) {
	if u[perm] == nil {
		u[perm] = make(map[string][]int)
	}

	for _, existing := range u[perm][path] {
		if existing == line {
			return
		}
	}

	u[perm][path] = append(u[perm][path], line)
}

// CheckPermissions requires one test per explicit permission check, located
// by the module the check occurs in.
func (a *auditor) CheckPermissions(ctx context.Context) ([]m.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	usage, err := a.permissionUsage()
	if err != nil {
		return nil, err
	}

	tests, err := a.testsBySubmodule(permissionTestsMarker)
	if err != nil {
		return nil, err
	}

	tested := make(map[string]map[string][]string) // permission -> path -> tests

	var findings []m.Finding

	for _, ref := range tests {
		match := testPermissionRe.FindStringSubmatch(ref.test.Source)
		if match == nil {
			findings = append(findings, m.Finding{
				Check:   m.CheckPermissions,
				Subject: ref.qualifiedName(),
				Module:  ref.module.Name,
				Lines:   []int{ref.test.StartLine},
				Message: fmt.Sprintf("test %s does not declare the permission it covers", ref.qualifiedName()),
			})

			continue
		}

		perm := match[1]

		path := ""
		if declared := testPathRe.FindStringSubmatch(ref.test.Source); declared != nil {
			path = declared[1]
		}

		if path == "" || !a.Has(path) {
			path = a.permissionPathForTest(ref)
		}

		if containsAny(path, a.cfg.ExcludeModules) {
			continue
		}

		if tested[perm] == nil {
			tested[perm] = make(map[string][]string)
		}

		tested[perm][path] = append(tested[perm][path], ref.qualifiedName())
	}

	for _, perm := range sortedKeys(usage) {
		for _, path := range sortedKeys(usage[perm]) {
			lines := usage[perm][path]
			found := tested[perm][path]

			if len(lines) != len(found) {
				findings = append(findings, m.Finding{
					Check:   m.CheckPermissions,
					Subject: perm,
					Module:  path,
					Lines:   lines,
					Message: fmt.Sprintf("Missing test for permission %q in %q, lines %v. Tests found: %v",
						perm, path, lines, sortedCopy(found)),
				})
			}

			delete(tested[perm], path)
		}
	}

	var surplus []string

	for _, paths := range tested {
		for _, names := range paths {
			surplus = append(surplus, names...)
		}
	}

	if len(surplus) > 0 {
		sort.Strings(surplus)

		findings = append(findings, m.Finding{
			Check:   m.CheckPermissions,
			Subject: "surplus",
			Message: fmt.Sprintf("Surplus tests found: %v", surplus),
		})
	}

	return findings, nil
}

// permissionUsage scans production modules line by line for explicit
// permission checks. Commented lines are ignored.
func (a *auditor) permissionUsage() (permissionUsage, error) {
	names := SubmoduleNames(a, a.cfg.CheckModules, a.cfg.CheckModules, a.cfg.ExcludeModules)

	modules, err := a.loadModules(names)
	if err != nil {
		return nil, err
	}

	usage := make(permissionUsage)

	for _, mod := range modules {
		for _, file := range mod.Files {
			for i, line := range file.Lines {
				if commentLineRe.MatchString(line) {
					continue
				}

				for _, match := range hasPermRe.FindAllStringSubmatch(line, -1) {
					usage.add(match[1], mod.Name, i+1)
				}

				for _, match := range permissionFieldRe.FindAllStringSubmatch(line, -1) {
					usage.add(match[1], mod.Name, i+1)
				}

				if superuserRe.MatchString(line) {
					usage.add(superuserPermission, mod.Name, i+1)
				}
			}
		}
	}

	return usage, nil
}

// permissionPathForTest derives the module a permission test covers from its
// name: TestOrdersViewsCreateOrder under root shop resolves to the longest
// known prefix of shop.orders.views.create.order, also trying the variant
// with the last dot kept as an underscore.
func (a *auditor) permissionPathForTest(ref testRef) string {
	full := a.rootFor(ref.module.Name) + "." + NormalizeTestName(ref.test.Name)
	path := trimLastSegment(full)

	for i := 1; i <= strings.Count(full, "_")+1; i++ {
		candidate := trimLastSegment(strings.Replace(full, "_", ".", i))
		if candidate == path {
			candidate = strings.Replace(full, "_", ".", i)
		}

		alternative := joinLastSegment(trimLastSegment(strings.Replace(full, "_", ".", i+1)))

		switch {
		case a.Has(candidate):
			path = candidate
		case a.Has(alternative):
			path = alternative
		default:
			return path
		}
	}

	return path
}

func trimLastSegment(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[:idx]
	}

	return name
}

func joinLastSegment(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name
	}

	return name[:idx] + "_" + name[idx+1:]
}

func sortedCopy(items []string) []string {
	out := append([]string{}, items...)
	sort.Strings(out)

	return out
}
