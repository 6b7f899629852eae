package domain

import (
	"sort"
	"strings"
)

// DefaultExcludeModules are the name fragments identifying non-production code.
var DefaultExcludeModules = []string{"migrations", "commands", "tests", "settings"}

// SubmoduleNames looks for leaf modules below each parent whose dotted name
// contains one of markers and none of excludes. Packages are never returned.
func SubmoduleNames(reg ModuleRegistry, parents, markers, excludes []string) []string {
	found := make(map[string]struct{})

	for _, name := range reg.Names() {
		if !underAny(name, parents) {
			continue
		}

		if !containsAny(name, markers) || containsAny(name, excludes) {
			continue
		}

		found[name] = struct{}{}
	}

	out := make([]string, 0, len(found))
	for name := range found {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// AppsToCheck returns the packages whose name starts with one of roots.
func AppsToCheck(reg ModuleRegistry, roots []string) []string {
	var apps []string

	for _, pkg := range reg.Packages() {
		for _, root := range roots {
			if strings.HasPrefix(pkg, root) {
				apps = append(apps, pkg)
				break
			}
		}
	}

	return apps
}

func underAny(name string, parents []string) bool {
	for _, parent := range parents {
		if strings.HasPrefix(name, parent+".") {
			return true
		}
	}

	return false
}

func containsAny(name string, fragments []string) bool {
	for _, fragment := range fragments {
		if fragment != "" && strings.Contains(name, fragment) {
			return true
		}
	}

	return false
}

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))

	for _, item := range list {
		if item != drop {
			out = append(out, item)
		}
	}

	return out
}
