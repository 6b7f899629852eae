package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const (
	signalsMarker     = "signals"
	signalTestsMarker = "tests.test_signals"
)

// CheckSignals requires the set of signal handlers and the set of signal
// tests to be equal.
func (a *auditor) CheckSignals(ctx context.Context) ([]m.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := SubmoduleNames(a, a.cfg.CheckModules, []string{signalsMarker}, a.cfg.ExcludeModules)

	modules, err := a.loadModules(names)
	if err != nil {
		return nil, err
	}

	signals := make(map[string]string) // canonical -> original

	for _, mod := range modules {
		for _, fn := range mod.Funcs {
			key := mod.Name + "." + fn.Name
			signals[Canonical(key)] = key
		}
	}

	tests, err := a.testsBySubmodule(signalTestsMarker)
	if err != nil {
		return nil, err
	}

	tested := make(map[string]string)

	for _, ref := range tests {
		key := signalKeyForTest(ref)
		tested[Canonical(key)] = key
	}

	var diff []string

	for canonical, original := range signals {
		if _, ok := tested[canonical]; !ok {
			diff = append(diff, original)
		}
	}

	for canonical, original := range tested {
		if _, ok := signals[canonical]; !ok {
			diff = append(diff, original)
		}
	}

	if len(diff) == 0 {
		return nil, nil
	}

	sort.Strings(diff)

	message := fmt.Sprintf("Signals not matching: [%s]", strings.Join(diff, ", "))

	unified, err := signalDiff(sortedValues(signals), sortedValues(tested))
	if err != nil {
		slog.Warn("failed to render signal diff", "error", err)
	} else if unified != "" {
		message += "\n" + unified
	}

	return []m.Finding{{
		Check:   m.CheckSignals,
		Subject: strings.Join(a.cfg.CheckModules, ","),
		Message: message,
	}}, nil
}

// signalKeyForTest maps shop.orders.tests.test_signals.TestOnOrderCreated to
// shop.orders.signals.OnOrderCreated.
func signalKeyForTest(ref testRef) string {
	module := strings.ReplaceAll(ref.module.Name, signalTestsMarker, signalsMarker)
	name := strings.TrimLeft(strings.TrimPrefix(ref.test.Name, "Test"), "_")

	return module + "." + name
}

func signalDiff(signals, tests []string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        canonicalLines(signals),
		B:        canonicalLines(tests),
		FromFile: "signals",
		ToFile:   "tests",
		Context:  1,
	})
}

func canonicalLines(keys []string) []string {
	lines := make([]string, len(keys))
	for i, key := range keys {
		lines[i] = Canonical(key) + "\n"
	}

	sort.Strings(lines)

	return lines
}

func sortedValues(in map[string]string) []string {
	out := make([]string, 0, len(in))
	for _, value := range in {
		out = append(out, value)
	}

	sort.Strings(out)

	return out
}
