package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const suiteAssertions = `Equal|EqualValues|EqualError|NotEqual|NotEqualValues|Exactly|True|False|Nil|NotNil|` +
	`NoError|Error|ErrorIs|NotErrorIs|ErrorAs|ErrorContains|Len|Empty|NotEmpty|Contains|NotContains|` +
	`ElementsMatch|Subset|NotSubset|Zero|NotZero|Greater|GreaterOrEqual|Less|LessOrEqual|Positive|Negative|` +
	`InDelta|InEpsilon|JSONEq|YAMLEq|Panics|PanicsWithValue|PanicsWithError|NotPanics|Eventually|Never|` +
	`IsType|Implements|Same|NotSame|FileExists|NoFileExists|DirExists|NoDirExists|Regexp|NotRegexp|` +
	`WithinDuration|Fail|FailNow|Condition`

// commentedAssertRe matches, right after "//": package-level testify calls,
// suite assertions (s.Equal, s.Require().NoError) and t.Error/t.Fatal.
var commentedAssertRe = regexp.MustCompile(
	`//\s?(?:(?:assert|require)\.[A-Z]\w*\(|\w+\.(?:Assert|Require)\(\)\.[A-Z]\w*\(|\w+\.(?:` +
		suiteAssertions + `)\(|t\.(?:Error|Errorf|Fatal|Fatalf)\()`,
)

// CheckCommentedAsserts flags assertions left commented out in test modules.
func (a *auditor) CheckCommentedAsserts(ctx context.Context) ([]m.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := SubmoduleNames(a, a.cfg.CheckModules, []string{testsSegment}, without(a.cfg.ExcludeModules, testsSegment))

	modules, err := a.loadModules(names)
	if err != nil {
		return nil, err
	}

	var findings []m.Finding

	for _, mod := range modules {
		for _, file := range mod.Files {
			for i, line := range file.Lines {
				for range commentedAssertRe.FindAllStringIndex(line, -1) {
					findings = append(findings, m.Finding{
						Check:   m.CheckAsserts,
						Subject: strings.TrimSpace(line),
						Module:  mod.Name,
						File:    file.ShortPath,
						Lines:   []int{i + 1},
						Message: fmt.Sprintf("commented assert in %s, line %d: %s", file.ShortPath, i+1, strings.TrimSpace(line)),
					})
				}
			}
		}
	}

	return findings, nil
}
