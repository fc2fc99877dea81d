//go:build property

package analyzer

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// loopSources answers every load with a source that renders the next
// snippet, so template sets form arbitrary reference cycles.
type loopSources struct {
	fanout int
}

func (l loopSources) LoadRaw(_ context.Context, _ string, path string) (string, error) {
	return fmt.Sprintf("{%% render 'snippet-%d' %%}", len(path)%l.fanout), nil
}

func TestAnalyzerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("analysis never panics and never returns nil", prop.ForAll(
		func(source string) bool {
			a := New(nil, nil).Analyze(source, "templates/index.liquid")
			return a != nil && a.RequiredData != nil
		},
		gen.AnyString(),
	))

	properties.Property("analysis is deterministic", prop.ForAll(
		func(source string) bool {
			an := New(nil, nil)
			first := an.Analyze(source, "templates/page.liquid")
			second := an.Analyze(source, "templates/page.liquid")
			if len(first.RequiredData) != len(second.RequiredData) {
				return false
			}
			for kind := range first.RequiredData {
				if !second.Requires(kind) {
					return false
				}
			}
			return first.HasPagination == second.HasPagination
		},
		gen.AnyString(),
	))

	properties.Property("merge order does not change requirement presence", prop.ForAll(
		func(a, b string) bool {
			an := New(nil, nil)
			left := an.Analyze(a, "a.liquid")
			left.Merge(an.Analyze(b, "b.liquid"))
			right := an.Analyze(b, "b.liquid")
			right.Merge(an.Analyze(a, "a.liquid"))
			if len(left.RequiredData) != len(right.RequiredData) {
				return false
			}
			for kind := range left.RequiredData {
				if !right.Requires(kind) {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("template-set analysis terminates on cyclic references", prop.ForAll(
		func(fanout int) bool {
			an := New(loopSources{fanout: fanout}, nil)
			a := an.AnalyzeTemplateSet(context.Background(), "s1", map[string]string{
				"templates/index.liquid": "{% render 'snippet-0' %}",
			})
			return a != nil
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
