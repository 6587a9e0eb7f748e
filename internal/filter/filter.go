package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/feedwire/marketbot/internal/core"
)

// Env is what a filter expression can see of each item.
type Env struct {
	Title string `expr:"Title"`
	Text  string `expr:"Text"`
	URL   string `expr:"URL"`
}

// Filter evaluates a boolean expression against each fetched item, e.g.
// `Text contains "Fed" or Title contains "rates"`. Items that do not match
// are skipped (and marked seen so they are not re-evaluated every cycle).
type Filter struct {
	source  string
	program *vm.Program
}

// Compile builds a filter from an expr expression. An empty expression
// returns a nil filter, which matches everything.
func Compile(expression string) (*Filter, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, &core.ConfigError{Field: "filter expression", Err: err}
	}
	return &Filter{source: expression, program: program}, nil
}

// Match reports whether the item passes the filter. A nil filter passes
// everything.
func (f *Filter) Match(item core.NewsItem) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, Env{Title: item.Title, Text: item.Text, URL: item.URL})
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q: %w", f.source, err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q did not return a boolean", f.source)
	}
	return matched, nil
}
