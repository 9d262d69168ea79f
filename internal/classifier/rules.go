package classifier

import (
	"regexp"
	"strings"
)

// Rule decides test presence for one language: any matching top-level directory
// or file name is enough.
type Rule struct {
	Dirs  []string
	Files []*regexp.Regexp
}

var genericDirs = []string{"test", "tests"}

// FallbackRule applies to languages missing from the table.
var FallbackRule = newRule(nil, `.*test.*`)

var rules = map[string]Rule{
	"Python":      newRule([]string{"test", "tests"}, `test_.*\.py`, `.*_test\.py`),
	"JavaScript":  newRule([]string{"test", "tests", "__tests__"}, `.*\.test\.js`, `.*\.spec\.js`),
	"Java":        newRule([]string{"test", "tests", "src/test"}, `Test.*\.java`, `.*Test\.java`),
	"TypeScript":  newRule([]string{"test", "tests", "__tests__"}, `.*\.test\.ts`, `.*\.spec\.ts`),
	"C++":         newRule([]string{"test", "tests"}, `test_.*\.cpp`, `.*_test\.cpp`),
	"C#":          newRule([]string{"test", "tests", "UnitTest"}, `.*Tests\.cs`, `Test.*\.cs`),
	"PHP":         newRule([]string{"test", "tests"}, `Test.*\.php`, `.*_test\.php`),
	"Go":          newRule(nil, `.*_test\.go`),
	"Ruby":        newRule([]string{"test", "tests", "spec"}, `test_.*\.rb`, `.*_spec\.rb`),
	"Kotlin":      newRule([]string{"test", "tests", "src/test"}, `Test.*\.kt`, `.*Test\.kt`),
	"Swift":       newRule([]string{"Tests"}, `.*Tests\.swift`, `test.*\.swift`),
	"Rust":        newRule([]string{"tests"}, `.*\.rs`),
	"Dart":        newRule([]string{"test"}, `.*_test\.dart`),
	"Scala":       newRule([]string{"test", "tests"}, `.*Spec\.scala`, `.*Test\.scala`),
	"Shell":       newRule([]string{"test", "tests"}, `test_.*\.sh`),
	"Objective-C": newRule([]string{"Tests", "Test"}, `.*Tests\.m`, `test_.*\.m`),
	"R":           newRule([]string{"tests", "testthat"}, `test_.*\.R`),
	"Elixir":      newRule([]string{"test"}, `.*_test\.exs`),
	"Haskell":     newRule([]string{"test", "tests"}, `.*Spec\.hs`, `test_.*\.hs`),
	"Perl":        newRule([]string{"t", "test"}, `.*\.t`),
}

// newRule lower-cases directory names, always adds test and tests, and anchors
// every file pattern to the whole name.
func newRule(dirs []string, files ...string) Rule {
	seen := make(map[string]bool)
	r := Rule{}
	for _, d := range append(append([]string{}, genericDirs...), dirs...) {
		d = strings.ToLower(d)
		if !seen[d] {
			seen[d] = true
			r.Dirs = append(r.Dirs, d)
		}
	}
	for _, f := range files {
		r.Files = append(r.Files, regexp.MustCompile(`^(?:`+f+`)$`))
	}
	return r
}

// RuleFor returns the rule for language, FallbackRule when unmapped.
func RuleFor(language string) Rule {
	if r, ok := rules[language]; ok {
		return r
	}
	return FallbackRule
}

// Languages lists the languages with their own rule.
func Languages() []string {
	langs := make([]string, 0, len(rules))
	for l := range rules {
		langs = append(langs, l)
	}
	return langs
}
