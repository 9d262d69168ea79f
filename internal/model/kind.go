package model

import "fmt"

// Kind names one statistic; each kind owns a topic and a log file.
type Kind string

const (
	KindCommits Kind = "commits"
	KindLang    Kind = "lang"
	KindTdd     Kind = "tdd"
	KindTddCicd Kind = "tdd_cicd"
)

// Kinds in the order topics are configured.
var Kinds = []Kind{KindCommits, KindLang, KindTdd, KindTddCicd}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown statistic kind %q", s)
}

// PerEntry reports whether the kind is published one message per aggregate entry
// rather than one message per window.
func (k Kind) PerEntry() bool {
	return k == KindCommits || k == KindTdd
}

// KeyedByLanguage is false only for commit counts, which are keyed by repository.
func (k Kind) KeyedByLanguage() bool {
	return k != KindCommits
}
