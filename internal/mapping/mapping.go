// Package mapping applies configured alias rules to raw metadata before it is
// reconciled into the store. Resolution is deterministic and side-effect-free
// so reconciliation is reproducible given the same rule configuration.
package mapping

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/foliumapp/folium-server/internal/config"
	"github.com/foliumapp/folium-server/internal/domain"
)

// fold returns a caseless comparison key using Unicode case folding.
// A cases.Caser is stateful, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// ResolveSource applies the source mapping rules to a raw source record.
// Rules are scanned in order and the last matching rule wins; its name (when
// set) replaces the source name. The URL is never rewritten.
//
// A rule matches on name equality when the source has a name, otherwise on
// substring containment of the match string within the URL.
func ResolveSource(src domain.ArchiveSource, rules []config.SourceMappingRule) domain.ArchiveSource {
	var matched *config.SourceMappingRule

	for i := range rules {
		rule := &rules[i]

		switch {
		case src.Name != "":
			if equal(src.Name, rule.Match, rule.IgnoreCase) {
				matched = rule
			}
		case src.URL != "":
			if contains(src.URL, rule.Match, rule.IgnoreCase) {
				matched = rule
			}
		}
	}

	if matched != nil && matched.Name != "" {
		src.Name = matched.Name
	}

	return src
}

// ResolveTag applies the tag mapping rules to a tag whose namespace has
// already been defaulted. Rules are scanned in order and the last matching
// rule wins: its namespace (when set) and name (when set) replace the tag's.
//
// A rule matches when its match-namespace is unset or equals the tag's
// current namespace, and the tag name is a member of the rule's match set.
func ResolveTag(tag domain.Tag, rules []config.TagMappingRule) domain.Tag {
	var matched *config.TagMappingRule

	for i := range rules {
		rule := &rules[i]

		if rule.MatchNamespace != "" && rule.MatchNamespace != tag.Namespace {
			continue
		}
		if inSet(tag.Name, rule.Match, rule.IgnoreCase) {
			matched = rule
		}
	}

	if matched != nil {
		if matched.Namespace != "" {
			tag.Namespace = matched.Namespace
		}
		if matched.Name != "" {
			tag.Name = matched.Name
		}
	}

	return tag
}

func equal(value, match string, ignoreCase bool) bool {
	if ignoreCase {
		return fold(value) == fold(match)
	}
	return value == match
}

func contains(value, match string, ignoreCase bool) bool {
	if ignoreCase {
		return strings.Contains(fold(value), fold(match))
	}
	return strings.Contains(value, match)
}

func inSet(value string, set []string, ignoreCase bool) bool {
	if ignoreCase {
		value = fold(value)
	}
	for _, member := range set {
		if ignoreCase {
			member = fold(member)
		}
		if value == member {
			return true
		}
	}
	return false
}
