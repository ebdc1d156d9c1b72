// internal/app/system/cache/scope.go
package cache

import "strings"

type scopeKind int

const (
	scopeWholeNamespace scopeKind = iota
	scopeExactKey
	scopeKeyPrefix
)

// Scope selects which keys of a namespace an invalidation removes.
// It replaces ad hoc wildcard strings with three explicit cases, so a
// mutator can drop all list variants of a view without enumerating
// exact keys and without regex construction from user-influenced input.
type Scope struct {
	kind scopeKind
	arg  string
}

// WholeNamespace matches every key in the namespace. The zero Scope is
// equivalent.
func WholeNamespace() Scope {
	return Scope{kind: scopeWholeNamespace}
}

// ExactKey matches a single key.
func ExactKey(key string) Scope {
	return Scope{kind: scopeExactKey, arg: key}
}

// KeyPrefix matches every key beginning with prefix.
func KeyPrefix(prefix string) Scope {
	return Scope{kind: scopeKeyPrefix, arg: prefix}
}

func (s Scope) matches(key string) bool {
	switch s.kind {
	case scopeExactKey:
		return key == s.arg
	case scopeKeyPrefix:
		return strings.HasPrefix(key, s.arg)
	default:
		return true
	}
}
