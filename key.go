// FILE: lixenwraith/properties/key.go
package properties

import (
	"regexp"
	"strconv"
	"strings"
)

// keyKind classifies a structured key by its first address marker.
type keyKind int

const (
	keyPlain keyKind = iota
	keyTable
	keyList
)

var (
	// name{sub}rest
	tablePattern = regexp.MustCompile(`^([^{\[]+)\{([^}]+)\}(.*)$`)
	// name[index] or name[index]{sub}rest
	listPattern = regexp.MustCompile(`^([^{\[]+)\[(\d+)\]((?:\{.*)?)$`)
)

// structuredKey is a parsed key address.
type structuredKey struct {
	kind  keyKind
	name  string // local key in the addressed table
	sub   string // keyTable: key to resolve inside the sub-table
	index int    // keyList: element position
	rest  string // keyList: key to resolve inside a table element, empty for scalar elements
}

// parseKey classifies key. Keys with unbalanced or unknown markers resolve as plain keys.
func parseKey(key string) structuredKey {
	marker := strings.IndexAny(key, "{[")
	if marker <= 0 {
		return structuredKey{kind: keyPlain, name: key}
	}

	if key[marker] == '{' {
		m := tablePattern.FindStringSubmatch(key)
		if m == nil {
			return structuredKey{kind: keyPlain, name: key}
		}
		return structuredKey{kind: keyTable, name: m[1], sub: m[2] + m[3]}
	}

	m := listPattern.FindStringSubmatch(key)
	if m == nil {
		return structuredKey{kind: keyPlain, name: key}
	}
	index, err := strconv.Atoi(m[2])
	if err != nil || index > maxListIndex {
		return structuredKey{kind: keyPlain, name: key}
	}
	sk := structuredKey{kind: keyList, name: m[1], index: index}
	if m[3] != "" {
		// "{sub}more" addresses "sub"+"more" inside the element table
		if t := tablePattern.FindStringSubmatch("x" + m[3]); t != nil {
			sk.rest = t[2] + t[3]
		} else {
			return structuredKey{kind: keyPlain, name: key}
		}
	}
	return sk
}

// maxListIndex bounds auto-growth of lists addressed by key
const maxListIndex = 1 << 16

// tableKey builds the persisted key of child inside the table at prefix.
func tableKey(prefix, child string) string {
	if prefix == "" {
		return child
	}
	return prefix + "{" + child + "}"
}

// elementKey builds the key of list element i under name.
func elementKey(name string, i int) string {
	return name + "[" + strconv.Itoa(i) + "]"
}
