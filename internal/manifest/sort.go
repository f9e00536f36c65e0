// Package manifest key-sorts package manifests before they are handed to the
// external formatting engine. Sorting is a pure text transform with no engine
// round-trip.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"

	"github.com/tidwall/gjson"
)

// ErrNotAnObject is returned when the manifest is valid JSON but not an
// object at the top level.
var ErrNotAnObject = errors.New("manifest: document is not a JSON object")

// ErrInvalidJSON is returned when the manifest cannot be parsed at all.
var ErrInvalidJSON = errors.New("manifest: document is not valid JSON")

// knownKeyOrder lists well-known manifest keys in their conventional order.
// Keys not listed keep their original relative order after the known ones.
var knownKeyOrder = []string{
	"name",
	"version",
	"private",
	"description",
	"keywords",
	"homepage",
	"bugs",
	"repository",
	"funding",
	"license",
	"author",
	"contributors",
	"sideEffects",
	"type",
	"exports",
	"main",
	"module",
	"browser",
	"types",
	"bin",
	"files",
	"workspaces",
	"scripts",
	"dependencies",
	"devDependencies",
	"peerDependencies",
	"peerDependenciesMeta",
	"optionalDependencies",
	"bundledDependencies",
	"overrides",
	"resolutions",
	"packageManager",
	"engines",
	"os",
	"cpu",
	"publishConfig",
}

// dependencyMapKeys name the sections whose entries are sorted
// alphabetically. Scripts deliberately keep their original order.
var dependencyMapKeys = map[string]bool{
	"dependencies":         true,
	"devDependencies":      true,
	"peerDependencies":     true,
	"optionalDependencies": true,
}

var knownKeyRank = buildKnownKeyRank()

func buildKnownKeyRank() map[string]int {
	rank := make(map[string]int, len(knownKeyOrder))
	for position, key := range knownKeyOrder {
		rank[key] = position
	}
	return rank
}

type manifestEntry struct {
	key      string
	raw      string
	position int
}

// SortKeys reorders the top-level keys of a package manifest: well-known keys
// first in conventional order, remaining keys in their original order, and
// dependency maps sorted alphabetically. The output is compact JSON; the
// external engine reformats it afterwards. The transform is deterministic:
// equal inputs produce equal outputs.
func SortKeys(source string) (string, error) {
	if !gjson.Valid(source) {
		return "", ErrInvalidJSON
	}
	document := gjson.Parse(source)
	if !document.IsObject() {
		return "", ErrNotAnObject
	}

	entries := make([]manifestEntry, 0, 16)
	document.ForEach(func(key, value gjson.Result) bool {
		raw := value.Raw
		if dependencyMapKeys[key.String()] && value.IsObject() {
			raw = sortObjectAlphabetically(value)
		}
		entries = append(entries, manifestEntry{key: key.String(), raw: raw, position: len(entries)})
		return true
	})

	sort.SliceStable(entries, func(left, right int) bool {
		leftRank, leftKnown := knownKeyRank[entries[left].key]
		rightRank, rightKnown := knownKeyRank[entries[right].key]
		switch {
		case leftKnown && rightKnown:
			return leftRank < rightRank
		case leftKnown:
			return true
		case rightKnown:
			return false
		default:
			return entries[left].position < entries[right].position
		}
	})

	return renderObject(entries), nil
}

func sortObjectAlphabetically(object gjson.Result) string {
	entries := make([]manifestEntry, 0, 8)
	object.ForEach(func(key, value gjson.Result) bool {
		entries = append(entries, manifestEntry{key: key.String(), raw: value.Raw})
		return true
	})
	sort.SliceStable(entries, func(left, right int) bool {
		return entries[left].key < entries[right].key
	})
	return renderObject(entries)
}

func renderObject(entries []manifestEntry) string {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for entryIndex, entry := range entries {
		if entryIndex > 0 {
			buffer.WriteByte(',')
		}
		encodedKey, _ := json.Marshal(entry.key)
		buffer.Write(encodedKey)
		buffer.WriteByte(':')
		buffer.WriteString(entry.raw)
	}
	buffer.WriteByte('}')
	return buffer.String()
}
