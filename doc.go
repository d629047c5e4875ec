// File: lixenwraith/properties/doc.go

// Package properties provides a typed, hierarchical key/value store with defaults,
// change notification and multi-process-safe persistence to a plain text file.
//
// Features:
//   - Typed values (string, int, float, bool, file path, URL, duration), lists and sub-tables
//   - Structured keys: "name", "table{child}", "list[3]" and any nesting of them
//   - Defaults chains; values equal to the effective default are not stored locally
//   - Read-only tables and the shared EmptyProperties
//   - Change listeners fired from the changed table up through its ancestors
//   - Pluggable value converters through a Registry
//   - File persistence guarded by an advisory file lock, with atomic writes
//   - Live reload of external changes by a polling Monitor shared between handles
//   - Struct decoding through mapstructure, and TOML/YAML/JSON export and import
//
// Quick Start:
//
//	pp, err := properties.Quick("app.properties", map[string]any{
//	    "server{host}": "localhost",
//	    "server{port}": 8080,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pp.Close()
//
//	port, _ := pp.Int("server{port}", 0)
//	_ = pp.Set("server{port}", 9090) // stored and written to app.properties
//
// File Format:
// Each line holds a structured key and a value prefixed with its type name.
//
//	author{name}=string Tony
//	table{2}{valid}=float 0.3
//	IntegerList[0]=int 1
//
// Values without a known type name are typed heuristically as int, float, bool or string.
// An empty value is written as its bare type name (dir=file), so an untyped value that
// is exactly a type name such as "string" or "file" loads as that type's empty value.
//
// Thread Safety:
// All operations are safe for concurrent use. Every tree has one read-write mutex shared
// by its sub-tables. Listeners run after the lock is released and may modify the tree.
package properties
