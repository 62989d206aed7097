package metadata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type entry struct {
	Address   uint64 `yaml:"address"`
	Prototype bool   `yaml:"prototype"`
}

// Table maps function names to the metadata recovered alongside the
// module: the virtual address of the function and whether it is a
// bodyless prototype. Functions without an entry have address 0 and a
// body.
type Table struct {
	entries map[string]entry
}

// Load reads a metadata sidecar file. An empty path yields an empty
// table, so callers need not treat absent metadata specially.
func Load(path string) (*Table, error) {
	if path == "" {
		return &Table{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var entries map[string]entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding metadata %s: %w", path, err)
	}
	return &Table{entries: entries}, nil
}

// Address returns the virtual address of fun, or 0 when unknown.
func (t *Table) Address(fun string) uint64 {
	return t.entries[fun].Address
}

// Prototype reports whether fun is a declaration without a body.
func (t *Table) Prototype(fun string) bool {
	return t.entries[fun].Prototype
}
