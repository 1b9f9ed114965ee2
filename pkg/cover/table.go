// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package cover

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModuleLine is a source position in terms the mutation backend understands.
type ModuleLine struct {
	Module string
	Line   int
}

// LocationTable maps instrumented function names to the source module
// that defines them. It is built once at startup and never changes.
type LocationTable struct {
	modules map[string]string
}

func NewLocationTable(funcToModule map[string]string) *LocationTable {
	tab := &LocationTable{modules: make(map[string]string, len(funcToModule))}
	for fn, module := range funcToModule {
		tab.modules[fn] = module
	}
	return tab
}

// LoadLocationTable reads a YAML mapping of function name to module path.
func LoadLocationTable(filename string) (*LocationTable, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read location table: %w", err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse location table %v: %w", filename, err)
	}
	return NewLocationTable(raw), nil
}

func (tab *LocationTable) Len() int {
	if tab == nil {
		return 0
	}
	return len(tab.modules)
}

// Module returns the module that defines loc, or "" if unknown.
func (tab *LocationTable) Module(loc Location) string {
	if tab == nil {
		return ""
	}
	return tab.modules[loc.Func]
}

// Positions translates a coverage set into module positions.
// Locations of functions not present in the table are dropped.
func (tab *LocationTable) Positions(s Set) map[ModuleLine]bool {
	res := make(map[ModuleLine]bool, len(s))
	for loc := range s {
		module := tab.Module(loc)
		if module == "" {
			continue
		}
		res[ModuleLine{Module: module, Line: loc.Line}] = true
	}
	return res
}
