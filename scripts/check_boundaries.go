// Command check_boundaries enforces the import rules between the layers of
// every service under contexts/<context>/<service>/.
package main

import (
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "journeystitch"

// layerRule lists what a layer may import besides the standard library.
// Entries in own are relative to the service root.
type layerRule struct {
	own       []string
	contracts bool
}

// Layers without a rule (adapters, transport wiring at the service root) are
// only held to the cross-context rule.
var layerRules = map[string]layerRule{
	"domain":      {own: []string{"domain"}},
	"ports":       {own: []string{"domain", "ports"}, contracts: true},
	"application": {own: []string{"application", "domain", "ports"}, contracts: true},
	"transport":   {},
}

type finding struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func (f finding) String() string {
	return fmt.Sprintf("%s:%d imports %q (%s)", f.File, f.Line, f.Import, f.Rule)
}

func main() {
	root := flag.String("root", "contexts", "directory holding the bounded contexts")
	flag.Parse()

	findings, err := scan(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan %s: %v\n", *root, err)
		os.Exit(2)
	}
	if len(findings) == 0 {
		fmt.Println("boundary checks passed")
		return
	}
	fmt.Println("boundary violations found:")
	for _, f := range findings {
		fmt.Println("- " + f.String())
	}
	os.Exit(1)
}

// scan checks every non-test Go file under root and returns the findings
// ordered by file, line and import.
func scan(root string) ([]finding, error) {
	var findings []finding
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(filepath.Dir(root), path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 4 {
			return nil
		}
		service := modulePath + "/" + strings.Join(parts[:3], "/")
		found, err := checkFile(path, filepath.ToSlash(rel), service, parts[3])
		if err != nil {
			return err
		}
		findings = append(findings, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})
	return findings, nil
}

func checkFile(path string, display string, service string, layer string) ([]finding, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", display, err)
	}

	rule, ruled := layerRules[layer]
	var findings []finding
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		report := func(reason string) {
			findings = append(findings, finding{
				File:   display,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   reason,
			})
		}

		if within(importPath, modulePath+"/contexts") && !within(importPath, service) {
			report("cross-context imports are forbidden")
			continue
		}
		if !ruled || isStdlib(importPath) {
			continue
		}
		if reason := rule.check(importPath, service, layer); reason != "" {
			report(reason)
		}
	}
	return findings, nil
}

func (r layerRule) check(importPath string, service string, layer string) string {
	switch {
	case strings.Contains(importPath, "/adapters/") || strings.HasSuffix(importPath, "/adapters"):
		return layer + " must not import adapters"
	case within(importPath, modulePath+"/internal"):
		return layer + " must not import runtime infrastructure"
	case r.contracts && within(importPath, modulePath+"/contracts"):
		return ""
	}
	for _, own := range r.own {
		if within(importPath, service+"/"+own) {
			return ""
		}
	}
	return layer + " import is outside explicit allowlist"
}

func within(importPath string, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}

func isStdlib(importPath string) bool {
	if within(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
