package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestContextsRespectLayerBoundaries(t *testing.T) {
	findings, err := scan(filepath.Join("..", "contexts"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("boundary violations: %v", findings)
	}
}

func writeSource(t *testing.T, root string, rel string, source string) {
	t.Helper()
	path := filepath.Join(root, "contexts", "journey-analytics", "journey-stitching", filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLayerViolationsAreReported(t *testing.T) {
	cases := []struct {
		rel    string
		source string
		rule   string
	}{
		{
			rel:    "application/bad.go",
			source: "package application\n\nimport _ \"journeystitch/contexts/journey-analytics/journey-stitching/adapters/memory\"\n",
			rule:   "application must not import adapters",
		},
		{
			rel:    "domain/entities/bad.go",
			source: "package entities\n\nimport _ \"github.com/google/uuid\"\n",
			rule:   "domain import is outside explicit allowlist",
		},
		{
			rel:    "transport/http/bad.go",
			source: "package httptransport\n\nimport _ \"journeystitch/contexts/journey-analytics/journey-stitching/ports\"\n",
			rule:   "transport import is outside explicit allowlist",
		},
		{
			rel:    "ports/bad.go",
			source: "package ports\n\nimport _ \"journeystitch/internal/platform/config\"\n",
			rule:   "ports must not import runtime infrastructure",
		},
		{
			rel:    "adapters/memory/bad.go",
			source: "package memory\n\nimport _ \"journeystitch/contexts/other-context/other-service/ports\"\n",
			rule:   "cross-context imports are forbidden",
		},
	}
	for _, tc := range cases {
		root := t.TempDir()
		writeSource(t, root, tc.rel, tc.source)

		findings, err := scan(filepath.Join(root, "contexts"))
		if err != nil {
			t.Fatalf("%s: scan: %v", tc.rel, err)
		}
		if len(findings) != 1 || findings[0].Rule != tc.rule {
			t.Fatalf("%s: expected %q, got %v", tc.rel, tc.rule, findings)
		}
	}
}

func TestAllowedImportsPass(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "ports/ok.go", "package ports\n\nimport (\n\t_ \"context\"\n\t_ \"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities\"\n\t_ \"journeystitch/contracts/gen/events/v1\"\n)\n")
	writeSource(t, root, "adapters/postgres/ok.go", "package postgresadapter\n\nimport _ \"gorm.io/gorm\"\n")

	findings, err := scan(filepath.Join(root, "contexts"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %v", findings)
	}
}

func TestUnparseableFileFailsScan(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "domain/broken.go", "package domain\n\nimport (\n")
	if _, err := scan(filepath.Join(root, "contexts")); err == nil {
		t.Fatalf("expected parse error")
	}
}
