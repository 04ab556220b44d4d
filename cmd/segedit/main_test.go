package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDoCommand(t *testing.T) {
	ctx := context.Background()
	if err := DoCommand(ctx, nil); err == nil {
		t.Errorf("expected error on blank command\n")
	}
	if err := DoCommand(ctx, []string{"frobnicate"}); err == nil {
		t.Errorf("expected error on unknown command\n")
	}
	if err := DoCommand(ctx, []string{"run"}); err == nil {
		t.Errorf("expected error running without script\n")
	}
	if !strings.Contains(about(), Version) {
		t.Errorf("about doesn't report version: %s\n", about())
	}
}

func TestDoRun(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "edit.json")
	script := `{"ops": [
		{"op": "create", "label": 5, "object": 20, "immutable": true},
		{"op": "create", "label": 6},
		{"op": "paint", "at": [3, 3, 3], "label": 5},
		{"op": "remove", "object": 20}
	]}`
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		t.Fatal(err)
	}
	*outFile = filepath.Join(dir, "report.json")
	defer func() { *outFile = "" }()

	if err := DoRun(context.Background(), "", scriptPath); err != nil {
		t.Fatalf("run failed: %v\n", err)
	}
	data, err := os.ReadFile(*outFile)
	if err != nil {
		t.Fatal(err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("bad report: %v\n", err)
	}
	if len(report.Results) != 4 {
		t.Fatalf("expected 4 results, got %v\n", report.Results)
	}
	if report.Results[2].Warning == "" {
		t.Errorf("painting into an empty volume should warn of missing cubes\n")
	}
	if len(report.Objects) != 1 || report.Objects[0].SubObjects[0] != 6 {
		t.Errorf("expected only the object of label 6 to remain, got %+v\n", report.Objects)
	}
}

func TestDoRunBadScript(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(scriptPath, []byte(`{"ops": [{"op": "paint"}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := DoRun(context.Background(), "", scriptPath); err == nil {
		t.Errorf("expected invalid script to fail\n")
	}
	if err := DoRun(context.Background(), "", filepath.Join(dir, "missing.json")); err == nil {
		t.Errorf("expected missing script to fail\n")
	}
}
