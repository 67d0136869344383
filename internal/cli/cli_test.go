package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	doc := `
tas: [rep1.tagAlign.gz, rep2.tagAlign.gz]
genome:
  chrom_sizes: hg38.chrom.sizes
  genome_size: hs
  blacklist: hg38.blacklist.bed.gz
total_cores: 4
`
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlanCommand(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"plan", writeConfig(t)})
	if err := root.Execute(); err != nil {
		t.Fatalf("plan: %v", err)
	}
}

func TestPlanCommandBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("total_cores: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := NewRootCmd()
	root.SetArgs([]string{"plan", path})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestStatusCommandEmptyDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "atac.db")
	root := NewRootCmd()
	root.SetArgs([]string{"status", "--db", db})
	if err := root.Execute(); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestStatusCommandUnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "atac.db")
	root := NewRootCmd()
	root.SetArgs([]string{"status", "--db", db, "run_missing"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
