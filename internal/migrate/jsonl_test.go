package migrate

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/edgeboard/edgeboard/internal/schema"
	"github.com/edgeboard/edgeboard/internal/store"
)

func openLoadedStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if _, err := st.Load(); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	return st
}

// TestExportImport_RoundTrip tests that an export applied to an empty
// store reproduces every record.
func TestExportImport_RoundTrip(t *testing.T) {
	src := openLoadedStore(t)

	created, err := src.CreateSetup(schema.Setup{
		Name:         "Range break",
		BulletPoints: []string{"confirm on volume"},
	})
	if err != nil {
		t.Fatalf("CreateSetup() failed: %v", err)
	}
	if _, err := src.CycleMetric(schema.MetricFocus); err != nil {
		t.Fatalf("CycleMetric() failed: %v", err)
	}

	var buf bytes.Buffer
	exported, err := Export(src, &buf)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if exported.Setups != len(src.Setups()) || exported.Mental != 1 {
		t.Fatalf("unexpected export counts: %+v", exported)
	}

	records, readRes, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(readRes.Skipped) != 0 {
		t.Fatalf("clean export produced skips: %v", readRes.Skipped)
	}

	dst := openLoadedStore(t)
	if err := Apply(dst, records, false); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	if len(dst.Setups()) != len(src.Setups()) {
		t.Errorf("setups = %d, want %d", len(dst.Setups()), len(src.Setups()))
	}
	got, ok := dst.Setup(created.ID)
	if !ok {
		t.Fatalf("setup %s missing after import", created.ID)
	}
	if got.Name != created.Name {
		t.Errorf("name = %q, want %q", got.Name, created.Name)
	}
	if dst.Mental().Focus != schema.LevelHigh {
		t.Errorf("focus = %q, want high", dst.Mental().Focus)
	}
}

// TestRead_SkipsBadLines tests that unparseable and invalid lines are
// reported but do not stop the import.
func TestRead_SkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"kind":"setup","setup":{"id":"s1","name":"Valid","lastModified":"2024-05-01T10:00:00Z"}}`,
		`this is not json`,
		`{"kind":"mystery"}`,
		`{"kind":"setup"}`,
		``,
		`{"kind":"rule","rule":{"id":"r1","category":"entry","content":"Wait for confirmation","lastModified":"2024-05-01T10:00:00Z"}}`,
	}, "\n")

	records, res, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}
	if res.Setups != 1 || res.Rules != 1 {
		t.Errorf("counts = %+v, want 1 setup, 1 rule", res)
	}
	if len(res.Skipped) != 3 {
		t.Errorf("skipped = %v, want 3 entries", res.Skipped)
	}
}

// TestApply_ReplaceRemovesExisting tests that a non-merge import
// replaces the existing collections.
func TestApply_ReplaceRemovesExisting(t *testing.T) {
	st := openLoadedStore(t)

	input := `{"kind":"setup","setup":{"id":"only","name":"Only setup","lastModified":"2024-05-01T10:00:00Z"}}`
	records, _, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	if err := Apply(st, records, false); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	setups := st.Setups()
	if len(setups) != 1 || setups[0].ID != "only" {
		t.Errorf("setups = %+v, want single imported setup", setups)
	}
	if len(st.Rules()) != 0 {
		t.Errorf("rules = %d, want 0 after replace", len(st.Rules()))
	}
}

// TestApply_MergeUpsertsByID tests that a merge import updates matching
// ids and keeps everything else.
func TestApply_MergeUpsertsByID(t *testing.T) {
	st := openLoadedStore(t)
	existing := st.Setups()[0]
	countBefore := len(st.Setups())

	input := strings.Join([]string{
		`{"kind":"setup","setup":{"id":"` + existing.ID + `","name":"Updated name","images":["data:chart-one","data:chart-two"],"lastModified":"2024-05-01T10:00:00Z"}}`,
		`{"kind":"setup","setup":{"id":"brand-new","name":"Brand new","lastModified":"2024-05-01T10:00:00Z"}}`,
	}, "\n")

	records, _, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if err := Apply(st, records, true); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	if len(st.Setups()) != countBefore+1 {
		t.Errorf("setups = %d, want %d", len(st.Setups()), countBefore+1)
	}
	got, _ := st.Setup(existing.ID)
	if got.Name != "Updated name" {
		t.Errorf("merged name = %q", got.Name)
	}
	if !reflect.DeepEqual(got.Images, []string{"data:chart-one", "data:chart-two"}) {
		t.Errorf("merged images = %v, want the imported list", got.Images)
	}
	if _, ok := st.Setup("brand-new"); !ok {
		t.Error("new setup not created by merge")
	}
}

// TestExportMergeImport_KeepsImages tests that an export followed by a
// merge import into a store holding the same ids is lossless for
// images.
func TestExportMergeImport_KeepsImages(t *testing.T) {
	src := openLoadedStore(t)
	id := src.Setups()[0].ID
	if _, err := src.AppendImages(id, "data:saved-chart"); err != nil {
		t.Fatalf("AppendImages() failed: %v", err)
	}

	var buf bytes.Buffer
	if _, err := Export(src, &buf); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	// Destination holds the same default ids, without the image.
	dst := openLoadedStore(t)

	records, _, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if err := Apply(dst, records, true); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	got, ok := dst.Setup(id)
	if !ok {
		t.Fatalf("setup %s missing after merge import", id)
	}
	if !reflect.DeepEqual(got.Images, []string{"data:saved-chart"}) {
		t.Errorf("images after merge import = %v, want the exported image", got.Images)
	}
}

// TestExportFile_ReadFile tests the file round trip.
func TestExportFile_ReadFile(t *testing.T) {
	st := openLoadedStore(t)
	path := filepath.Join(t.TempDir(), "export.jsonl")

	if _, err := ExportFile(st, path); err != nil {
		t.Fatalf("ExportFile() failed: %v", err)
	}

	records, res, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	want := len(st.Setups()) + len(st.Rules()) + 1
	if len(records) != want {
		t.Errorf("read %d records, want %d", len(records), want)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("skipped = %v", res.Skipped)
	}
}
