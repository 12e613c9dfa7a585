package profiles

import (
	"path/filepath"
	"testing"

	"clipshift/internal/queue"
)

func TestDefaultProfileAlwaysResolves(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "profiles.json"), nil)

	profile, err := store.Get("default")
	if err != nil {
		t.Fatalf("Get default failed: %v", err)
	}
	if profile.Name != DefaultName {
		t.Errorf("expected default profile, got %q", profile.Name)
	}

	profile, err = store.Get("")
	if err != nil {
		t.Fatalf("Get empty name failed: %v", err)
	}
	if profile.Name != DefaultName {
		t.Errorf("expected default profile for empty name, got %q", profile.Name)
	}
}

func TestSaveAndGetNormalizesName(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "profiles.json"), nil)

	err := store.Save(Profile{
		Name:     "  Shorts  ",
		Metadata: queue.Metadata{Privacy: "unlisted", Tags: []string{"clips", "Clips"}},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	profile, err := store.Get("SHORTS")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if profile.Name != "shorts" {
		t.Errorf("expected normalized name, got %q", profile.Name)
	}
	if len(profile.Metadata.Tags) != 1 {
		t.Errorf("expected deduplicated tags, got %v", profile.Metadata.Tags)
	}
}

func TestGetUnknownProfileFails(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "profiles.json"), nil)
	if _, err := store.Get("missing"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestDeleteRejectsDefault(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "profiles.json"), nil)
	if err := store.Delete("default"); err == nil {
		t.Fatal("expected error deleting default profile")
	}
}

func TestDuplicate(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "profiles.json"), nil)

	if err := store.Save(Profile{Name: "base", Metadata: queue.Metadata{Category: "22"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Duplicate("base", "copy"); err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}

	copyProfile, err := store.Get("copy")
	if err != nil {
		t.Fatalf("Get copy failed: %v", err)
	}
	if copyProfile.Metadata.Category != "22" {
		t.Errorf("copy did not inherit settings: %#v", copyProfile)
	}

	if err := store.Duplicate("base", "copy"); err == nil {
		t.Fatal("expected error duplicating onto existing name")
	}
}

func TestPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")

	first := NewStore(path, nil)
	if err := first.Save(Profile{Name: "weekly", Metadata: queue.Metadata{Privacy: "public"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := NewStore(path, nil)
	profile, err := second.Get("weekly")
	if err != nil {
		t.Fatalf("Get after reload failed: %v", err)
	}
	if profile.Metadata.Privacy != "public" {
		t.Errorf("profile did not survive reload: %#v", profile)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "profiles.json"), nil)

	if err := store.Save(Profile{
		Name:      "branded",
		Metadata:  queue.Metadata{Privacy: "unlisted", Tags: []string{"brand"}},
		Transform: queue.TransformOptions{Mode: queue.TransformPad, TargetWidth: 1080, TargetHeight: 1920},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exportPath := filepath.Join(dir, "branded.json")
	if err := store.Export("branded", exportPath); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	other := NewStore(filepath.Join(dir, "other.json"), nil)
	imported, err := other.Import(exportPath)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported.Name != "branded" || imported.Transform.Mode != queue.TransformPad {
		t.Errorf("imported profile mismatch: %#v", imported)
	}
}

func TestApplyFillsOnlyEmptyFields(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "profiles.json"), nil)

	madeForKids := false
	if err := store.Save(Profile{
		Name: "preset",
		Metadata: queue.Metadata{
			Privacy:     "unlisted",
			Category:    "22",
			Tags:        []string{"preset-tag"},
			MadeForKids: &madeForKids,
		},
		Transform: queue.TransformOptions{Mode: queue.TransformCrop, TargetWidth: 1080, TargetHeight: 1920},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	params := queue.NewItemParams{
		SourceURL: "https://example.com/v/1",
		Metadata:  queue.Metadata{Privacy: "public", Tags: []string{"explicit"}},
	}
	if err := store.Apply("preset", &params); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if params.Metadata.Privacy != "public" {
		t.Errorf("explicit privacy should win, got %q", params.Metadata.Privacy)
	}
	if params.Metadata.Category != "22" {
		t.Errorf("empty category should fill from profile, got %q", params.Metadata.Category)
	}
	if len(params.Metadata.Tags) != 2 {
		t.Errorf("tags should merge, got %v", params.Metadata.Tags)
	}
	if params.Metadata.MadeForKids == nil || *params.Metadata.MadeForKids {
		t.Errorf("made_for_kids should fill from profile: %#v", params.Metadata.MadeForKids)
	}
	if params.Transform.Mode != queue.TransformCrop {
		t.Errorf("transform preset should apply, got %#v", params.Transform)
	}
}
