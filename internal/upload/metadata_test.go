package upload

import (
	"strings"
	"testing"
	"time"

	"clipshift/internal/config"
	"clipshift/internal/queue"
)

func uploadDefaults() config.Upload {
	cfg := config.Default()
	return cfg.Upload
}

func TestBuildVideoResourceAppliesDefaults(t *testing.T) {
	resource := BuildVideoResource(queue.Metadata{
		Title:       "Clip",
		Description: "Description",
	}, uploadDefaults())

	if resource.Snippet.CategoryID != "22" {
		t.Fatalf("expected default category, got %q", resource.Snippet.CategoryID)
	}
	if resource.Status.PrivacyStatus != "private" {
		t.Fatalf("expected default privacy, got %q", resource.Status.PrivacyStatus)
	}
	if resource.Snippet.Tags != nil || resource.Status.Embeddable != nil || resource.Status.SelfDeclaredMadeForKids != nil {
		t.Fatalf("absent optional fields should stay absent: %#v", resource)
	}
}

func TestBuildVideoResourcePublishAtForcesPrivate(t *testing.T) {
	publishAt := time.Date(2026, 9, 15, 18, 0, 0, 0, time.UTC)
	resource := BuildVideoResource(queue.Metadata{
		Title:     "Clip",
		Privacy:   "public",
		PublishAt: &publishAt,
	}, uploadDefaults())

	if resource.Status.PrivacyStatus != "private" {
		t.Fatalf("scheduled publish must force private, got %q", resource.Status.PrivacyStatus)
	}
	if resource.Status.PublishAt == nil || !resource.Status.PublishAt.Equal(publishAt) {
		t.Fatalf("publish time not mapped: %#v", resource.Status.PublishAt)
	}
}

func TestBuildVideoResourceExplicitValuesWin(t *testing.T) {
	madeForKids := true
	embeddable := false
	resource := BuildVideoResource(queue.Metadata{
		Title:       "Clip",
		Privacy:     "unlisted",
		Category:    "10",
		Language:    "de",
		License:     "creativeCommon",
		Tags:        []string{"a", "b"},
		MadeForKids: &madeForKids,
		Embeddable:  &embeddable,
	}, uploadDefaults())

	if resource.Status.PrivacyStatus != "unlisted" || resource.Snippet.CategoryID != "10" {
		t.Fatalf("explicit values lost: %#v", resource)
	}
	if resource.Snippet.DefaultLanguage != "de" || resource.Status.License != "creativeCommon" {
		t.Fatalf("optional values lost: %#v", resource)
	}
	if resource.Status.SelfDeclaredMadeForKids == nil || !*resource.Status.SelfDeclaredMadeForKids {
		t.Fatalf("made-for-kids lost: %#v", resource.Status)
	}
	if resource.Status.Embeddable == nil || *resource.Status.Embeddable {
		t.Fatalf("embeddable lost: %#v", resource.Status)
	}
}

func TestApplyShortFormIsIdempotent(t *testing.T) {
	meta := queue.Metadata{
		Title:       "Clip",
		Description: "A vertical video",
		Tags:        []string{"clips"},
	}

	ApplyShortForm(&meta)
	ApplyShortForm(&meta)

	shortsCount := 0
	for _, tag := range meta.Tags {
		if strings.EqualFold(tag, ShortFormTag) {
			shortsCount++
		}
	}
	if shortsCount != 1 {
		t.Fatalf("expected exactly one Shorts tag, got %v", meta.Tags)
	}
	if strings.Count(meta.Description, "#Shorts") != 1 {
		t.Fatalf("expected exactly one #Shorts suffix, got %q", meta.Description)
	}
	if !strings.HasSuffix(meta.Description, " #Shorts") {
		t.Fatalf("expected description suffix, got %q", meta.Description)
	}
}

func TestIsShortForm(t *testing.T) {
	if !IsShortForm(1080, 1920, 45, 60) {
		t.Fatal("portrait under limit should be short-form")
	}
	if IsShortForm(1920, 1080, 45, 60) {
		t.Fatal("landscape should not be short-form")
	}
	if IsShortForm(1080, 1920, 60, 60) {
		t.Fatal("duration at the limit should not be short-form")
	}
	if IsShortForm(1080, 1920, 45, 0) {
		t.Fatal("non-positive ceiling disables short-form")
	}
}
