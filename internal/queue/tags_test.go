package queue

import (
	"strings"
	"testing"
)

func TestNormalizeTagsDeduplicatesCaseInsensitive(t *testing.T) {
	tags := NormalizeTags([]string{"Go", "go", " GO ", "video", "Video"})
	expected := []string{"Go", "video"}
	if len(tags) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, tags)
	}
	for i, tag := range expected {
		if tags[i] != tag {
			t.Fatalf("expected %v, got %v", expected, tags)
		}
	}
}

func TestNormalizeTagsDropsEmptyEntries(t *testing.T) {
	tags := NormalizeTags([]string{"", "  ", "keep"})
	if len(tags) != 1 || tags[0] != "keep" {
		t.Fatalf("unexpected tags: %v", tags)
	}
}

func TestNormalizeTagsEnforcesCombinedBudget(t *testing.T) {
	big := strings.Repeat("a", 490)
	tags := NormalizeTags([]string{big, strings.Repeat("b", 20), "short"})
	// The 20-char tag would push past the budget and is skipped, but the
	// shorter tag after it still fits.
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", tags)
	}
	if tags[0] != big || tags[1] != "short" {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if CombinedTagLength(tags) > TagBudget {
		t.Fatalf("combined length %d exceeds budget", CombinedTagLength(tags))
	}
}

func TestNormalizeTagsCountsSeparators(t *testing.T) {
	// Two 250-char tags need 501 chars serialized, one past the budget.
	first := strings.Repeat("a", 250)
	second := strings.Repeat("b", 250)
	tags := NormalizeTags([]string{first, second})
	if len(tags) != 1 || tags[0] != first {
		t.Fatalf("expected only first tag to fit, got %d tags", len(tags))
	}
}

func TestCombinedTagLength(t *testing.T) {
	if got := CombinedTagLength(nil); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := CombinedTagLength([]string{"ab", "cd"}); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}
