package upload

import (
	"strings"

	"clipshift/internal/config"
	"clipshift/internal/queue"
	"clipshift/internal/services/tube"
)

// ShortFormTag is added to portrait videos under the short-form duration
// ceiling.
const ShortFormTag = "Shorts"

// shortFormSuffix is appended to the description of short-form videos.
const shortFormSuffix = " #Shorts"

// BuildVideoResource maps item metadata onto the destination's wire format.
// Title, description, category, and privacy always go out; every other field
// is omitted entirely when absent. A scheduled publish time forces private
// visibility so the video stays hidden until the destination releases it.
func BuildVideoResource(meta queue.Metadata, defaults config.Upload) tube.VideoResource {
	category := meta.Category
	if category == "" {
		category = defaults.DefaultCategory
	}
	privacy := meta.Privacy
	if privacy == "" {
		privacy = defaults.DefaultPrivacy
	}
	language := meta.Language
	if language == "" {
		language = defaults.DefaultLanguage
	}

	if meta.PublishAt != nil {
		privacy = "private"
	}

	resource := tube.VideoResource{
		Snippet: tube.Snippet{
			Title:       meta.Title,
			Description: meta.Description,
			CategoryID:  category,
		},
		Status: tube.Status{
			PrivacyStatus: privacy,
		},
	}
	if len(meta.Tags) > 0 {
		resource.Snippet.Tags = append([]string{}, meta.Tags...)
	}
	if language != "" {
		resource.Snippet.DefaultLanguage = language
	}
	if meta.PublishAt != nil {
		publishAt := meta.PublishAt.UTC()
		resource.Status.PublishAt = &publishAt
	}
	if meta.License != "" {
		resource.Status.License = meta.License
	}
	if meta.Embeddable != nil {
		embeddable := *meta.Embeddable
		resource.Status.Embeddable = &embeddable
	}
	if meta.MadeForKids != nil {
		madeForKids := *meta.MadeForKids
		resource.Status.SelfDeclaredMadeForKids = &madeForKids
	}
	return resource
}

// ApplyShortForm injects the short-form tag and description suffix. Applying
// it twice changes nothing.
func ApplyShortForm(meta *queue.Metadata) {
	meta.Tags = queue.NormalizeTags(append(append([]string{}, meta.Tags...), ShortFormTag))
	if !strings.Contains(meta.Description, "#Shorts") {
		meta.Description += shortFormSuffix
	}
}

// IsShortForm reports whether probe results qualify for short-form badging:
// portrait orientation and a duration strictly under the ceiling.
func IsShortForm(width, height int, durationSeconds float64, maxSeconds int) bool {
	if maxSeconds <= 0 {
		return false
	}
	return height > 0 && height > width && durationSeconds > 0 && durationSeconds < float64(maxSeconds)
}
