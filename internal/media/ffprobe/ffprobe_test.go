package ffprobe

import "testing"

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{Duration: "123.45"},
	}
	if _, ok := result.VideoStream(); !ok {
		t.Fatal("expected a video stream")
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	width, height := result.Dimensions()
	if width != 1920 || height != 1080 {
		t.Fatalf("unexpected dimensions: %dx%d", width, height)
	}
	if result.IsPortrait() {
		t.Fatal("landscape video reported as portrait")
	}
}

func TestDurationFallsBackToVideoStream(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", Duration: "42.5"}},
	}
	if result.DurationSeconds() != 42.5 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
}

func TestIsShortForm(t *testing.T) {
	portrait := Result{
		Streams: []Stream{{CodecType: "video", Width: 1080, Height: 1920}},
		Format:  Format{Duration: "45"},
	}
	if !portrait.IsShortForm(60) {
		t.Fatal("portrait video under the limit should be short-form")
	}
	if portrait.IsShortForm(0) {
		t.Fatal("non-positive limit should disable short-form detection")
	}

	tooLong := Result{
		Streams: []Stream{{CodecType: "video", Width: 1080, Height: 1920}},
		Format:  Format{Duration: "61"},
	}
	if tooLong.IsShortForm(60) {
		t.Fatal("video over the limit should not be short-form")
	}

	landscape := Result{
		Streams: []Stream{{CodecType: "video", Width: 1920, Height: 1080}},
		Format:  Format{Duration: "30"},
	}
	if landscape.IsShortForm(60) {
		t.Fatal("landscape video should not be short-form")
	}
}

func TestDurationHandlesInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected 0 for invalid duration, got %v", result.DurationSeconds())
	}
}
