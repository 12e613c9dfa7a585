package transform

import (
	"strings"
	"testing"

	"clipshift/internal/queue"
)

func argsContain(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

func argValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestBuildPlanCropForcesReencode(t *testing.T) {
	plan := BuildPlan(queue.TransformOptions{
		Mode:         queue.TransformCrop,
		TargetWidth:  1080,
		TargetHeight: 1920,
	}, "in.mp4", "out.mp4")

	if !plan.Reencode {
		t.Fatal("crop should force a re-encode")
	}
	vf := argValue(plan.Args, "-vf")
	if vf != "crop=ih*9/16:ih:(iw-ih*9/16)/2:0,scale=1080:1920" {
		t.Fatalf("unexpected crop filter: %q", vf)
	}
	if !argsContain(plan.Args, "libx264") || !argsContain(plan.Args, "veryfast") {
		t.Fatalf("expected libx264 veryfast, got %v", plan.Args)
	}
	if !argsContain(plan.Args, "+faststart") {
		t.Fatalf("expected faststart container flag, got %v", plan.Args)
	}
}

func TestBuildPlanPadFilter(t *testing.T) {
	plan := BuildPlan(queue.TransformOptions{
		Mode:         queue.TransformPad,
		TargetWidth:  1080,
		TargetHeight: 1920,
	}, "in.mp4", "out.mp4")

	vf := argValue(plan.Args, "-vf")
	if vf != "scale=1080:-2,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:black" {
		t.Fatalf("unexpected pad filter: %q", vf)
	}
}

func TestBuildPlanTrimOnlyStreamCopies(t *testing.T) {
	plan := BuildPlan(queue.TransformOptions{
		TrimStart: 1.5,
		TrimEnd:   30,
	}, "in.mp4", "out.mp4")

	if plan.Reencode {
		t.Fatal("trim-only should not force a re-encode")
	}
	if argValue(plan.Args, "-ss") != "1.500" || argValue(plan.Args, "-to") != "30.000" {
		t.Fatalf("unexpected trim args: %v", plan.Args)
	}
	if argValue(plan.Args, "-c:v") != "copy" || argValue(plan.Args, "-c:a") != "copy" {
		t.Fatalf("expected stream copy, got %v", plan.Args)
	}
}

func TestBuildPlanLoudnessNormalizationReencodesAudioOnly(t *testing.T) {
	plan := BuildPlan(queue.TransformOptions{NormalizeAudio: true}, "in.mp4", "out.mp4")

	if argValue(plan.Args, "-af") != "loudnorm=I=-16:LRA=11:TP=-1.5" {
		t.Fatalf("unexpected audio filter: %v", plan.Args)
	}
	if argValue(plan.Args, "-c:v") != "copy" {
		t.Fatalf("video should stream copy for audio-only work: %v", plan.Args)
	}
	if argValue(plan.Args, "-c:a") != "aac" {
		t.Fatalf("audio should re-encode for loudnorm: %v", plan.Args)
	}
}

func TestBuildPlanWatermarkOverlay(t *testing.T) {
	plan := BuildPlan(queue.TransformOptions{
		WatermarkPath:     "logo.png",
		WatermarkPosition: queue.WatermarkBottomRight,
		WatermarkOpacity:  0.5,
	}, "in.mp4", "out.mp4")

	if !plan.Reencode {
		t.Fatal("watermark should force a re-encode")
	}
	graph := argValue(plan.Args, "-filter_complex")
	if !strings.Contains(graph, "colorchannelmixer=aa=0.50") {
		t.Fatalf("expected opacity mix in graph: %q", graph)
	}
	if !strings.Contains(graph, "overlay=main_w-overlay_w-10:main_h-overlay_h-10") {
		t.Fatalf("expected bottom-right overlay coords: %q", graph)
	}
	if !argsContain(plan.Args, "logo.png") {
		t.Fatalf("watermark input missing: %v", plan.Args)
	}
}

func TestBuildPlanWatermarkCorners(t *testing.T) {
	cases := map[queue.WatermarkPosition]string{
		queue.WatermarkTopLeft:     "overlay=10:10",
		queue.WatermarkTopRight:    "overlay=main_w-overlay_w-10:10",
		queue.WatermarkBottomLeft:  "overlay=10:main_h-overlay_h-10",
		queue.WatermarkBottomRight: "overlay=main_w-overlay_w-10:main_h-overlay_h-10",
	}
	for position, expected := range cases {
		plan := BuildPlan(queue.TransformOptions{
			WatermarkPath:     "logo.png",
			WatermarkPosition: position,
		}, "in.mp4", "out.mp4")
		graph := argValue(plan.Args, "-filter_complex")
		if !strings.Contains(graph, expected) {
			t.Errorf("position %s: expected %q in %q", position, expected, graph)
		}
	}
}

func TestRemuxPlanStreamCopies(t *testing.T) {
	plan := RemuxPlan("in.mp4", "out.mp4")
	if plan.Reencode {
		t.Fatal("remux should not report re-encode")
	}
	if argValue(plan.Args, "-c") != "copy" {
		t.Fatalf("expected stream copy, got %v", plan.Args)
	}
	if !argsContain(plan.Args, "+faststart") {
		t.Fatalf("expected faststart flag, got %v", plan.Args)
	}
}

func TestReencodePlan(t *testing.T) {
	plan := ReencodePlan("in.mp4", "out.mp4")
	if !plan.Reencode {
		t.Fatal("re-encode plan should report re-encode")
	}
	if argValue(plan.Args, "-c:v") != "libx264" || argValue(plan.Args, "-b:a") != "128k" {
		t.Fatalf("unexpected codec args: %v", plan.Args)
	}
}

func TestParseProgressLine(t *testing.T) {
	if secs, ok := parseProgressLine("out_time_us=1500000"); !ok || secs != 1.5 {
		t.Fatalf("out_time_us parse failed: %v %v", secs, ok)
	}
	if secs, ok := parseProgressLine("out_time=00:01:30.50"); !ok || secs != 90.5 {
		t.Fatalf("out_time parse failed: %v %v", secs, ok)
	}
	if _, ok := parseProgressLine("frame=100"); ok {
		t.Fatal("unrelated keys should not parse")
	}
}
