package transform

import (
	"fmt"
	"strings"

	"clipshift/internal/queue"
)

// Plan describes one ffmpeg invocation.
type Plan struct {
	Args     []string
	Reencode bool
}

// cropFilter centers a 9:16 window on the source, then scales to the target.
func cropFilter(width, height int) string {
	return fmt.Sprintf("crop=ih*9/16:ih:(iw-ih*9/16)/2:0,scale=%d:%d", width, height)
}

// padFilter scales to the target width and letterboxes the remainder.
func padFilter(width, height int) string {
	return fmt.Sprintf("scale=%d:-2,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", width, width, height)
}

const loudnormFilter = "loudnorm=I=-16:LRA=11:TP=-1.5"

// overlayPosition maps a watermark corner to overlay coordinates with a 10px
// margin.
func overlayPosition(position queue.WatermarkPosition) string {
	switch position {
	case queue.WatermarkTopLeft:
		return "10:10"
	case queue.WatermarkBottomLeft:
		return "10:main_h-overlay_h-10"
	case queue.WatermarkBottomRight:
		return "main_w-overlay_w-10:main_h-overlay_h-10"
	default:
		return "main_w-overlay_w-10:10"
	}
}

// BuildPlan assembles the ffmpeg argument list for the requested processing.
// Visual filters force a re-encode; trim-only and audio-only work keeps the
// video stream copied.
func BuildPlan(opts queue.TransformOptions, inputPath, outputPath string) Plan {
	args := []string{"-y", "-hide_banner", "-nostats", "-i", inputPath}

	hasWatermark := strings.TrimSpace(opts.WatermarkPath) != ""
	if hasWatermark {
		args = append(args, "-i", opts.WatermarkPath)
	}

	width, height := opts.TargetWidth, opts.TargetHeight
	if width <= 0 {
		width = 1080
	}
	if height <= 0 {
		height = 1920
	}

	var videoFilters []string
	switch opts.Mode {
	case queue.TransformCrop:
		videoFilters = append(videoFilters, cropFilter(width, height))
	case queue.TransformPad:
		videoFilters = append(videoFilters, padFilter(width, height))
	}

	visual := len(videoFilters) > 0 || hasWatermark

	if hasWatermark {
		chain := strings.Join(videoFilters, ",")
		if chain == "" {
			chain = "null"
		}
		position := overlayPosition(opts.WatermarkPosition)
		var graph string
		if opts.WatermarkOpacity > 0 && opts.WatermarkOpacity < 1 {
			graph = fmt.Sprintf("[0:v]%s[base];[1:v]format=rgba,colorchannelmixer=aa=%.2f[wm];[base][wm]overlay=%s[vout]",
				chain, opts.WatermarkOpacity, position)
		} else {
			graph = fmt.Sprintf("[0:v]%s[base];[base][1:v]overlay=%s[vout]", chain, position)
		}
		args = append(args, "-filter_complex", graph, "-map", "[vout]", "-map", "0:a?")
	} else if len(videoFilters) > 0 {
		args = append(args, "-vf", strings.Join(videoFilters, ","))
	}

	if opts.NormalizeAudio {
		args = append(args, "-af", loudnormFilter)
	}

	if opts.TrimStart > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", opts.TrimStart))
	}
	if opts.TrimEnd > 0 {
		args = append(args, "-to", fmt.Sprintf("%.3f", opts.TrimEnd))
	}

	if visual {
		args = append(args, "-c:v", "libx264", "-preset", "veryfast", "-crf", "23")
	} else {
		args = append(args, "-c:v", "copy")
	}
	if opts.NormalizeAudio || visual {
		args = append(args, "-c:a", "aac", "-b:a", "128k")
	} else {
		args = append(args, "-c:a", "copy")
	}

	args = append(args, "-movflags", "+faststart", outputPath)
	return Plan{Args: args, Reencode: visual}
}

// RemuxPlan copies all streams into a fast-start container.
func RemuxPlan(inputPath, outputPath string) Plan {
	return Plan{Args: []string{
		"-y", "-hide_banner", "-nostats",
		"-i", inputPath,
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath,
	}}
}

// ReencodePlan fully re-encodes when a stream copy remux fails.
func ReencodePlan(inputPath, outputPath string) Plan {
	return Plan{
		Args: []string{
			"-y", "-hide_banner", "-nostats",
			"-i", inputPath,
			"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
			"-c:a", "aac", "-b:a", "128k",
			"-movflags", "+faststart",
			outputPath,
		},
		Reencode: true,
	}
}
