package main

import (
	"github.com/fatih/color"
)

// annotationLocal marks commands that must not contact the daemon before
// running.
const annotationLocal = "handbrake/local"

var local = map[string]string{annotationLocal: "true"}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

// axisBar draws v in [0, 255] as a fixed-width gauge.
func axisBar(v uint8, width int) string {
	filled := int(v) * width / 255
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return string(bar)
}
