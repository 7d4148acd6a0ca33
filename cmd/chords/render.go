package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/history"
	"github.com/RyanBlaney/sonido-chords/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1)

	errorBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("#FF6B6B"))
)

func renderTitle(version string) string {
	return boxStyle.Render(titleStyle.Render("Chords") + " v" + version + "\n" +
		labelStyle.Render("key-aware vocal harmonies"))
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-12s", label)) + valueStyle.Render(value)
}

func renderResult(result *pipeline.ProcessingResult, output string) string {
	d := result.Diagnostics
	lines := []string{
		successStyle.Render("Harmonies added"),
		"",
		row("Key", fmt.Sprintf("%s (%s, confidence %.2f)", result.Key.Name(), d.KeySource, result.Key.Confidence)),
		row("Scale", strings.Join(result.Key.ScaleNames(), " ")),
	}
	for _, t := range result.HarmonyTracks {
		lines = append(lines, row("Harmony", fmt.Sprintf("%s (%+d semitones)", t.Kind, t.Semitones)))
	}
	lines = append(lines,
		row("Voiced", fmt.Sprintf("%.0f%% of %d frames", d.VoicedRatio*100, d.PitchFrames)),
		row("Median pitch", medianPitch(d.MedianPitch)),
		row("Engines", fmt.Sprintf("%s / %s / %s", d.SeparationEngine, d.PitchEngine, d.ShifterBackend)),
		row("Elapsed", d.Total.Round(100*time.Millisecond).String()),
		row("Output", output),
	)
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderError(err error) string {
	msg := errorStyle.Render("Failed")
	if stage := apperrors.StageOf(err); stage != "" {
		msg += labelStyle.Render(" during ") + valueStyle.Render(stage)
	}
	return errorBoxStyle.Render(msg + "\n" + err.Error())
}

func renderInfo(engines []engineStatus) string {
	lines := []string{titleStyle.Render("Engines"), ""}
	for _, e := range engines {
		status := successStyle.Render("available")
		if e.Err != nil {
			status = warningStyle.Render("missing")
			if e.Needed {
				status = errorStyle.Render("missing (required by config)")
			}
		}
		lines = append(lines, row(e.Name, status)+labelStyle.Render("  "+e.Role))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderHistory(runs []history.Run) string {
	if len(runs) == 0 {
		return labelStyle.Render("No runs recorded yet") + "\n"
	}

	var b strings.Builder
	for _, r := range runs {
		status := successStyle.Render("ok    ")
		detail := fmt.Sprintf("%s  %s", r.Key, strings.Join(r.Harmonies, ","))
		if r.Status != "ok" {
			status = errorStyle.Render("failed")
			detail = fmt.Sprintf("%s: %s", r.FailedStage, r.Error)
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			labelStyle.Render(r.StartedAt.Format("2006-01-02 15:04")),
			status,
			valueStyle.Render(r.Input),
			labelStyle.Render(detail),
		)
	}
	return b.String()
}

func medianPitch(hz float64) string {
	if hz <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f Hz", hz)
}
