package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ANSI palette indexes.
const (
	red    = "1"
	green  = "2"
	yellow = "3"
	blue   = "4"
)

// UI writes human-facing messages. Results go to Out, diagnostics to Err.
type UI struct {
	Out          io.Writer
	Err          io.Writer
	Output       *termenv.Output
	ErrOutput    *termenv.Output
	ColorEnabled bool
}

func New(out io.Writer, err io.Writer, mode ColorMode, disableColor bool) *UI {
	output := termenv.NewOutput(out)
	return &UI{
		Out:          out,
		Err:          err,
		Output:       output,
		ErrOutput:    termenv.NewOutput(err),
		ColorEnabled: colorEnabled(output, mode, disableColor),
	}
}

func colorEnabled(output *termenv.Output, mode ColorMode, disableColor bool) bool {
	if disableColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return output.ColorProfile() != termenv.Ascii
}

func (u *UI) Errorf(format string, args ...any) {
	u.println(u.Err, u.ErrOutput, red, fmt.Sprintf(format, args...))
}

func (u *UI) Infof(format string, args ...any) {
	u.println(u.Out, u.Output, blue, fmt.Sprintf(format, args...))
}

func (u *UI) Successf(format string, args ...any) {
	u.println(u.Out, u.Output, green, fmt.Sprintf(format, args...))
}

// SiteStatus reports how one site run ended, on the diagnostics stream.
func (u *UI) SiteStatus(site, status string, jobs int, reason string) {
	color := red
	switch status {
	case "completed":
		color = green
	case "partial":
		color = yellow
	}
	msg := fmt.Sprintf("%s: %s (%d jobs)", site, status, jobs)
	if reason != "" {
		msg += ": " + reason
	}
	u.println(u.Err, u.ErrOutput, color, msg)
}

func (u *UI) println(w io.Writer, output *termenv.Output, color, msg string) {
	msg = strings.TrimRight(msg, "\n")
	if u.ColorEnabled && output != nil {
		msg = output.String(msg).Foreground(output.Color(color)).String()
	}
	_, _ = fmt.Fprintln(w, msg)
}

func NormalizeColorMode(value string) ColorMode {
	switch mode := ColorMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case ColorAlways, ColorNever:
		return mode
	}
	return ColorAuto
}
