package logx

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a log line
type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	OffLevel
)

var levels = [...]struct {
	name  string
	paint []color.Attribute
}{
	TraceLevel: {"TRACE", []color.Attribute{color.FgHiBlack}},
	DebugLevel: {"DEBUG", []color.Attribute{color.FgCyan}},
	InfoLevel:  {"INFO", []color.Attribute{color.FgGreen}},
	WarnLevel:  {"WARN", []color.Attribute{color.FgYellow}},
	ErrorLevel: {"ERROR", []color.Attribute{color.FgRed, color.Bold}},
	OffLevel:   {"OFF", []color.Attribute{color.Reset}},
}

func (l Level) known() bool { return l >= TraceLevel && l <= OffLevel }

func (l Level) String() string {
	if !l.known() {
		return "UNKNOWN"
	}
	return levels[l].name
}

// ParseLevel accepts level names in any case; "warning" is WARN
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		name = "WARN"
	}
	for i, def := range levels {
		if def.name == name {
			return Level(i), nil
		}
	}
	return InfoLevel, fmt.Errorf("logx: unknown level %q", s)
}

func (l Level) painter() *color.Color {
	if !l.known() {
		return color.New(color.Reset)
	}
	return color.New(levels[l].paint...)
}
