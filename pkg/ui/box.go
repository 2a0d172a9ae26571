package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// BoxWidth is the fixed outer width of framed boxes.
const BoxWidth = 71

// Box accumulates lines for a framed terminal box. Content lines are
// clipped and padded to the fixed width; colors are applied per line so
// padding math never has to account for escape codes.
type Box struct {
	lines []string
}

// NewBox creates an empty box.
func NewBox() *Box {
	return &Box{}
}

// Title adds a bold title line.
func (b *Box) Title(title string) *Box {
	return b.colored(BlueBold, title)
}

// Line adds a plain content line.
func (b *Box) Line(text string) *Box {
	return b.colored(TextPrimary, text)
}

// Label adds a "name: value" line with the name in the secondary color.
func (b *Box) Label(name, value string) *Box {
	inner := BoxWidth - 4
	text := name + ": " + value
	if utf8.RuneCountInString(text) > inner {
		text = clip(text, inner)
	}
	pad := inner - utf8.RuneCountInString(text)
	b.lines = append(b.lines,
		TextBorder+"│ "+TextSecondary+name+": "+TextPrimary+value+strings.Repeat(" ", pad)+TextBorder+" │"+Reset)
	return b
}

// Warning adds a line in the warning color.
func (b *Box) Warning(text string) *Box {
	return b.colored(Yellow, text)
}

// Blank adds an empty line.
func (b *Box) Blank() *Box {
	b.lines = append(b.lines, TextBorder+"│"+strings.Repeat(" ", BoxWidth-2)+"│"+Reset)
	return b
}

// Wrapped adds a paragraph, word-wrapped and indented by two spaces.
func (b *Box) Wrapped(text string) *Box {
	inner := BoxWidth - 6
	line := ""
	for _, word := range strings.Fields(text) {
		if line != "" && utf8.RuneCountInString(line)+utf8.RuneCountInString(word)+1 > inner {
			b.colored(TextPrimary, "  "+line)
			line = ""
		}
		if line != "" {
			line += " "
		}
		line += word
	}
	if line != "" {
		b.colored(TextPrimary, "  "+line)
	}
	return b
}

func (b *Box) colored(color, text string) *Box {
	inner := BoxWidth - 4
	if utf8.RuneCountInString(text) > inner {
		text = clip(text, inner)
	}
	pad := inner - utf8.RuneCountInString(text)
	b.lines = append(b.lines,
		TextBorder+"│ "+color+text+strings.Repeat(" ", pad)+TextBorder+" │"+Reset)
	return b
}

// Render returns the framed box as a single string.
func (b *Box) Render() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(TextBorder + "┌" + strings.Repeat("─", BoxWidth-2) + "┐" + Reset + "\n")
	for _, line := range b.lines {
		sb.WriteString(line + "\n")
	}
	sb.WriteString(TextBorder + "└" + strings.Repeat("─", BoxWidth-2) + "┘" + Reset + "\n")
	return sb.String()
}

func clip(text string, max int) string {
	if max <= 3 {
		return text[:max]
	}
	runes := []rune(text)
	return string(runes[:max-3]) + "..."
}

// FormatDuration renders seconds as MM:SS.
func FormatDuration(seconds int) string {
	minutes := seconds / 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds%60)
}
