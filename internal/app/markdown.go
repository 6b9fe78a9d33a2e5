package app

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"
)

const defaultMarkdownWidth = 80

// markdownRenderer turns agent output into terminal text. Glamour renderers
// are built per wrap width and dropped when the palette changes.
type markdownRenderer struct {
	mu      sync.Mutex
	enabled bool
	dark    bool
	byWidth map[int]*glamour.TermRenderer
}

func newMarkdownRenderer(enabled, dark bool) *markdownRenderer {
	return &markdownRenderer{
		enabled: enabled,
		dark:    dark,
		byWidth: map[int]*glamour.TermRenderer{},
	}
}

func (r *markdownRenderer) Enabled() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// SetDark switches the palette and reports whether it changed.
func (r *markdownRenderer) SetDark(dark bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dark == dark {
		return false
	}
	r.dark = dark
	r.byWidth = map[int]*glamour.TermRenderer{}
	return true
}

// Render wraps input to width cells. Plain wrapping is used when markdown is
// off or glamour fails.
func (r *markdownRenderer) Render(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = defaultMarkdownWidth
	}
	plain := func() string {
		return xansi.Hardwrap(xansi.Wordwrap(input, width, " "), width, true)
	}
	if !r.Enabled() {
		return plain()
	}
	term := r.termRenderer(width)
	if term == nil {
		return plain()
	}
	out, err := term.Render(input)
	if err != nil {
		return plain()
	}
	out = xansi.Hardwrap(strings.TrimRight(out, "\n"), width, true)
	return strings.TrimRight(out, "\n")
}

func (r *markdownRenderer) termRenderer(width int) *glamour.TermRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if term := r.byWidth[width]; term != nil {
		return term
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyle(r.dark)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	r.byWidth[width] = term
	return term
}

func markdownStyle(dark bool) glamouransi.StyleConfig {
	cfg := styles.LightStyleConfig
	if dark {
		cfg = styles.DarkStyleConfig
	}
	// Bubble padding owns the spacing around each entry.
	noMargin := uint(0)
	cfg.Document.Margin = &noMargin
	cfg.Document.StylePrimitive.BlockPrefix = ""
	cfg.Document.StylePrimitive.BlockSuffix = ""
	quoteColor := "245"
	faint := true
	cfg.BlockQuote.StylePrimitive.Color = &quoteColor
	cfg.BlockQuote.StylePrimitive.Faint = &faint
	return cfg
}

// escapeUserText stops typed text from being read as markdown structure.
func escapeUserText(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		line = strings.ReplaceAll(line, "`", "\\`")
		body := strings.TrimLeft(line, " \t")
		b.WriteString(line[:len(line)-len(body)])
		if startsBlock(body) {
			b.WriteByte('\\')
		}
		b.WriteString(body)
	}
	return b.String()
}

func startsBlock(line string) bool {
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">") {
		return true
	}
	for _, bullet := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, bullet) {
			return true
		}
	}
	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	return digits > 0 && strings.HasPrefix(line[digits:], ". ")
}
