package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Console writes styled, human-readable lines for the user
type Console struct {
	out      io.Writer
	styles   Styles
	progress bool
	mu       sync.Mutex
}

// Options configures a Console
type Options struct {
	NoColor  bool
	Progress bool
}

// NewConsole creates a console writing to stdout
func NewConsole(opts Options) *Console {
	return NewConsoleWithWriter(os.Stdout, opts)
}

// NewConsoleWithWriter creates a console writing to w
func NewConsoleWithWriter(w io.Writer, opts Options) *Console {
	styles := NewStyles(w)
	if opts.NoColor {
		styles = PlainStyles()
	}
	return &Console{
		out:      w,
		styles:   styles,
		progress: opts.Progress,
	}
}

// Success prints a success message in green
func (c *Console) Success(format string, args ...interface{}) {
	c.println(c.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Warning prints a warning message in yellow
func (c *Console) Warning(format string, args ...interface{}) {
	c.println(c.styles.Warning.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message in red
func (c *Console) Error(format string, args ...interface{}) {
	c.println(c.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// Info prints an informational message in cyan
func (c *Console) Info(format string, args ...interface{}) {
	c.println(c.styles.Info.Render(fmt.Sprintf(format, args...)))
}

// Label prints a "label: value" pair
func (c *Console) Label(label, value string) {
	c.println(fmt.Sprintf("%s: %s", c.styles.Info.Render(label), c.styles.Warning.Render(value)))
}

// Dim prints a de-emphasized message
func (c *Console) Dim(format string, args ...interface{}) {
	c.println(c.styles.Dim.Render(fmt.Sprintf(format, args...)))
}

// FailureReport prints the list of pages where failed writeups can be
// fetched by hand. Nothing is printed for an empty list.
func (c *Console) FailureReport(urls []string) {
	if len(urls) == 0 {
		return
	}
	c.Error("Failed to download %d writeup(s):", len(urls))
	for _, url := range urls {
		c.println(url)
	}
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}
