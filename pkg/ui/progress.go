package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress receives the bytes of one download as they are written
type Progress interface {
	io.Writer
	Finish() error
}

// NewProgress returns a byte progress bar for a download of total bytes.
// A total of zero or less renders a spinner. When progress output is
// disabled the returned Progress discards everything.
func (c *Console) NewProgress(total int64, description string) Progress {
	if !c.progress {
		return nopProgress{}
	}
	if total <= 0 {
		total = -1
	}

	out := c.out
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

type nopProgress struct{}

func (nopProgress) Write(p []byte) (int, error) { return len(p), nil }
func (nopProgress) Finish() error               { return nil }
