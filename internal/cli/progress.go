package cli

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// progressObserver renders a batch run as a progress bar.
type progressObserver struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

func (p *progressObserver) Start(job string, pending int) {
	p.bar = progressbar.NewOptions(pending,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", job)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(p.w, "\n")
		}),
	)
}

func (p *progressObserver) KeyDone(_ string, _ string) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *progressObserver) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
