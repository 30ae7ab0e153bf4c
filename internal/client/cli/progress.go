package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/client/upload"
	"github.com/dmitrijs2005/casdrive/internal/unitsx"
)

const redrawInterval = 100 * time.Millisecond

// progress renders snapshots from all sessions. Observers run on the
// session goroutines, so every entry point takes mu.
type progress struct {
	mu       sync.Mutex
	w        io.Writer
	live     bool
	order    []string
	snaps    map[string]upload.Snapshot
	lastDraw time.Time
	drawn    bool
	now      func() time.Time
}

func newProgress(w io.Writer, live bool) *progress {
	return &progress{
		w:     w,
		live:  live,
		snaps: make(map[string]upload.Snapshot),
		now:   time.Now,
	}
}

func (p *progress) observe(s upload.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, seen := p.snaps[s.SessionID]
	if !seen {
		p.order = append(p.order, s.SessionID)
	}
	p.snaps[s.SessionID] = s
	stateChanged := !seen || prev.State != s.State

	if !p.live {
		if stateChanged {
			fmt.Fprintf(p.w, "%s: %s\n", s.Name, describe(s))
		}
		return
	}

	if !stateChanged && p.now().Sub(p.lastDraw) < redrawInterval {
		return
	}
	p.redraw()
}

func (p *progress) redraw() {
	lines := make([]string, 0, len(p.order))
	for _, id := range p.order {
		s := p.snaps[id]
		lines = append(lines, s.Name+" "+describe(s))
	}
	fmt.Fprintf(p.w, "\r\033[K%s", strings.Join(lines, " | "))
	p.lastDraw = p.now()
	p.drawn = true
}

// finish ends the live line so later output starts on a fresh one.
func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live && p.drawn {
		p.redraw()
		fmt.Fprintln(p.w)
	}
}

func describe(s upload.Snapshot) string {
	switch s.State {
	case upload.Hashing:
		return fmt.Sprintf("hashing %.0f%%", s.HashProgress)
	case upload.Transferring:
		if s.PartsTotal > 1 {
			return fmt.Sprintf("uploading %.0f%% (%d/%d parts, %s)", s.TransferProgress, s.PartsDone, s.PartsTotal, unitsx.HumanSize(s.UploadedBytes))
		}
		return fmt.Sprintf("uploading %.0f%%", s.TransferProgress)
	case upload.FastPathComplete:
		return "already stored, linking"
	case upload.Failed, upload.Cancelled:
		if s.Err != nil {
			return fmt.Sprintf("%s: %v", s.State, s.Err)
		}
	}
	return s.State.String()
}
