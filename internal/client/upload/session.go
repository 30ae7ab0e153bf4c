// Package upload drives one file through hashing, the dedup check, transfer
// and finalization.
package upload

import (
	"io"

	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"github.com/google/uuid"
)

type State int

const (
	Pending State = iota
	Hashing
	FastPathComplete
	Transferring
	Finalizing
	Completed
	Cancelled
	Failed
)

var stateNames = [...]string{"pending", "hashing", "fast-path", "transferring", "finalizing", "completed", "cancelled", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Session describes one file to upload. It is a plain value; progress is
// reported through Snapshots rather than by mutating it.
type Session struct {
	ID          string
	Name        string
	Size        int64
	ContentType string
	SpaceID     string
	ParentID    *string
	Source      io.ReaderAt
}

// NewSession returns a session targeting the root of the personal space.
func NewSession(name string, src io.ReaderAt, size int64) Session {
	return Session{
		ID:      uuid.NewString(),
		Name:    name,
		Size:    size,
		SpaceID: protocol.PersonalSpace,
		Source:  src,
	}
}

// Snapshot is the observable status of a session at one point in time.
// Progress values are percentages in [0, 100].
type Snapshot struct {
	SessionID        string
	Name             string
	State            State
	HashProgress     float64
	TransferProgress float64
	UploadedBytes    int64
	PartsDone        int
	PartsTotal       int
	Err              error
}

// Observer receives snapshots on the goroutine running the session.
type Observer func(Snapshot)

type tracker struct {
	snap    Snapshot
	size    int64
	observe Observer
}

func newTracker(s Session, observe Observer) *tracker {
	return &tracker{
		snap:    Snapshot{SessionID: s.ID, Name: s.Name, State: Pending},
		size:    s.Size,
		observe: observe,
	}
}

func (t *tracker) emit() {
	if t.observe != nil {
		t.observe(t.snap)
	}
}

func (t *tracker) enter(s State) {
	t.snap.State = s
	t.emit()
}

func (t *tracker) hashed(fraction float64) {
	t.snap.HashProgress = fraction * 100
	t.emit()
}

func (t *tracker) planned(parts int) {
	t.snap.PartsTotal = parts
}

func (t *tracker) transferred(n int64) {
	t.snap.UploadedBytes += n
	t.snap.PartsDone++
	if t.size > 0 {
		t.snap.TransferProgress = float64(t.snap.UploadedBytes) / float64(t.size) * 100
	}
	t.emit()
}

func (t *tracker) fail(state State, err error) {
	t.snap.State = state
	t.snap.Err = err
	t.emit()
}
