package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/client/upload"
	"github.com/stretchr/testify/assert"
)

func TestProgress_LogLinesOnStateChange(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, false)

	p.observe(upload.Snapshot{SessionID: "1", Name: "a.bin", State: upload.Pending})
	p.observe(upload.Snapshot{SessionID: "1", Name: "a.bin", State: upload.Hashing})
	p.observe(upload.Snapshot{SessionID: "1", Name: "a.bin", State: upload.Hashing, HashProgress: 50})
	p.observe(upload.Snapshot{SessionID: "1", Name: "a.bin", State: upload.Transferring, PartsTotal: 3})
	p.observe(upload.Snapshot{SessionID: "1", Name: "a.bin", State: upload.Failed, Err: errors.New("boom")})
	p.finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"a.bin: pending",
		"a.bin: hashing 0%",
		"a.bin: uploading 0% (0/3 parts, 0B)",
		"a.bin: failed: boom",
	}, lines)
}

func TestProgress_LiveRedrawIsThrottled(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, true)
	now := time.Unix(0, 0)
	p.now = func() time.Time { return now }

	p.observe(upload.Snapshot{SessionID: "1", Name: "a", State: upload.Hashing})
	p.observe(upload.Snapshot{SessionID: "2", Name: "b", State: upload.Hashing})
	draws := strings.Count(buf.String(), "\r")
	assert.Equal(t, 2, draws)

	p.observe(upload.Snapshot{SessionID: "1", Name: "a", State: upload.Hashing, HashProgress: 10})
	assert.Equal(t, draws, strings.Count(buf.String(), "\r"), "progress inside the interval is not drawn")

	now = now.Add(redrawInterval)
	p.observe(upload.Snapshot{SessionID: "1", Name: "a", State: upload.Hashing, HashProgress: 20})
	assert.Equal(t, draws+1, strings.Count(buf.String(), "\r"))
	assert.Contains(t, buf.String(), "a hashing 20% | b hashing 0%")

	p.finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "uploading 40%", describe(upload.Snapshot{State: upload.Transferring, TransferProgress: 40, PartsTotal: 1}))
	assert.Equal(t, "already stored, linking", describe(upload.Snapshot{State: upload.FastPathComplete}))
	assert.Equal(t, "completed", describe(upload.Snapshot{State: upload.Completed}))
	assert.Equal(t, "cancelled", describe(upload.Snapshot{State: upload.Cancelled}))
}
