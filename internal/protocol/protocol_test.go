package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHash = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestBlobKey(t *testing.T) {
	key, err := BlobKey(sampleHash)
	require.NoError(t, err)
	assert.Equal(t, "blobs/2c/f2/"+sampleHash, key)

	again, err := BlobKey(sampleHash)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	_, err = BlobKey("abc")
	assert.Error(t, err)
}

func TestValidHash(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"ok", sampleHash, true},
		{"upper", strings.ToUpper(sampleHash), false},
		{"short", sampleHash[:63], false},
		{"non hex", strings.Repeat("g", 64), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidHash(tt.in))
		})
	}
}

func TestIsBlobKey(t *testing.T) {
	key, _ := BlobKey(sampleHash)
	assert.True(t, IsBlobKey(key))
	assert.False(t, IsBlobKey("blobs/00/f2/"+sampleHash))
	assert.False(t, IsBlobKey("files/2c/f2/"+sampleHash))
	assert.False(t, IsBlobKey("blobs/"+sampleHash))
}

func TestInitResponse_NullUploadID(t *testing.T) {
	b, err := json.Marshal(InitResponse{Key: "k", URL: "u"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"exists":false,"uploadId":null,"key":"k","url":"u"}`, string(b))

	b, err = json.Marshal(InitResponse{Exists: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"exists":true,"uploadId":null}`, string(b))
}
