package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/casdrive/internal/protocol"
)

type fakeGateway struct {
	Gateway

	mu            sync.Mutex
	presignPuts   []string
	creates       []string
	signed        []int32
	completed     [][]protocol.Part
	aborted       []string
	heads         map[string]int64
	headErr       error
	completeErr   error
	createErr     error
	presignPutErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{heads: make(map[string]int64)}
}

func (g *fakeGateway) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.presignPuts = append(g.presignPuts, key)
	if g.presignPutErr != nil {
		return "", g.presignPutErr
	}
	return "https://store/" + key + "?sig", nil
}

func (g *fakeGateway) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates = append(g.creates, key)
	if g.createErr != nil {
		return "", g.createErr
	}
	return fmt.Sprintf("upload-%d", len(g.creates)), nil
}

func (g *fakeGateway) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signed = append(g.signed, partNumber)
	return fmt.Sprintf("https://store/%s?uploadId=%s&partNumber=%d", key, uploadID, partNumber), nil
}

func (g *fakeGateway) CompleteMultipart(ctx context.Context, key, uploadID string, parts []protocol.Part) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = append(g.completed, parts)
	return g.completeErr
}

func (g *fakeGateway) AbortMultipart(ctx context.Context, key, uploadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.aborted = append(g.aborted, uploadID)
	return nil
}

func (g *fakeGateway) HeadObject(ctx context.Context, key string) (bool, int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.headErr != nil {
		return false, 0, g.headErr
	}
	size, ok := g.heads[key]
	return ok, size, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.presignPuts) + len(g.creates) + len(g.signed) + len(g.completed) + len(g.aborted)
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func keyOf(hash string) string {
	k, err := protocol.BlobKey(hash)
	if err != nil {
		panic(err)
	}
	return k
}
