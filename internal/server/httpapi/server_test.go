package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"github.com/dmitrijs2005/casdrive/internal/server/auth"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/casdrive/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type fakeGateway struct {
	services.Gateway

	mu          sync.Mutex
	heads       map[string]int64
	completed   [][]protocol.Part
	aborted     int
	completeErr error
	onComplete  func(ctx context.Context)
}

func (g *fakeGateway) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	return "https://store.test/" + key, nil
}

func (g *fakeGateway) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	return "mp-1", nil
}

func (g *fakeGateway) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error) {
	return "https://store.test/" + key + "?part", nil
}

func (g *fakeGateway) CompleteMultipart(ctx context.Context, key, uploadID string, parts []protocol.Part) error {
	if g.onComplete != nil {
		g.onComplete(ctx)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = append(g.completed, parts)
	return g.completeErr
}

func (g *fakeGateway) AbortMultipart(ctx context.Context, key, uploadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.aborted++
	return nil
}

func (g *fakeGateway) HeadObject(ctx context.Context, key string) (bool, int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	size, ok := g.heads[key]
	return ok, size, nil
}

type testEnv struct {
	srv     *httptest.Server
	gateway *fakeGateway
	repos   *repomanager.InMemoryRepositoryManager
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := repomanager.NewInMemoryRepositoryManager()
	gw := &fakeGateway{heads: make(map[string]int64)}
	uploads := services.NewUploadService(repos, gw, services.UploadConfig{MultipartThreshold: 100, MaxUploadSize: 1 << 30}, logging.Nop())

	srv := httptest.NewServer(NewHTTPServer("", logging.Nop(), uploads, secret).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, gateway: gw, repos: repos}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(secret), time.Hour)
	require.NoError(t, err)
	return tok
}

// call sends body as JSON and decodes the answer into out when out is non-nil.
func (e *testEnv) call(t *testing.T, method, path, token string, body, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func keyOf(t *testing.T, hash string) string {
	k, err := protocol.BlobKey(hash)
	require.NoError(t, err)
	return k
}

func TestHealth(t *testing.T) {
	env := newEnv(t)

	var body map[string]string
	resp := env.call(t, http.MethodGet, protocol.PathHealth, "", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get(common.RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+protocol.PathHealth, nil)
	require.NoError(t, err)
	req.Header.Set(common.RequestIDHeader, "req-42")
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(common.RequestIDHeader))
}

func TestAuth(t *testing.T) {
	env := newEnv(t)
	expired, err := auth.GenerateToken("u", []byte(secret), -time.Minute)
	require.NoError(t, err)
	forged, err := auth.GenerateToken("u", []byte("other"), time.Hour)
	require.NoError(t, err)

	for name, tok := range map[string]string{"missing": "", "expired": expired, "forged": forged} {
		for _, path := range []string{protocol.PathInit, protocol.PathSignPart, protocol.PathComplete, protocol.PathAbort} {
			t.Run(name+path, func(t *testing.T) {
				var body protocol.ErrorResponse
				resp := env.call(t, http.MethodPost, path, tok, struct{}{}, &body)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
				assert.Equal(t, protocol.KindUnauthorized, body.Kind)
			})
		}
	}
	assert.Zero(t, env.gateway.aborted)
}

func TestInit(t *testing.T) {
	env := newEnv(t)
	tok := tokenFor(t, "alice")

	var bad protocol.ErrorResponse
	resp := env.call(t, http.MethodPost, protocol.PathInit, tok, protocol.InitRequest{Hash: "xyz", Size: 1}, &bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, protocol.KindValidation, bad.Kind)

	h := hashOf("small")
	var single protocol.InitResponse
	resp = env.call(t, http.MethodPost, protocol.PathInit, tok, protocol.InitRequest{Filename: "a", Size: 10, Hash: h}, &single)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, single.UploadID)
	assert.Equal(t, keyOf(t, h), single.Key)
	assert.NotEmpty(t, single.URL)

	var multi protocol.InitResponse
	resp = env.call(t, http.MethodPost, protocol.PathInit, tok, protocol.InitRequest{Filename: "b", Size: 101, Hash: hashOf("big")}, &multi)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, multi.UploadID)
	assert.Equal(t, "mp-1", *multi.UploadID)
}

func TestMalformedBody(t *testing.T) {
	env := newEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+protocol.PathInit, bytes.NewBufferString("{"))
	require.NoError(t, err)
	req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+tokenFor(t, "alice"))
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignPart(t *testing.T) {
	env := newEnv(t)
	tok := tokenFor(t, "alice")
	key := keyOf(t, hashOf("big"))

	var ok protocol.SignPartResponse
	resp := env.call(t, http.MethodPost, protocol.PathSignPart, tok, protocol.SignPartRequest{Key: key, UploadID: "mp-1", PartNumber: 1}, &ok)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, ok.URL)

	resp = env.call(t, http.MethodPost, protocol.PathSignPart, tok, protocol.SignPartRequest{Key: key, UploadID: "mp-1", PartNumber: 10001}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompleteMultipart_ThenDedup(t *testing.T) {
	env := newEnv(t)
	tok := tokenFor(t, "alice")
	h := hashOf("big")
	uploadID := "mp-1"

	var done protocol.CompleteResponse
	resp := env.call(t, http.MethodPost, protocol.PathComplete, tok, protocol.CompleteRequest{
		Key:      keyOf(t, h),
		UploadID: &uploadID,
		Parts:    []protocol.Part{{PartNumber: 2, ETag: "b"}, {PartNumber: 1, ETag: "a"}},
		Filename: "big.bin",
		Size:     200,
		Hash:     h,
		SpaceID:  protocol.PersonalSpace,
	}, &done)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, done.Success)
	assert.Equal(t, h, done.BlobID)
	require.Len(t, env.gateway.completed, 1)
	assert.Equal(t, int32(1), env.gateway.completed[0][0].PartNumber)

	var again protocol.InitResponse
	env.call(t, http.MethodPost, protocol.PathInit, tok, protocol.InitRequest{Filename: "copy.bin", Size: 200, Hash: h}, &again)
	assert.True(t, again.Exists)

	var linked protocol.CompleteResponse
	resp = env.call(t, http.MethodPost, protocol.PathComplete, tok, protocol.CompleteRequest{
		Filename: "copy.bin", Size: 200, Hash: h, SpaceID: protocol.PersonalSpace,
	}, &linked)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, done.FileID, linked.FileID)
	assert.Equal(t, 1, env.repos.BlobStore().Len())
	assert.Equal(t, 2, env.repos.NodeStore().CountByBlob(h))

	var listed protocol.ListNodesResponse
	resp = env.call(t, http.MethodGet, "/spaces/personal/nodes", tok, nil, &listed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, listed.Nodes, 2)
}

func TestComplete_ErrorStatuses(t *testing.T) {
	env := newEnv(t)
	tok := tokenFor(t, "alice")
	h := hashOf("0123456789")

	var body protocol.ErrorResponse
	resp := env.call(t, http.MethodPost, protocol.PathComplete, tok, protocol.CompleteRequest{
		Key: keyOf(t, h), Filename: "a.txt", Size: 10, Hash: h, SpaceID: protocol.PersonalSpace,
	}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, protocol.KindVerification, body.Kind)

	env.gateway.completeErr = errors.New("InvalidPart")
	uploadID := "mp-1"
	resp = env.call(t, http.MethodPost, protocol.PathComplete, tok, protocol.CompleteRequest{
		Key: keyOf(t, h), UploadID: &uploadID, Parts: []protocol.Part{{PartNumber: 1, ETag: "a"}},
		Filename: "a.txt", Size: 10, Hash: h, SpaceID: protocol.PersonalSpace,
	}, &body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, protocol.KindFinalize, body.Kind)

	resp = env.call(t, http.MethodPost, protocol.PathComplete, tok, protocol.CompleteRequest{
		Filename: "a.txt", Size: 10, Hash: hashOf("unknown"), SpaceID: protocol.PersonalSpace,
	}, &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, protocol.KindNotFound, body.Kind)

	env.gateway.heads[keyOf(t, h)] = 10
	req := protocol.CompleteRequest{Key: keyOf(t, h), Filename: "a.txt", Size: 10, Hash: h, SpaceID: protocol.PersonalSpace}
	resp = env.call(t, http.MethodPost, protocol.PathComplete, tok, req, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.call(t, http.MethodPost, protocol.PathComplete, tok, req, &body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, protocol.KindConflict, body.Kind)
}

func TestComplete_SurvivesClientDisconnect(t *testing.T) {
	repos := repomanager.NewInMemoryRepositoryManager()
	entered := make(chan struct{})
	release := make(chan struct{})
	storeCtxErr := make(chan error, 1)
	gw := &fakeGateway{heads: make(map[string]int64), onComplete: func(ctx context.Context) {
		close(entered)
		<-release
		storeCtxErr <- ctx.Err()
	}}
	uploads := services.NewUploadService(repos, gw, services.UploadConfig{MultipartThreshold: 100, MaxUploadSize: 1 << 30}, logging.Nop())

	h := NewHTTPServer("", logging.Nop(), uploads, secret).Handler()
	reqCtx := make(chan context.Context, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqCtx <- r.Context()
		h.ServeHTTP(w, r)
	}))
	defer srv.Close()

	hash := hashOf("big")
	uploadID := "mp-1"
	body, err := json.Marshal(protocol.CompleteRequest{
		Key: keyOf(t, hash), UploadID: &uploadID, Parts: []protocol.Part{{PartNumber: 1, ETag: "a"}},
		Filename: "big.bin", Size: 200, Hash: hash, SpaceID: protocol.PersonalSpace,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+protocol.PathComplete, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+tokenFor(t, "alice"))

	clientErr := make(chan error, 1)
	go func() {
		resp, err := srv.Client().Do(req)
		if err == nil {
			resp.Body.Close()
		}
		clientErr <- err
	}()

	<-entered
	cancel()
	require.Error(t, <-clientErr)

	select {
	case <-(<-reqCtx).Done():
	case <-time.After(5 * time.Second):
		t.Fatal("request context was not cancelled after disconnect")
	}
	close(release)

	assert.NoError(t, <-storeCtxErr)
	assert.Eventually(t, func() bool {
		return repos.NodeStore().CountByBlob(hash) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, repos.BlobStore().Len())
}

func TestAbort(t *testing.T) {
	env := newEnv(t)

	var out protocol.AbortResponse
	resp := env.call(t, http.MethodPost, protocol.PathAbort, tokenFor(t, "alice"),
		protocol.AbortRequest{Key: keyOf(t, hashOf("x")), UploadID: "mp-1"}, &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	assert.Equal(t, 1, env.gateway.aborted)
}

func TestFoldersAndListing(t *testing.T) {
	env := newEnv(t)
	alice := tokenFor(t, "alice")

	var created protocol.NodeResponse
	resp := env.call(t, http.MethodPost, "/spaces/personal/nodes/folder", alice, protocol.CreateFolderRequest{}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, services.DefaultFolderName, created.Node.Name)
	assert.Equal(t, "dir", created.Node.Kind)

	var child protocol.NodeResponse
	resp = env.call(t, http.MethodPost, "/spaces/personal/nodes/folder", alice,
		protocol.CreateFolderRequest{Name: "photos", ParentID: &created.Node.ID}, &child)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var listed protocol.ListNodesResponse
	resp = env.call(t, http.MethodGet, "/spaces/"+created.Node.SpaceID+"/nodes?parentId="+created.Node.ID, alice, nil, &listed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, listed.Nodes, 1)
	assert.Equal(t, "photos", listed.Nodes[0].Name)

	resp = env.call(t, http.MethodGet, "/spaces/personal/nodes?view=trash", alice, nil, &listed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, listed.Nodes)

	resp = env.call(t, http.MethodGet, "/spaces/personal/nodes?view=shared", alice, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.call(t, http.MethodGet, "/spaces/"+created.Node.SpaceID+"/nodes", tokenFor(t, "bob"), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewHTTPServer("127.0.0.1:0", logging.Nop(), nil, secret)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewHTTPServer("127.0.0.1:99999", logging.Nop(), nil, secret)
	assert.Error(t, srv.Run(context.Background()))
}
