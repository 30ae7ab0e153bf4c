package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/nodes"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleInit(w http.ResponseWriter, r *http.Request) {
	var req protocol.InitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := s.uploads.Init(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleSignPart(w http.ResponseWriter, r *http.Request) {
	var req protocol.SignPartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	url, err := s.uploads.SignPart(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.SignPartResponse{URL: url})
}

func (s *HTTPServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req protocol.CompleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	// finalize and registration must not be split by a client disconnect
	ctx := context.WithoutCancel(r.Context())
	resp, err := s.uploads.Complete(ctx, UserIDFromContext(ctx), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleAbort(w http.ResponseWriter, r *http.Request) {
	var req protocol.AbortRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.uploads.Abort(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.AbortResponse{Success: true})
}

func (s *HTTPServer) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateFolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	tree := s.uploads.Tree()
	space, err := tree.ResolveSpace(r.Context(), UserIDFromContext(r.Context()), r.PathValue("spaceId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	node, err := tree.CreateFolder(r.Context(), space.ID, req.ParentID, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, protocol.NodeResponse{Node: toWire(node)})
}

func (s *HTTPServer) handleListNodes(w http.ResponseWriter, r *http.Request) {
	view, ok := nodes.ParseView(r.URL.Query().Get("view"))
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: unknown view %q", common.ErrorValidation, r.URL.Query().Get("view")))
		return
	}

	tree := s.uploads.Tree()
	space, err := tree.ResolveSpace(r.Context(), UserIDFromContext(r.Context()), r.PathValue("spaceId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	q := nodes.ListQuery{SpaceID: space.ID, View: view}
	if parent := r.URL.Query().Get("parentId"); parent != "" {
		q.ParentID = &parent
	}

	list, err := tree.List(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := protocol.ListNodesResponse{Nodes: make([]protocol.Node, 0, len(list))}
	for _, n := range list {
		resp.Nodes = append(resp.Nodes, toWire(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toWire(n *models.Node) protocol.Node {
	return protocol.Node{
		ID:        n.ID,
		SpaceID:   n.SpaceID,
		ParentID:  n.ParentID,
		Name:      n.Name,
		Kind:      string(n.Kind),
		Size:      n.Size,
		MimeType:  n.MimeType,
		BlobHash:  n.BlobHash,
		IsStarred: n.IsStarred,
		IsTrashed: n.IsTrashed,
		UpdatedAt: n.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
