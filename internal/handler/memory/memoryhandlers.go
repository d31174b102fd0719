package memory

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/plumeai/plume/internal/db"
	"github.com/plumeai/plume/internal/httputil"
	"github.com/plumeai/plume/internal/logic/memories"
	"github.com/plumeai/plume/internal/svc"
	"github.com/plumeai/plume/internal/types"
)

// List non-deleted memories, newest first.
func ListMemoriesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		resp, err := memories.NewMemoriesLogic(r.Context(), svcCtx).List(limit)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.OkJSON(w, resp)
	}
}

// Update a memory's status (pending/confirmed).
func UpdateMemoryHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status string `json:"status"`
		}
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if req.Status != db.MemoryStatusPending && req.Status != db.MemoryStatusConfirmed {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "status must be pending or confirmed")
			return
		}
		if err := memories.NewMemoriesLogic(r.Context(), svcCtx).SetStatus(chi.URLParam(r, "id"), req.Status); err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.OkJSON(w, map[string]bool{"ok": true})
	}
}

// Soft-delete a memory.
func DeleteMemoryHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := memories.NewMemoriesLogic(r.Context(), svcCtx).Delete(chi.URLParam(r, "id")); err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.OkJSON(w, map[string]bool{"ok": true})
	}
}

// Run the extraction pipeline over one conversation's recent turns.
func ExtractMemoriesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ExtractMemoriesRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if req.ConversationID == "" {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "conversation_id is required")
			return
		}
		resp, err := memories.NewMemoriesLogic(r.Context(), svcCtx).Extract(&req)
		if err != nil {
			if errors.Is(err, memories.ErrMemoryDisabled) {
				httputil.ErrorWithCode(w, http.StatusConflict, err.Error())
				return
			}
			httputil.Error(w, err)
			return
		}
		httputil.OkJSON(w, resp)
	}
}
