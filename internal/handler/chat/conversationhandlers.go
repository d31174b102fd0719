package chat

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/plumeai/plume/internal/httputil"
	"github.com/plumeai/plume/internal/logic/chat"
	"github.com/plumeai/plume/internal/svc"
	"github.com/plumeai/plume/internal/types"
)

// Create a conversation ahead of chatting.
func CreateConversationHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateConversationRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		resp, err := chat.NewConversationLogic(r.Context(), svcCtx).Create(&req)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.OkJSON(w, resp)
	}
}

// List conversations by recent activity.
func ListConversationsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		resp, err := chat.NewConversationLogic(r.Context(), svcCtx).List(limit)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.OkJSON(w, resp)
	}
}

// Get one conversation.
func GetConversationHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := chat.NewConversationLogic(r.Context(), svcCtx).Get(chi.URLParam(r, "id"))
		if err != nil {
			writeChatError(w, err)
			return
		}
		httputil.OkJSON(w, resp)
	}
}

// List the ordered turns of a conversation.
func ListTurnsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ListTurnsRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		resp, err := chat.NewConversationLogic(r.Context(), svcCtx).Turns(&req)
		if err != nil {
			writeChatError(w, err)
			return
		}
		httputil.OkJSON(w, resp)
	}
}

// Toggle history compression for one conversation.
func SetCompressionHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if err := chat.NewConversationLogic(r.Context(), svcCtx).SetCompression(chi.URLParam(r, "id"), req.Enabled); err != nil {
			writeChatError(w, err)
			return
		}
		httputil.OkJSON(w, map[string]bool{"ok": true})
	}
}
