package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/plumeai/plume/internal/httputil"
	"github.com/plumeai/plume/internal/logic/chat"
	"github.com/plumeai/plume/internal/svc"
	"github.com/plumeai/plume/internal/types"
)

// Relay a chat completion, streamed over SSE when the request asks for it.
func ChatCompletionsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatCompletionRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := chat.NewChatCompletionLogic(r.Context(), svcCtx)

		if !req.Stream {
			resp, err := l.ChatCompletion(&req, nil)
			if err != nil {
				writeChatError(w, err)
				return
			}
			httputil.OkJSON(w, resp)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httputil.InternalError(w, "streaming unsupported")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		enc := json.NewEncoder(w)
		emit := func(d types.StreamDelta) {
			w.Write([]byte("data: "))
			enc.Encode(d) // Encode appends the newline
			w.Write([]byte("\n"))
			flusher.Flush()
		}

		// Errors after the first byte can only be reported in-stream; the
		// logic layer emits an error delta before returning.
		_, _ = l.ChatCompletion(&req, emit)
	}
}

func writeChatError(w http.ResponseWriter, err error) {
	if errors.Is(err, chat.ErrConversationNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.Error(w, err)
}
