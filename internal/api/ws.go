package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-exam/internal/fillgap"
	"github.com/p-n-ai/pai-exam/internal/player"
)

// Socket operations accepted from the client.
const (
	OpGet        = "get"
	OpAnswer     = "answer"
	OpNext       = "next"
	OpPrevious   = "previous"
	OpSkip       = "skip"
	OpRetry      = "retry"
	OpJump       = "jump"
	OpCheck      = "check"
	OpViewSource = "view_source"
)

// SocketRequest is one client action on a live session.
type SocketRequest struct {
	Op      string   `json:"op"`
	Value   string   `json:"value,omitempty"`
	Correct *bool    `json:"correct,omitempty"`
	Index   *int     `json:"index,omitempty"`
	Values  []string `json:"values,omitempty"`
}

// SocketReply carries the session view after an action, or the error that
// rejected it. The connection stays open after an error. A check reply
// carries Check instead of View.
type SocketReply struct {
	View  *player.View         `json:"view,omitempty"`
	Check *fillgap.CheckResult `json:"check,omitempty"`
	Error string               `json:"error,omitempty"`
}

var errUnknownOp = errors.New("unknown op")

// play drives one session over a WebSocket. The current view is sent on
// connect, then once per request.
func (h *Handler) play(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	v, err := h.player.Get(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "session_id", id, "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	if err := wsjson.Write(ctx, conn, SocketReply{View: &v}); err != nil {
		return
	}

	for {
		var req SocketRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) == -1 {
				slog.Debug("websocket read ended", "session_id", id, "error", err)
			}
			return
		}

		reply := h.reply(ctx, id, req)
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			slog.Debug("websocket write failed", "session_id", id, "error", err)
			return
		}
	}
}

func (h *Handler) reply(ctx context.Context, id string, req SocketRequest) SocketReply {
	if req.Op == OpCheck {
		res, err := h.player.CheckBlanks(ctx, id, req.Values)
		if err != nil {
			return SocketReply{Error: err.Error()}
		}
		return SocketReply{Check: &res}
	}
	v, err := h.dispatch(ctx, id, req)
	if err != nil {
		return SocketReply{Error: err.Error()}
	}
	return SocketReply{View: &v}
}

func (h *Handler) dispatch(ctx context.Context, id string, req SocketRequest) (player.View, error) {
	switch req.Op {
	case OpGet:
		return h.player.Get(ctx, id)
	case OpAnswer:
		return h.player.Submit(ctx, id, req.Value, req.Correct)
	case OpNext:
		return h.player.Next(ctx, id)
	case OpPrevious:
		return h.player.Previous(ctx, id)
	case OpSkip:
		return h.player.Skip(ctx, id)
	case OpRetry:
		return h.player.Retry(ctx, id)
	case OpJump:
		if req.Index == nil {
			return player.View{}, errors.New("index is required")
		}
		return h.player.JumpTo(ctx, id, *req.Index)
	case OpViewSource:
		if err := h.player.ViewSource(ctx, id); err != nil {
			return player.View{}, err
		}
		return h.player.Get(ctx, id)
	default:
		return player.View{}, fmt.Errorf("%w: %q", errUnknownOp, req.Op)
	}
}
