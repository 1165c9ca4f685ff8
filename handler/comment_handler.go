package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Mr-Leon909/tsutsuji-app/store"
)

type addCommentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	me := viewer(r.Context())
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := h.comments.AddComment(r.Context(), postID, me.ID, req.Content)
	switch {
	case errors.Is(err, store.ErrEmptyComment):
		writeError(w, http.StatusBadRequest, "コメントを入力してください")
		return
	case errors.Is(err, store.ErrCommentTooLong):
		writeError(w, http.StatusBadRequest, "コメントは1000文字以内で入力してください")
		return
	case err != nil:
		// logged by the store; the list is left as it was
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"comment":  nil,
			"comments": h.comments.Snapshot().Comments,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"comment":  comment,
		"comments": h.comments.Snapshot().Comments,
	})
}

func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	h.toggleCommentLike(w, r, true)
}

func (h *Handler) UnlikeComment(w http.ResponseWriter, r *http.Request) {
	h.toggleCommentLike(w, r, false)
}

func (h *Handler) toggleCommentLike(w http.ResponseWriter, r *http.Request, like bool) {
	me := viewer(r.Context())
	commentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if like {
		_ = h.comments.LikeComment(r.Context(), commentID, me.ID)
	} else {
		_ = h.comments.UnlikeComment(r.Context(), commentID, me.ID)
	}

	resp := map[string]interface{}{
		"comment_id": commentID,
		"has_liked":  like,
	}
	for _, c := range h.comments.Snapshot().Comments {
		if c.ID == commentID {
			resp["has_liked"] = c.HasLiked
			resp["likes_count"] = c.LikesCount
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

