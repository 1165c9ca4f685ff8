package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
	"github.com/Mr-Leon909/tsutsuji-app/repository"
	"github.com/Mr-Leon909/tsutsuji-app/store"
)

type createPostRequest struct {
	MediaURL string  `json:"media_url"`
	IsVideo  bool    `json:"is_video"`
	Caption  *string `json:"caption"`
}

// Timeline loads every post for the viewer.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	me := viewer(r.Context())

	if err := h.feed.LoadTimeline(r.Context(), &me.ID); err != nil {
		state := h.feed.Snapshot()
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":  state.Error,
			"reload": r.URL.Path,
			"posts":  state.Posts,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"viewer": me,
		"posts":  h.feed.Snapshot().Posts,
	})
}

// MyPosts is the viewer's own profile grid.
func (h *Handler) MyPosts(w http.ResponseWriter, r *http.Request) {
	me := viewer(r.Context())
	h.profile(w, r, me.ID, me.Author())
}

// UserPosts is another user's profile grid. The viewer's own id redirects to
// /sns/myposts.
func (h *Handler) UserPosts(w http.ResponseWriter, r *http.Request) {
	me := viewer(r.Context())
	userID, ok := pathID(w, r, "first")
	if !ok {
		return
	}
	if userID == me.ID {
		http.Redirect(w, r, "/sns/myposts", http.StatusFound)
		return
	}

	author, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		notFound(w, r)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":  "ユーザー情報の取得に失敗しました",
			"reload": r.URL.Path,
		})
		return
	}
	h.profile(w, r, userID, author.Author())
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request, userID uuid.UUID, author models.Author) {
	me := viewer(r.Context())

	if err := h.feed.LoadUserPosts(r.Context(), userID, &me.ID); err != nil {
		state := h.feed.Snapshot()
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":  state.Error,
			"reload": r.URL.Path,
			"user":   author,
			"posts":  state.UserPosts,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"user":    author,
		"posts":   h.feed.Snapshot().UserPosts,
	})
}

// PostDetail shows a post of another user with its comments. The viewer's own
// post redirects to /sns/mypost/{id}.
func (h *Handler) PostDetail(w http.ResponseWriter, r *http.Request) {
	h.showPost(w, r, r.PathValue("id"), false)
}

func (h *Handler) showPost(w http.ResponseWriter, r *http.Request, rawID string, own bool) {
	me := viewer(r.Context())
	postID, err := uuid.Parse(rawID)
	if err != nil {
		notFound(w, r)
		return
	}

	if err := h.feed.LoadPost(r.Context(), postID, &me.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			notFound(w, r)
			return
		}
		state := h.feed.Snapshot()
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":  state.Error,
			"reload": r.URL.Path,
			"post":   state.CurrentPost,
		})
		return
	}
	post := h.feed.Snapshot().CurrentPost
	if !own && post.UserID == me.ID {
		http.Redirect(w, r, "/sns/mypost/"+postID.String(), http.StatusFound)
		return
	}

	if err := h.comments.LoadComments(r.Context(), postID, &me.ID); err != nil {
		state := h.comments.Snapshot()
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":    state.Error,
			"reload":   r.URL.Path,
			"post":     post,
			"comments": state.Comments,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"post":     post,
		"is_own":   own,
		"comments": h.comments.Snapshot().Comments,
	})
}

// Composer describes the limits of the new post form.
func (h *Handler) Composer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"viewer":             viewer(r.Context()),
		"max_caption_length": models.MaxCaptionLength,
		"max_upload_bytes":   h.maxUploadBytes,
		"upload_url":         "/sns/api/media",
	})
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	me := viewer(r.Context())

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	postID, err := h.feed.Create(r.Context(), me.ID, req.MediaURL, req.IsVideo, req.Caption)
	switch {
	case errors.Is(err, store.ErrCaptionTooLong):
		writeError(w, http.StatusBadRequest, "キャプションは2000文字以内で入力してください")
		return
	case errors.Is(err, store.ErrMissingMedia):
		writeError(w, http.StatusBadRequest, "画像または動画を選択してください")
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "投稿の作成に失敗しました")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       postID,
		"redirect": "/sns/top",
	})
}

// LikePost answers with the optimistic state; a failed backend write is only
// logged by the store.
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	h.togglePostLike(w, r, true)
}

func (h *Handler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	h.togglePostLike(w, r, false)
}

func (h *Handler) togglePostLike(w http.ResponseWriter, r *http.Request, like bool) {
	me := viewer(r.Context())
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if like {
		_ = h.feed.Like(r.Context(), postID, me.ID)
	} else {
		_ = h.feed.Unlike(r.Context(), postID, me.ID)
	}

	resp := map[string]interface{}{
		"post_id":   postID,
		"has_liked": like,
	}
	if p := findPost(h.feed.Snapshot(), postID); p != nil {
		resp["has_liked"] = p.HasLiked
		resp["likes_count"] = p.LikesCount
	}
	writeJSON(w, http.StatusOK, resp)
}

func findPost(state store.FeedState, id uuid.UUID) *models.Post {
	if state.CurrentPost != nil && state.CurrentPost.ID == id {
		return state.CurrentPost
	}
	for _, list := range [][]models.Post{state.Posts, state.UserPosts} {
		for i := range list {
			if list[i].ID == id {
				return &list[i]
			}
		}
	}
	return nil
}
