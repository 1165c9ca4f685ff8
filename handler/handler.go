package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
	"github.com/Mr-Leon909/tsutsuji-app/repository"
	"github.com/Mr-Leon909/tsutsuji-app/store"
)

type Options struct {
	UploadsDir     string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Handler serves the screens of the client as JSON.
type Handler struct {
	session  *store.SessionStore
	feed     *store.FeedStore
	comments *store.CommentStore
	users    repository.UserRepository

	uploadsDir     string
	maxUploadBytes int64
	upgrader       websocket.Upgrader
}

func New(session *store.SessionStore, feed *store.FeedStore, comments *store.CommentStore, users repository.UserRepository, opts Options) *Handler {
	if opts.UploadsDir == "" {
		opts.UploadsDir = "uploads"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{
		session:        session,
		feed:           feed,
		comments:       comments,
		users:          users,
		uploadsDir:     opts.UploadsDir,
		maxUploadBytes: opts.MaxUploadBytes,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Routes builds the router. Every path except login goes through the guard.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", redirectTo("/sns/login"))
	mux.HandleFunc("GET /sns", redirectTo("/sns/login"))
	mux.HandleFunc("GET /sns/{$}", redirectTo("/sns/login"))

	mux.HandleFunc("GET /sns/login", h.LoginPage)
	mux.HandleFunc("POST /sns/login", h.Login)
	mux.HandleFunc("POST /sns/logout", h.Logout)

	mux.HandleFunc("GET /sns/top", h.requireSession(h.Timeline))
	mux.HandleFunc("GET /sns/myposts", h.requireSession(h.MyPosts))
	mux.HandleFunc("GET /sns/post", h.requireSession(h.Composer))
	mux.HandleFunc("POST /sns/post", h.requireSession(h.CreatePost))
	// /sns/mypost/{id} and /sns/{userId}/posts share one pattern
	mux.HandleFunc("GET /sns/{first}/{second}", h.requireSession(h.dispatchTwoSegments))
	mux.HandleFunc("GET /sns/{userId}/post/{id}", h.requireSession(h.PostDetail))

	mux.HandleFunc("POST /sns/api/posts/{id}/like", h.requireSession(h.LikePost))
	mux.HandleFunc("DELETE /sns/api/posts/{id}/like", h.requireSession(h.UnlikePost))
	mux.HandleFunc("POST /sns/api/posts/{id}/comments", h.requireSession(h.AddComment))
	mux.HandleFunc("POST /sns/api/comments/{id}/like", h.requireSession(h.LikeComment))
	mux.HandleFunc("DELETE /sns/api/comments/{id}/like", h.requireSession(h.UnlikeComment))
	mux.HandleFunc("POST /sns/api/media", h.requireSession(h.UploadMedia))
	mux.HandleFunc("GET /sns/ws", h.requireSession(h.Stream))

	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploadsDir))))
	mux.HandleFunc("/", notFound)

	return applyMiddleware(mux, LoggerMiddleware)
}

func (h *Handler) dispatchTwoSegments(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("first"), r.PathValue("second")
	switch {
	case first == "mypost":
		h.showPost(w, r, second, true)
	case second == "posts":
		h.UserPosts(w, r)
	default:
		notFound(w, r)
	}
}

type contextKey string

const viewerKey contextKey = "viewer"

func withViewer(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, viewerKey, user)
}

// viewer returns the signed-in user placed in the context by the guard.
func viewer(ctx context.Context) *models.User {
	user, _ := ctx.Value(viewerKey).(*models.User)
	return user
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "ページが見つかりません")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		notFound(w, r)
		return uuid.Nil, false
	}
	return id, true
}

func wantsJSON(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
