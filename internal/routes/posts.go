package routes

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chirpnet/internal/apperr"
	"chirpnet/internal/guard"
	"chirpnet/internal/schema"
)

// createPostHandler accepts either a JSON body or a multipart form with an
// optional "image" file. Only the stored path of the upload is persisted.
func (a *API) createPostHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	var content, imagePath string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			a.writeError(w, r, apperr.ErrValidation)
			return
		}
		content = r.FormValue("content")

		path, err := a.saveUpload(r, "image")
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		imagePath = path
	} else {
		var body schema.ContentBody
		if err := decodeBody(r, &body); err != nil {
			a.writeError(w, r, err)
			return
		}
		content = body.Content
	}

	if content == "" {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}

	post := &schema.Post{
		ID:        primitive.NewObjectID(),
		User:      user.ID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Likes:     []primitive.ObjectID{},
		ImagePath: imagePath,
	}
	if err := a.store.InsertPost(r.Context(), post); err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, post)
}

func (a *API) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	skip := parseInt64(query.Get("skip"), 0)
	limit := parseInt64(query.Get("limit"), 10)

	var author *primitive.ObjectID
	if hex := query.Get("userId"); hex != "" {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			a.writeError(w, r, apperr.ErrValidation)
			return
		}
		author = &id
	}

	posts, err := a.store.ListPosts(r.Context(), author, skip, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, posts)
}

func (a *API) getPostHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(mux.Vars(r), "postId")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	post, err := a.store.FindPostByID(r.Context(), postID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, post)
}

// feedHandler lists posts by the users the caller follows, newest first.
func (a *API) feedHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	query := r.URL.Query()
	skip := parseInt64(query.Get("skip"), 0)
	limit := parseInt64(query.Get("limit"), 10)

	posts, err := a.store.ListFeed(r.Context(), user.Following, skip, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, posts)
}

func (a *API) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	postID, err := pathID(mux.Vars(r), "postId")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	patch := map[string]interface{}{}
	if err := decodeBody(r, &patch); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := guard.ValidatePatch(patch, guard.PostFields); err != nil {
		a.writeError(w, r, err)
		return
	}
	content, ok := patch["content"].(string)
	if !ok || content == "" {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}

	post, err := a.store.FindPostByID(r.Context(), postID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := guard.Owner(post.User, user.ID); err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.store.UpdatePostContent(r.Context(), postID, content); err != nil {
		a.writeError(w, r, err)
		return
	}
	post.Content = content
	a.writeJSON(w, http.StatusOK, post)
}

func (a *API) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	postID, err := pathID(mux.Vars(r), "postId")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	post, err := a.store.FindPostByID(r.Context(), postID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := guard.Owner(post.User, user.ID); err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.store.DeletePost(r.Context(), postID); err != nil {
		a.writeError(w, r, err)
		return
	}
	// The media file has no other referent once the document is gone.
	if post.ImagePath != "" {
		if err := os.Remove(post.ImagePath); err != nil && !os.IsNotExist(err) {
			a.log.Error().Err(err).Str("path", post.ImagePath).Msg("removing post media")
		}
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

// toggleLikeHandler flips the caller's membership in the post's like set.
// Any authenticated user may toggle; the store makes the flip atomic.
func (a *API) toggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	postID, err := pathID(mux.Vars(r), "postId")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	post, err := a.store.ToggleLike(r.Context(), postID, user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, post)
}

// parseInt64 falls back on anything non-positive: a limit of 0 would
// otherwise reach the driver as "no limit".
func parseInt64(value string, fallback int64) int64 {
	if value == "" {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
