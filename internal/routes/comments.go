package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chirpnet/internal/apperr"
	"chirpnet/internal/guard"
	"chirpnet/internal/schema"
)

func (a *API) createCommentHandler(w http.ResponseWriter, r *http.Request) {
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

	var body schema.ContentBody
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if body.Content == "" {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}

	if _, err := a.store.FindPostByID(r.Context(), postID); err != nil {
		a.writeError(w, r, err)
		return
	}

	comment := &schema.Comment{
		ID:        primitive.NewObjectID(),
		User:      user.ID,
		Post:      postID,
		Content:   body.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.InsertComment(r.Context(), comment); err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, comment)
}

func (a *API) listCommentsHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(mux.Vars(r), "postId")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	comments, err := a.store.ListComments(r.Context(), postID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, comments)
}

func (a *API) updateCommentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	commentID, err := pathID(mux.Vars(r), "commentId")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	patch := map[string]interface{}{}
	if err := decodeBody(r, &patch); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := guard.ValidatePatch(patch, guard.CommentFields); err != nil {
		a.writeError(w, r, err)
		return
	}
	content, ok := patch["content"].(string)
	if !ok || content == "" {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}

	comment, err := a.store.FindCommentByID(r.Context(), commentID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := guard.Owner(comment.User, user.ID); err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.store.UpdateCommentContent(r.Context(), commentID, content); err != nil {
		a.writeError(w, r, err)
		return
	}
	comment.Content = content
	a.writeJSON(w, http.StatusOK, comment)
}

func (a *API) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	commentID, err := pathID(mux.Vars(r), "commentId")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	comment, err := a.store.FindCommentByID(r.Context(), commentID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := guard.Owner(comment.User, user.ID); err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.store.DeleteComment(r.Context(), commentID); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}
