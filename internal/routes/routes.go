package routes

// Package routes wires every handler behind the bearer middleware and
// exposes the router used by main.

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"chirpnet/internal/apperr"
)

func (a *API) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/users/register", a.registerHandler).Methods("POST")
	router.HandleFunc("/users/login", a.loginHandler).Methods("POST")
	router.Handle("/users/me", a.authenticate(http.HandlerFunc(a.updateUserHandler))).Methods("PATCH")
	router.Handle("/users/me", a.authenticate(http.HandlerFunc(a.deleteUserHandler))).Methods("DELETE")
	router.Handle("/users/{userId}/follow", a.authenticate(http.HandlerFunc(a.followHandler))).Methods("POST")
	router.Handle("/users/{userId}/unfollow", a.authenticate(http.HandlerFunc(a.followHandler))).Methods("POST")

	router.Handle("/posts", a.authenticate(http.HandlerFunc(a.createPostHandler))).Methods("POST")
	router.HandleFunc("/posts", a.listPostsHandler).Methods("GET")
	router.Handle("/posts/feed", a.authenticate(http.HandlerFunc(a.feedHandler))).Methods("GET")
	router.HandleFunc("/posts/{postId}", a.getPostHandler).Methods("GET")
	router.Handle("/posts/{postId}", a.authenticate(http.HandlerFunc(a.updatePostHandler))).Methods("PATCH")
	router.Handle("/posts/{postId}", a.authenticate(http.HandlerFunc(a.deletePostHandler))).Methods("DELETE")
	router.Handle("/posts/{postId}/like", a.authenticate(http.HandlerFunc(a.toggleLikeHandler))).Methods("PATCH")

	router.Handle("/posts/{postId}/comments", a.authenticate(http.HandlerFunc(a.createCommentHandler))).Methods("POST")
	router.HandleFunc("/posts/{postId}/comments", a.listCommentsHandler).Methods("GET")
	router.Handle("/comments/{commentId}", a.authenticate(http.HandlerFunc(a.updateCommentHandler))).Methods("PATCH")
	router.Handle("/comments/{commentId}", a.authenticate(http.HandlerFunc(a.deleteCommentHandler))).Methods("DELETE")

	router.Handle("/conversations", a.authenticate(http.HandlerFunc(a.startConversationHandler))).Methods("POST")
	router.Handle("/conversations", a.authenticate(http.HandlerFunc(a.listConversationsHandler))).Methods("GET")
	router.Handle("/conversations/messages", a.authenticate(http.HandlerFunc(a.sendMessageHandler))).Methods("POST")
	router.Handle("/conversations/{conversationId}/messages", a.authenticate(http.HandlerFunc(a.listMessagesHandler))).Methods("GET")

	return router
}

// authenticate is the authorization gate. It verifies the bearer token and
// resolves the full user record before any handler runs; nothing is
// fetched on behalf of an unauthenticated caller.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.writeError(w, r, apperr.ErrUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			a.writeError(w, r, apperr.ErrUnauthorized)
			return
		}

		userID, err := a.tokens.Verify(parts[1])
		if err != nil {
			a.writeError(w, r, apperr.ErrInvalidToken)
			return
		}

		user, err := a.store.FindUserByID(r.Context(), userID)
		if err != nil {
			// A valid token for a deleted account is still unauthorized.
			a.writeError(w, r, apperr.ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}
