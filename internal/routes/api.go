package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chirpnet/internal/apperr"
	"chirpnet/internal/auth"
	"chirpnet/internal/config"
	"chirpnet/internal/schema"
)

// Store is the persistence surface the handlers run against. *db.Store is
// the production implementation.
type Store interface {
	InsertUser(ctx context.Context, user *schema.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*schema.User, error)
	FindUserByEmail(ctx context.Context, email string) (*schema.User, error)
	FindUserByUsername(ctx context.Context, username string) (*schema.User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	SetFollowing(ctx context.Context, follower, followed primitive.ObjectID, follow bool) error

	InsertPost(ctx context.Context, post *schema.Post) error
	FindPostByID(ctx context.Context, id primitive.ObjectID) (*schema.Post, error)
	ListPosts(ctx context.Context, author *primitive.ObjectID, skip, limit int64) ([]schema.Post, error)
	ListFeed(ctx context.Context, following []primitive.ObjectID, skip, limit int64) ([]schema.Post, error)
	UpdatePostContent(ctx context.Context, id primitive.ObjectID, content string) error
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (*schema.Post, error)

	InsertComment(ctx context.Context, comment *schema.Comment) error
	FindCommentByID(ctx context.Context, id primitive.ObjectID) (*schema.Comment, error)
	ListComments(ctx context.Context, postID primitive.ObjectID) ([]schema.Comment, error)
	UpdateCommentContent(ctx context.Context, id primitive.ObjectID, content string) error
	DeleteComment(ctx context.Context, id primitive.ObjectID) error

	GetOrCreateConversation(ctx context.Context, participants []primitive.ObjectID) (*schema.Conversation, error)
	FindConversationByID(ctx context.Context, id primitive.ObjectID) (*schema.Conversation, error)
	ListConversations(ctx context.Context, userID primitive.ObjectID) ([]schema.Conversation, error)

	InsertMessage(ctx context.Context, message *schema.Message) error
	ListMessages(ctx context.Context, conversationID primitive.ObjectID) ([]schema.Message, error)
}

type API struct {
	store  Store
	tokens *auth.TokenService
	cfg    *config.Config
	log    zerolog.Logger
}

func New(store Store, tokens *auth.TokenService, cfg *config.Config, logger zerolog.Logger) *API {
	return &API{store: store, tokens: tokens, cfg: cfg, log: logger}
}

type ctxKey int

const userKey ctxKey = 0

func withUser(ctx context.Context, user *schema.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// userFrom returns the authenticated user attached by the bearer
// middleware. Handlers behind the middleware can rely on it being set.
func userFrom(ctx context.Context) (*schema.User, bool) {
	user, ok := ctx.Value(userKey).(*schema.User)
	return user, ok
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error().Err(err).Msg("encoding response")
	}
}

// writeError converts any failure into its taxonomy status and user-safe
// message. Internal errors are logged with full detail but never echoed.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		a.log.Error().Err(err).Str("path", r.URL.Path).Str("method", r.Method).Msg("request failed")
	}
	a.writeJSON(w, status, map[string]string{"error": apperr.Message(err)})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.ErrValidation
	}
	return nil
}

func pathID(vars map[string]string, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(vars[name])
	if err != nil {
		return primitive.NilObjectID, apperr.ErrValidation
	}
	return id, nil
}
