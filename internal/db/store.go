package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chirpnet/internal/apperr"
	"chirpnet/internal/constants"
	"chirpnet/internal/schema"
)

// Store is the single persistence surface for all handlers. Every mutation
// of shared documents goes through an atomic update operator; there is no
// find-then-save anywhere in this package.
type Store struct {
	users         *mongo.Collection
	posts         *mongo.Collection
	comments      *mongo.Collection
	conversations *mongo.Collection
	messages      *mongo.Collection
}

func NewStore(database *mongo.Database) *Store {
	return &Store{
		users:         database.Collection(constants.USERS_COLLECTION),
		posts:         database.Collection(constants.POSTS_COLLECTION),
		comments:      database.Collection(constants.COMMENTS_COLLECTION),
		conversations: database.Collection(constants.CONVERSATIONS_COLLECTION),
		messages:      database.Collection(constants.MESSAGES_COLLECTION),
	}
}

func wrapStorage(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, apperr.ErrInternal, err)
}

// Users

func (s *Store) InsertUser(ctx context.Context, user *schema.User) error {
	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.ErrConflict
	}
	if err != nil {
		return wrapStorage("insert user", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*schema.User, error) {
	var user schema.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrapStorage("find user", err)
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*schema.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*schema.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*schema.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if mongo.IsDuplicateKeyError(err) {
		return apperr.ErrConflict
	}
	if err != nil {
		return wrapStorage("update user", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapStorage("delete user", err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SetFollowing adds or removes a follow edge. $addToSet keeps the edge set
// duplicate-free under concurrent follows.
func (s *Store) SetFollowing(ctx context.Context, follower, followed primitive.ObjectID, follow bool) error {
	update := bson.M{"$pull": bson.M{"following": followed}}
	if follow {
		update = bson.M{"$addToSet": bson.M{"following": followed}}
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": follower}, update)
	if err != nil {
		return wrapStorage("update following", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Posts

func (s *Store) InsertPost(ctx context.Context, post *schema.Post) error {
	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		return wrapStorage("insert post", err)
	}
	return nil
}

func (s *Store) FindPostByID(ctx context.Context, id primitive.ObjectID) (*schema.Post, error) {
	var post schema.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrapStorage("find post", err)
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context, author *primitive.ObjectID, skip, limit int64) ([]schema.Post, error) {
	filter := bson.M{}
	if author != nil {
		filter["user"] = *author
	}
	opts := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.decodePosts(ctx, filter, opts)
}

// ListFeed returns posts authored by the followed users, newest first.
// A nil following slice would encode as $in: null, which the server
// rejects, so the empty feed short-circuits.
func (s *Store) ListFeed(ctx context.Context, following []primitive.ObjectID, skip, limit int64) ([]schema.Post, error) {
	if len(following) == 0 {
		return []schema.Post{}, nil
	}
	filter := bson.M{"user": bson.M{"$in": following}}
	opts := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.decodePosts(ctx, filter, opts)
}

func (s *Store) decodePosts(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]schema.Post, error) {
	cursor, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapStorage("list posts", err)
	}
	posts := []schema.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, wrapStorage("decode posts", err)
	}
	return posts, nil
}

func (s *Store) UpdatePostContent(ctx context.Context, id primitive.ObjectID, content string) error {
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"content": content}})
	if err != nil {
		return wrapStorage("update post", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapStorage("delete post", err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	// Comments on a deleted post are orphaned otherwise.
	if _, err := s.comments.DeleteMany(ctx, bson.M{"post": id}); err != nil {
		return wrapStorage("delete post comments", err)
	}
	return nil
}

// ToggleLike removes the user from the like set if present, otherwise adds
// them. Both arms are single conditional updates: the $pull only matches
// when the id is in the set, and the $addToSet is guarded by $ne, so
// concurrent toggles from different users cannot lose updates or produce
// duplicates.
func (s *Store) ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (*schema.Post, error) {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": postID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}})
	if err != nil {
		return nil, wrapStorage("unlike post", err)
	}

	if res.MatchedCount == 0 {
		_, err = s.posts.UpdateOne(ctx,
			bson.M{"_id": postID, "likes": bson.M{"$ne": userID}},
			bson.M{"$addToSet": bson.M{"likes": userID}})
		if err != nil {
			return nil, wrapStorage("like post", err)
		}
	}

	return s.FindPostByID(ctx, postID)
}

// Comments

func (s *Store) InsertComment(ctx context.Context, comment *schema.Comment) error {
	if _, err := s.comments.InsertOne(ctx, comment); err != nil {
		return wrapStorage("insert comment", err)
	}
	return nil
}

func (s *Store) FindCommentByID(ctx context.Context, id primitive.ObjectID) (*schema.Comment, error) {
	var comment schema.Comment
	err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrapStorage("find comment", err)
	}
	return &comment, nil
}

func (s *Store) ListComments(ctx context.Context, postID primitive.ObjectID) ([]schema.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.comments.Find(ctx, bson.M{"post": postID}, opts)
	if err != nil {
		return nil, wrapStorage("list comments", err)
	}
	comments := []schema.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, wrapStorage("decode comments", err)
	}
	return comments, nil
}

func (s *Store) UpdateCommentContent(ctx context.Context, id primitive.ObjectID, content string) error {
	res, err := s.comments.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"content": content}})
	if err != nil {
		return wrapStorage("update comment", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.comments.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapStorage("delete comment", err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Conversations

// GetOrCreateConversation upserts on the canonical participant array. Two
// concurrent calls for the same set race on the unique participants index;
// the loser gets a duplicate-key error and retries the lookup, so exactly
// one document ever exists per set.
func (s *Store) GetOrCreateConversation(ctx context.Context, participants []primitive.ObjectID) (*schema.Conversation, error) {
	canonical := schema.CanonicalParticipants(participants)
	filter := bson.M{"participants": canonical}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":          primitive.NewObjectID(),
		"participants": canonical,
		"createdAt":    time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv schema.Conversation
	err := s.conversations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if mongo.IsDuplicateKeyError(err) {
		err = s.conversations.FindOne(ctx, filter).Decode(&conv)
	}
	if err != nil {
		return nil, wrapStorage("get or create conversation", err)
	}
	return &conv, nil
}

func (s *Store) FindConversationByID(ctx context.Context, id primitive.ObjectID) (*schema.Conversation, error) {
	var conv schema.Conversation
	err := s.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrapStorage("find conversation", err)
	}
	return &conv, nil
}

func (s *Store) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]schema.Conversation, error) {
	cursor, err := s.conversations.Find(ctx, bson.M{"participants": bson.M{"$in": []primitive.ObjectID{userID}}})
	if err != nil {
		return nil, wrapStorage("list conversations", err)
	}
	conversations := []schema.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, wrapStorage("decode conversations", err)
	}
	return conversations, nil
}

// Messages

func (s *Store) InsertMessage(ctx context.Context, message *schema.Message) error {
	if _, err := s.messages.InsertOne(ctx, message); err != nil {
		return wrapStorage("insert message", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in creation order,
// oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID primitive.ObjectID) ([]schema.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"conversation": conversationID}, opts)
	if err != nil {
		return nil, wrapStorage("list messages", err)
	}
	messages := []schema.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, wrapStorage("decode messages", err)
	}
	return messages, nil
}
