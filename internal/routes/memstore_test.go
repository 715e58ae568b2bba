package routes

// memStore is the in-memory Store used by handler tests. It mirrors the
// semantics the mongo-backed store provides: unique email and username,
// set semantics for likes and follow edges, and one conversation per
// canonical participant set.

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chirpnet/internal/apperr"
	"chirpnet/internal/schema"
)

type memStore struct {
	mu            sync.Mutex
	users         map[primitive.ObjectID]schema.User
	posts         map[primitive.ObjectID]schema.Post
	comments      map[primitive.ObjectID]schema.Comment
	conversations map[string]schema.Conversation
	messages      []schema.Message
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:         map[primitive.ObjectID]schema.User{},
		posts:         map[primitive.ObjectID]schema.Post{},
		comments:      map[primitive.ObjectID]schema.Comment{},
		conversations: map[string]schema.Conversation{},
	}
}

func participantKey(ids []primitive.ObjectID) string {
	canonical := schema.CanonicalParticipants(ids)
	parts := make([]string, len(canonical))
	for i, id := range canonical {
		parts[i] = id.Hex()
	}
	return strings.Join(parts, ":")
}

// Users

func (m *memStore) InsertUser(_ context.Context, user *schema.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return apperr.ErrConflict
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*schema.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &user, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*schema.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*schema.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memStore) UpdateUser(_ context.Context, id primitive.ObjectID, set bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	for key, value := range set {
		text, _ := value.(string)
		switch key {
		case "username":
			for other, existing := range m.users {
				if other != id && existing.Username == text {
					return apperr.ErrConflict
				}
			}
			user.Username = text
		case "email":
			for other, existing := range m.users {
				if other != id && existing.Email == text {
					return apperr.ErrConflict
				}
			}
			user.Email = text
		case "password":
			user.Password = text
		}
	}
	m.users[id] = user
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) SetFollowing(_ context.Context, follower, followed primitive.ObjectID, follow bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[follower]
	if !ok {
		return apperr.ErrNotFound
	}
	edges := []primitive.ObjectID{}
	for _, id := range user.Following {
		if id != followed {
			edges = append(edges, id)
		}
	}
	if follow {
		edges = append(edges, followed)
	}
	user.Following = edges
	m.users[follower] = user
	return nil
}

// Posts

func (m *memStore) InsertPost(_ context.Context, post *schema.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = *post
	return nil
}

func (m *memStore) FindPostByID(_ context.Context, id primitive.ObjectID) (*schema.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &post, nil
}

func (m *memStore) ListPosts(_ context.Context, author *primitive.ObjectID, skip, limit int64) ([]schema.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	posts := []schema.Post{}
	for _, post := range m.posts {
		if author == nil || post.User == *author {
			posts = append(posts, post)
		}
	}
	return window(posts, skip, limit), nil
}

func (m *memStore) ListFeed(_ context.Context, following []primitive.ObjectID, skip, limit int64) ([]schema.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	followed := map[primitive.ObjectID]struct{}{}
	for _, id := range following {
		followed[id] = struct{}{}
	}
	posts := []schema.Post{}
	for _, post := range m.posts {
		if _, ok := followed[post.User]; ok {
			posts = append(posts, post)
		}
	}
	return window(posts, skip, limit), nil
}

func window(posts []schema.Post, skip, limit int64) []schema.Post {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if skip >= int64(len(posts)) {
		return []schema.Post{}
	}
	posts = posts[skip:]
	if limit > 0 && limit < int64(len(posts)) {
		posts = posts[:limit]
	}
	return posts
}

func (m *memStore) UpdatePostContent(_ context.Context, id primitive.ObjectID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return apperr.ErrNotFound
	}
	post.Content = content
	m.posts[id] = post
	return nil
}

func (m *memStore) DeletePost(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.posts, id)
	for commentID, comment := range m.comments {
		if comment.Post == id {
			delete(m.comments, commentID)
		}
	}
	return nil
}

func (m *memStore) ToggleLike(_ context.Context, postID, userID primitive.ObjectID) (*schema.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[postID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	likes := []primitive.ObjectID{}
	found := false
	for _, id := range post.Likes {
		if id == userID {
			found = true
			continue
		}
		likes = append(likes, id)
	}
	if !found {
		likes = append(likes, userID)
	}
	post.Likes = likes
	m.posts[postID] = post
	return &post, nil
}

// Comments

func (m *memStore) InsertComment(_ context.Context, comment *schema.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[comment.ID] = *comment
	return nil
}

func (m *memStore) FindCommentByID(_ context.Context, id primitive.ObjectID) (*schema.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &comment, nil
}

func (m *memStore) ListComments(_ context.Context, postID primitive.ObjectID) ([]schema.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comments := []schema.Comment{}
	for _, comment := range m.comments {
		if comment.Post == postID {
			comments = append(comments, comment)
		}
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func (m *memStore) UpdateCommentContent(_ context.Context, id primitive.ObjectID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[id]
	if !ok {
		return apperr.ErrNotFound
	}
	comment.Content = content
	m.comments[id] = comment
	return nil
}

func (m *memStore) DeleteComment(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

// Conversations

func (m *memStore) GetOrCreateConversation(_ context.Context, participants []primitive.ObjectID) (*schema.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := participantKey(participants)
	if conv, ok := m.conversations[key]; ok {
		return &conv, nil
	}
	conv := schema.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: schema.CanonicalParticipants(participants),
	}
	m.conversations[key] = conv
	return &conv, nil
}

func (m *memStore) FindConversationByID(_ context.Context, id primitive.ObjectID) (*schema.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conv := range m.conversations {
		if conv.ID == id {
			c := conv
			return &c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memStore) ListConversations(_ context.Context, userID primitive.ObjectID) ([]schema.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversations := []schema.Conversation{}
	for _, conv := range m.conversations {
		for _, p := range conv.Participants {
			if p == userID {
				conversations = append(conversations, conv)
				break
			}
		}
	}
	return conversations, nil
}

// Messages

func (m *memStore) InsertMessage(_ context.Context, message *schema.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *message)
	return nil
}

func (m *memStore) ListMessages(_ context.Context, conversationID primitive.ObjectID) ([]schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := []schema.Message{}
	for _, message := range m.messages {
		if message.Conversation == conversationID {
			messages = append(messages, message)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}
