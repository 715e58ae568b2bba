package schema

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID   `bson:"_id" json:"-"`
	Email     string               `bson:"email" json:"email"`
	Username  string               `bson:"username" json:"username"`
	Password  string               `bson:"password" json:"-"`
	Following []primitive.ObjectID `bson:"following,omitempty" json:"-"`
	CreatedAt time.Time            `bson:"createdAt" json:"-"`
}

// PublicUser is the only user shape that crosses the wire. The password
// hash never leaves the users collection.
type PublicUser struct {
	ID       primitive.ObjectID `json:"userId"`
	Username string             `json:"username"`
	Email    string             `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

type Post struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	User      primitive.ObjectID   `bson:"user" json:"user"`
	Content   string               `bson:"content" json:"content"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	ImagePath string               `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Post      primitive.ObjectID `bson:"post" json:"post"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id" json:"id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
}

type Message struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Conversation primitive.ObjectID `bson:"conversation" json:"conversation"`
	Sender       primitive.ObjectID `bson:"sender" json:"sender"`
	Text         string             `bson:"text" json:"text"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// CanonicalParticipants sorts a participant set by hex id and drops
// duplicates. Conversations are stored with participants in this order so
// an exact-match filter and the unique index both see one representation
// per set.
func CanonicalParticipants(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// Request bodies.

type RegisterBody struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type UpdateUserBody struct {
	CurrentPassword string `json:"currentPassword"`
	Username        string `json:"username,omitempty"`
	Email           string `json:"email,omitempty"`
	Password        string `json:"password,omitempty"`
}

type ContentBody struct {
	Content string `json:"content"`
}

type StartConversationBody struct {
	Participant string `json:"participant"`
}

type SendMessageBody struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}
