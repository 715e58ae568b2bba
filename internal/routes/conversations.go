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

// startConversationHandler looks up or creates the conversation between
// the caller and the named participant. Repeated and concurrent calls for
// the same pair return the same document.
func (a *API) startConversationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	var body schema.StartConversationBody
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}

	participantID, err := primitive.ObjectIDFromHex(body.Participant)
	if err != nil || participantID == user.ID {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}
	if _, err := a.store.FindUserByID(r.Context(), participantID); err != nil {
		a.writeError(w, r, err)
		return
	}

	conv, err := a.store.GetOrCreateConversation(r.Context(), []primitive.ObjectID{user.ID, participantID})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, conv)
}

func (a *API) listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	conversations, err := a.store.ListConversations(r.Context(), user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, conversations)
}

// sendMessageHandler persists a message after confirming the caller is a
// participant of the target conversation.
func (a *API) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	var body schema.SendMessageBody
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if body.Text == "" {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}

	conversationID, err := primitive.ObjectIDFromHex(body.ConversationID)
	if err != nil {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}

	conv, err := a.store.FindConversationByID(r.Context(), conversationID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := guard.Participant(conv.Participants, user.ID); err != nil {
		a.writeError(w, r, err)
		return
	}

	message := &schema.Message{
		ID:           primitive.NewObjectID(),
		Conversation: conv.ID,
		Sender:       user.ID,
		Text:         body.Text,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.InsertMessage(r.Context(), message); err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, message)
}

// listMessagesHandler returns a conversation's messages oldest first,
// participants only.
func (a *API) listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	conversationID, err := pathID(mux.Vars(r), "conversationId")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	conv, err := a.store.FindConversationByID(r.Context(), conversationID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := guard.Participant(conv.Participants, user.ID); err != nil {
		a.writeError(w, r, err)
		return
	}

	messages, err := a.store.ListMessages(r.Context(), conv.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, messages)
}
