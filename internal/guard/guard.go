package guard

// Package guard holds the reusable authorization checks run after the
// bearer middleware: single-owner equality for posts and comments,
// participant membership for conversations, and the per-entity mutable
// field sets applied before any patch.

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chirpnet/internal/apperr"
)

// Owner allows a mutation only when the caller is the resource owner.
// ObjectIDs are compared by value; identities cross a serialization
// boundary so there is never a shared reference to compare.
func Owner(owner, caller primitive.ObjectID) error {
	if owner != caller {
		return apperr.ErrForbidden
	}
	return nil
}

// Participant allows access only when the caller belongs to the
// conversation's participant set.
func Participant(participants []primitive.ObjectID, caller primitive.ObjectID) error {
	for _, p := range participants {
		if p == caller {
			return nil
		}
	}
	return apperr.ErrNotParticipant
}

// Mutable field sets per entity. A patch naming any field outside the set
// is rejected wholesale.
var (
	PostFields    = []string{"content"}
	CommentFields = []string{"content"}
	UserFields    = []string{"username", "email", "password"}
)

// ValidatePatch checks that every key in a patch body is in the allowed
// set and that the patch is not empty.
func ValidatePatch(patch map[string]interface{}, allowed []string) error {
	if len(patch) == 0 {
		return apperr.ErrValidation
	}
	for key := range patch {
		ok := false
		for _, field := range allowed {
			if key == field {
				ok = true
				break
			}
		}
		if !ok {
			return apperr.ErrValidation
		}
	}
	return nil
}
