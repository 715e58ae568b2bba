package routes

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chirpnet/internal/apperr"
	"chirpnet/internal/auth"
	"chirpnet/internal/guard"
	"chirpnet/internal/schema"
)

func (a *API) registerHandler(w http.ResponseWriter, r *http.Request) {
	var body schema.RegisterBody
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if body.Email == "" || body.Username == "" || body.Password == "" {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}

	// Both uniqueness checks run; the unique indexes backstop the race
	// between check and insert.
	if err := a.checkAvailable(r, body.Email, body.Username); err != nil {
		a.writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(body.Password, a.cfg.BcryptCost)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	user := &schema.User{
		ID:        primitive.NewObjectID(),
		Email:     body.Email,
		Username:  body.Username,
		Password:  hash,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.InsertUser(r.Context(), user); err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, user.Public())
}

func (a *API) checkAvailable(r *http.Request, email, username string) error {
	if _, err := a.store.FindUserByEmail(r.Context(), email); err == nil {
		return apperr.ErrConflict
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if _, err := a.store.FindUserByUsername(r.Context(), username); err == nil {
		return apperr.ErrConflict
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return nil
}

func (a *API) loginHandler(w http.ResponseWriter, r *http.Request) {
	var body schema.LoginBody
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if body.Login == "" || body.Password == "" {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}

	// The login field is an email when it contains '@', a username
	// otherwise. Unknown login and wrong password answer identically.
	var user *schema.User
	var err error
	if strings.Contains(body.Login, "@") {
		user, err = a.store.FindUserByEmail(r.Context(), body.Login)
	} else {
		user, err = a.store.FindUserByUsername(r.Context(), body.Login)
	}
	if err != nil {
		// Only a missing account is uniform with a wrong password; a
		// storage failure stays an internal error.
		if errors.Is(err, apperr.ErrNotFound) {
			err = apperr.ErrInvalidCredentials
		}
		a.writeError(w, r, err)
		return
	}

	if err := auth.ComparePassword(user.Password, body.Password); err != nil {
		a.writeError(w, r, apperr.ErrInvalidCredentials)
		return
	}

	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user.Public(),
	})
}

// updateUserHandler patches the caller's own profile. The current password
// must be re-supplied even though the request is authenticated, so a
// stolen token alone cannot change credentials.
func (a *API) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	patch := map[string]interface{}{}
	if err := decodeBody(r, &patch); err != nil {
		a.writeError(w, r, err)
		return
	}

	current, _ := patch["currentPassword"].(string)
	delete(patch, "currentPassword")

	if err := guard.ValidatePatch(patch, guard.UserFields); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := auth.ComparePassword(user.Password, current); err != nil {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	set := bson.M{}
	for key, value := range patch {
		text, ok := value.(string)
		if !ok || text == "" {
			a.writeError(w, r, apperr.ErrValidation)
			return
		}
		if key == "password" {
			hash, err := auth.HashPassword(text, a.cfg.BcryptCost)
			if err != nil {
				a.writeError(w, r, err)
				return
			}
			set[key] = hash
			continue
		}
		set[key] = text
	}

	if err := a.store.UpdateUser(r.Context(), user.ID, set); err != nil {
		a.writeError(w, r, err)
		return
	}

	updated, err := a.store.FindUserByID(r.Context(), user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, updated.Public())
}

// deleteUserHandler closes the caller's account after re-authentication.
func (a *API) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	var body struct {
		CurrentPassword string `json:"currentPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := auth.ComparePassword(user.Password, body.CurrentPassword); err != nil {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	if err := a.store.DeleteUser(r.Context(), user.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

func (a *API) followHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		a.writeError(w, r, apperr.ErrUnauthorized)
		return
	}

	followedID, err := pathID(mux.Vars(r), "userId")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if followedID == user.ID {
		a.writeError(w, r, apperr.ErrValidation)
		return
	}
	if _, err := a.store.FindUserByID(r.Context(), followedID); err != nil {
		a.writeError(w, r, err)
		return
	}

	follow := strings.HasSuffix(r.URL.Path, "/follow")
	if err := a.store.SetFollowing(r.Context(), user.ID, followedID, follow); err != nil {
		a.writeError(w, r, err)
		return
	}

	message := "unfollowed"
	if follow {
		message = "followed"
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": message})
}
