package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/user-hobbies/internal/apperror"
	"github.com/sakif/user-hobbies/internal/auth"
	"github.com/sakif/user-hobbies/internal/model"
)

// maxBodyBytes caps request bodies. A user record is a few hundred bytes.
const maxBodyBytes = 1 << 20

// UserService is what UserHandler needs from the service layer.
// *service.UserService implements it; tests pass a fake.
type UserService interface {
	GetByID(ctx context.Context, id int64, owner string) (*model.User, error)
	Create(ctx context.Context, user *model.User) (int64, error)
	DeleteByID(ctx context.Context, id int64, owner string) error
	Update(ctx context.Context, user *model.User) error
}

// UserHandler serves the /user resource.
//
//	GET    /user?userId=N  → 200 + user JSON
//	POST   /user           → 204, Location: /user?userId=N
//	PUT    /user           → 204, ETag: "<revision>"
//	DELETE /user?userId=N  → 204
//
// Every route sits behind auth.Guard.RequireRole, so the principal is always
// in the context. It becomes the owner of every operation: a client cannot
// read or change records of another account, whatever it puts in the body.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleGet returns one user.
//
// HTTP: GET /user?userId=42
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), id, owner)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("ETag", strconv.Quote(user.Revision))
	writeJSON(w, http.StatusOK, user)
}

// HandleCreate stores a new user for the caller.
//
// HTTP: POST /user
// REQUEST BODY: {"firstName":"Thomas","lastName":"Triggiani","age":25,"hobbies":"anime, gaming, legos"}
//
// The new id is returned in the Location header, not in the body.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	user, err := decodeUser(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	user.Owner = owner

	id, err := h.users.Create(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/user?userId=%d", id))
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdate replaces an existing user of the caller.
//
// HTTP: PUT /user
// REQUEST BODY: {"userId":42,"firstName":"Tom",...,"revision":"<from GET>"}
//
// Sending the revision from a previous GET turns on lost-update detection:
// if someone else changed the user in between, the answer is 409.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	user, err := decodeUser(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user.ID == nil {
		writeError(w, h.logger, apperror.ValidationFailed("userId", "userId is required for update"))
		return
	}
	user.Owner = owner

	if err := h.users.Update(r.Context(), user); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("ETag", strconv.Quote(user.Revision))
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes a user of the caller.
//
// HTTP: DELETE /user?userId=42
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.users.DeleteByID(r.Context(), id, owner); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// owner returns the authenticated username. A missing principal means the
// route was mounted without the auth middleware, which is a server bug.
func (h *UserHandler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.logger.Error("user route reached without a principal", slog.String("path", r.URL.Path))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "an internal error occurred",
		})
		return "", false
	}
	return p.Username, true
}

// userIDParam parses the userId query parameter.
func userIDParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		return 0, apperror.ValidationFailed("userId", "userId query parameter is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("userId", "userId must be an integer")
	}
	return id, nil
}

// decodeUser reads a user JSON body. Unknown fields are ignored.
func decodeUser(w http.ResponseWriter, r *http.Request) (*model.User, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var user model.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.PayloadTooLarge(tooLarge.Limit)
		}
		return nil, apperror.ValidationFailed("body", "invalid JSON body")
	}
	return &user, nil
}
