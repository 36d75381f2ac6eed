package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/user-hobbies/internal/apperror"
	"github.com/sakif/user-hobbies/internal/auth"
	"github.com/sakif/user-hobbies/internal/handler"
	"github.com/sakif/user-hobbies/internal/model"
)

// MockUserService records the last call and returns canned results.
type MockUserService struct {
	CapturedID    int64
	CapturedOwner string
	CapturedUser  *model.User

	ReturnUser *model.User
	ReturnID   int64
	ReturnErr  error
}

func (m *MockUserService) GetByID(_ context.Context, id int64, owner string) (*model.User, error) {
	m.CapturedID, m.CapturedOwner = id, owner
	return m.ReturnUser, m.ReturnErr
}

func (m *MockUserService) Create(_ context.Context, user *model.User) (int64, error) {
	m.CapturedUser = user
	return m.ReturnID, m.ReturnErr
}

func (m *MockUserService) DeleteByID(_ context.Context, id int64, owner string) error {
	m.CapturedID, m.CapturedOwner = id, owner
	return m.ReturnErr
}

func (m *MockUserService) Update(_ context.Context, user *model.User) error {
	m.CapturedUser = user
	if m.ReturnErr == nil {
		user.Revision = "rev-2"
	}
	return m.ReturnErr
}

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// asUser attaches the principal the auth middleware would have stored.
func asUser(req *http.Request, username string) *http.Request {
	ctx := auth.WithPrincipal(req.Context(), auth.Principal{Username: username, Role: model.RoleUser})
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestUserHandler_HandleGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock := &MockUserService{ReturnUser: &model.User{
			ID:        model.Int64Ptr(1),
			FirstName: "Benjamin",
			LastName:  "Triggiani",
			Age:       27,
			Hobbies:   "biking, running, gaming, watching tv, studying",
			Owner:     "btriggiani",
			Revision:  "rev-1",
		}}
		h := handler.NewUserHandler(mock, testLogger)

		req := asUser(httptest.NewRequest(http.MethodGet, "/user?userId=1", nil), "btriggiani")
		rr := httptest.NewRecorder()
		h.HandleGet(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(1), mock.CapturedID)
		assert.Equal(t, "btriggiani", mock.CapturedOwner)
		assert.Equal(t, `"rev-1"`, rr.Header().Get("ETag"))
		assert.JSONEq(t, `{
			"userId": 1,
			"firstName": "Benjamin",
			"lastName": "Triggiani",
			"age": 27,
			"hobbies": "biking, running, gaming, watching tv, studying",
			"owner": "btriggiani",
			"revision": "rev-1"
		}`, rr.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		mock := &MockUserService{ReturnErr: apperror.NotFound("user", "9")}
		h := handler.NewUserHandler(mock, testLogger)

		req := asUser(httptest.NewRequest(http.MethodGet, "/user?userId=9", nil), "atriggiani")
		rr := httptest.NewRecorder()
		h.HandleGet(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decodeError(t, rr).Error)
	})

	for _, query := range []string{"", "?userId=", "?userId=abc", "?userId=1.5"} {
		t.Run("bad id "+strconv.Quote(query), func(t *testing.T) {
			h := handler.NewUserHandler(&MockUserService{}, testLogger)

			req := asUser(httptest.NewRequest(http.MethodGet, "/user"+query, nil), "btriggiani")
			rr := httptest.NewRecorder()
			h.HandleGet(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "validation_error", decodeError(t, rr).Error)
		})
	}

	t.Run("no principal", func(t *testing.T) {
		h := handler.NewUserHandler(&MockUserService{}, testLogger)

		req := httptest.NewRequest(http.MethodGet, "/user?userId=1", nil)
		rr := httptest.NewRecorder()
		h.HandleGet(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestUserHandler_HandleCreate(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		mock := &MockUserService{ReturnID: 7}
		h := handler.NewUserHandler(mock, testLogger)

		body := `{"userId":null,"firstName":"Thomas","lastName":"Triggiani","age":25,"hobbies":"anime, gaming, legos","owner":"someone-else"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/user", bytes.NewBufferString(body)), "btriggiani")
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "/user?userId=7", rr.Header().Get("Location"))
		assert.Empty(t, rr.Body.String())

		require.NotNil(t, mock.CapturedUser)
		assert.Equal(t, "Thomas", mock.CapturedUser.FirstName)
		assert.Equal(t, 25, mock.CapturedUser.Age)
		assert.Equal(t, "anime, gaming, legos", mock.CapturedUser.Hobbies)
		// The owner always comes from the credentials, never from the body.
		assert.Equal(t, "btriggiani", mock.CapturedUser.Owner)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		h := handler.NewUserHandler(&MockUserService{}, testLogger)

		req := asUser(httptest.NewRequest(http.MethodPost, "/user", bytes.NewBufferString(`{"firstName":`)), "btriggiani")
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		mock := &MockUserService{}
		h := handler.NewUserHandler(mock, testLogger)

		hobbies := strings.Repeat("a, ", 1<<19)
		body := `{"firstName":"Thomas","hobbies":"` + hobbies + `"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(body)), "btriggiani")
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Equal(t, "payload_too_large", decodeError(t, rr).Error)
		assert.Nil(t, mock.CapturedUser, "service must not be called")
	})

	t.Run("persistence failure hides the cause", func(t *testing.T) {
		mock := &MockUserService{ReturnErr: apperror.Persistence("sqlstore: inserting user", errors.New("SQL logic error near users"))}
		h := handler.NewUserHandler(mock, testLogger)

		req := asUser(httptest.NewRequest(http.MethodPost, "/user", bytes.NewBufferString(`{"firstName":"x"}`)), "btriggiani")
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "SQL")
		assert.Equal(t, "internal_error", decodeError(t, rr).Error)
	})

	t.Run("constraint failure", func(t *testing.T) {
		mock := &MockUserService{ReturnErr: apperror.Constraint("sqlstore: creating hobby", errors.New("UNIQUE constraint failed"))}
		h := handler.NewUserHandler(mock, testLogger)

		req := asUser(httptest.NewRequest(http.MethodPost, "/user", bytes.NewBufferString(`{"firstName":"x"}`)), "btriggiani")
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "constraint_violation", decodeError(t, rr).Error)
	})
}

func TestUserHandler_HandleUpdate(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		mock := &MockUserService{}
		h := handler.NewUserHandler(mock, testLogger)

		body := `{"userId":3,"firstName":"Tom","lastName":"T","age":26,"hobbies":"chess","revision":"rev-1"}`
		req := asUser(httptest.NewRequest(http.MethodPut, "/user", bytes.NewBufferString(body)), "btriggiani")
		rr := httptest.NewRecorder()
		h.HandleUpdate(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, `"rev-2"`, rr.Header().Get("ETag"))
		require.NotNil(t, mock.CapturedUser)
		assert.Equal(t, int64(3), mock.CapturedUser.UserID())
		assert.Equal(t, "rev-1", mock.CapturedUser.Revision)
		assert.Equal(t, "btriggiani", mock.CapturedUser.Owner)
	})

	t.Run("missing id", func(t *testing.T) {
		mock := &MockUserService{}
		h := handler.NewUserHandler(mock, testLogger)

		req := asUser(httptest.NewRequest(http.MethodPut, "/user", bytes.NewBufferString(`{"firstName":"Tom"}`)), "btriggiani")
		rr := httptest.NewRecorder()
		h.HandleUpdate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, mock.CapturedUser, "service should not be called")
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"absent", apperror.UpdateTargetMissing("user", "3"), http.StatusNotFound, "not_found"},
		{"stale revision", apperror.StaleRevision("user", "3"), http.StatusConflict, "conflict"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewUserHandler(&MockUserService{ReturnErr: tt.err}, testLogger)

			req := asUser(httptest.NewRequest(http.MethodPut, "/user", bytes.NewBufferString(`{"userId":3}`)), "btriggiani")
			rr := httptest.NewRecorder()
			h.HandleUpdate(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rr).Error)
		})
	}
}

func TestUserHandler_HandleDelete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		mock := &MockUserService{}
		h := handler.NewUserHandler(mock, testLogger)

		req := asUser(httptest.NewRequest(http.MethodDelete, "/user?userId=5", nil), "atriggiani")
		rr := httptest.NewRecorder()
		h.HandleDelete(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, int64(5), mock.CapturedID)
		assert.Equal(t, "atriggiani", mock.CapturedOwner)
	})

	t.Run("absent", func(t *testing.T) {
		h := handler.NewUserHandler(&MockUserService{ReturnErr: apperror.NotFound("user", "5")}, testLogger)

		req := asUser(httptest.NewRequest(http.MethodDelete, "/user?userId=5", nil), "atriggiani")
		rr := httptest.NewRecorder()
		h.HandleDelete(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		h := handler.NewUserHandler(&MockUserService{}, testLogger)

		req := asUser(httptest.NewRequest(http.MethodDelete, "/user?userId=five", nil), "atriggiani")
		rr := httptest.NewRecorder()
		h.HandleDelete(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
