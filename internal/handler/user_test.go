package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/marketplace-api/internal/auth"
	sqliteRepo "github.com/sakif/marketplace-api/internal/repository/sqlite"
	"github.com/sakif/marketplace-api/internal/service"
)

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

// newTestHandlers wires real services over an in-memory database.
func newTestHandlers(t *testing.T) (*UserHandler, *ItemHandler, *sqliteRepo.DB) {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	users := service.NewUserService(db, tokens, auth.NewPasswordServiceWithCost(4), nopEmitter{}, discardLogger())
	items := service.NewItemService(db, db, db, discardLogger())
	return NewUserHandler(users, discardLogger()), NewItemHandler(items, discardLogger()), db
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func registerViaHandler(t *testing.T, h *UserHandler) string {
	t.Helper()
	rr := httptest.NewRecorder()
	h.HandleRegister(rr, httptest.NewRequest(http.MethodPost, "/api/users",
		strings.NewReader(`{"user":{"username":"jake","email":"jake@example.com","password":"jakejake"}}`)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		User struct {
			Token string `json:"token"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.User.Token
}

func TestHandleRegister_ResponseShape(t *testing.T) {
	users, _, _ := newTestHandlers(t)

	rr := httptest.NewRecorder()
	users.HandleRegister(rr, httptest.NewRequest(http.MethodPost, "/api/users",
		strings.NewReader(`{"user":{"username":"jake","email":"jake@example.com","password":"jakejake"}}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	keys := make([]string, 0)
	for k := range body["user"] {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"username", "email", "bio", "image", "isVerified", "token"}, keys)
}

func TestHandleUpdate_AbsentVersusEmpty(t *testing.T) {
	users, _, db := newTestHandlers(t)
	registerViaHandler(t, users)
	u, err := db.GetUserByEmail(context.Background(), "jake@example.com")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	users.HandleUpdate(rr, asUser(httptest.NewRequest(http.MethodPut, "/api/user",
		strings.NewReader(`{"user":{"bio":"hello","image":"https://img"}}`)), u.ID))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	users.HandleUpdate(rr, asUser(httptest.NewRequest(http.MethodPut, "/api/user",
		strings.NewReader(`{"user":{"image":""}}`)), u.ID))
	require.Equal(t, http.StatusOK, rr.Code)

	got, err := db.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio, "absent bio is kept")
	assert.Equal(t, "", got.Image, "explicit empty image clears it")
}

func TestHandlers_DatabaseFailureIs500(t *testing.T) {
	users, items, db := newTestHandlers(t)
	registerViaHandler(t, users)
	u, err := db.GetUserByEmail(context.Background(), "jake@example.com")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	tests := []struct {
		name string
		call func(w http.ResponseWriter)
	}{
		{"toggle", func(w http.ResponseWriter) {
			users.HandleToggleVerify(w, asUser(httptest.NewRequest(http.MethodPost, "/api/toggle-verify", nil), u.ID))
		}},
		{"current", func(w http.ResponseWriter) {
			users.HandleCurrent(w, asUser(httptest.NewRequest(http.MethodGet, "/api/user", nil), u.ID))
		}},
		{"login", func(w http.ResponseWriter) {
			users.HandleLogin(w, httptest.NewRequest(http.MethodPost, "/api/users/login",
				strings.NewReader(`{"user":{"email":"jake@example.com","password":"jakejake"}}`)))
		}},
		{"list items", func(w http.ResponseWriter) {
			items.HandleList(w, httptest.NewRequest(http.MethodGet, "/api/items", nil))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.call(rr)

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.JSONEq(t, `{"errors":{"message":"internal server error"}}`, rr.Body.String())
		})
	}
}

func TestHandleList_EmptyMarket(t *testing.T) {
	_, items, _ := newTestHandlers(t)

	rr := httptest.NewRecorder()
	items.HandleList(rr, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"items":[],"itemsCount":0}`, rr.Body.String())
}
