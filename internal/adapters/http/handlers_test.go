package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	signaladapter "github.com/dkurin/huddle/internal/adapters/signal"
	"github.com/dkurin/huddle/internal/app"
	"github.com/dkurin/huddle/internal/auth"
	"github.com/dkurin/huddle/internal/config"
	"github.com/dkurin/huddle/internal/domain"
	"github.com/dkurin/huddle/internal/storage"
)

type testEnv struct {
	router *gin.Engine
	tokens *auth.Tokens
	users  *storage.Users
	mail   *storage.MailJobs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := storage.NewUsers(db)
	meetings := storage.NewMeetings(db)
	mail := storage.NewMailJobs(db)
	tokens := auth.NewTokens("test-secret", time.Hour)
	coord := app.NewCoordinator(users, meetings, nil)
	wsCtl := signaladapter.NewController(coord, tokens, users, 15*time.Second, 32768)

	cfg := &config.Config{Mode: "test", StaticPath: t.TempDir()}
	r := SetupRouter(context.Background(), cfg, Deps{
		Coord:    coord,
		Tokens:   tokens,
		Users:    users,
		Meetings: meetings,
		Mail:     mail,
		Signal:   wsCtl,
	})
	return &testEnv{router: r, tokens: tokens, users: users, mail: mail}
}

func (e *testEnv) seedUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u := &domain.User{ID: "u1", Username: "alice", Email: email, Level: domain.LevelUser, PasswordHash: hash}
	require.NoError(t, e.users.Save(u))
	return u
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	env.seedUser(t, "alice@example.com", "hunter2")

	w := env.do("POST", "/api/login", "", gin.H{"email": "alice@example.com", "password": "hunter2"})
	req.Equal(http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Email        string `json:"email"`
			PasswordHash string `json:"passwordHash"`
		} `json:"user"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.NotEmpty(resp.Token)
	req.Equal("alice@example.com", resp.User.Email)
	req.Empty(resp.User.PasswordHash, "stored hash must not leak")

	claims, err := env.tokens.Verify(resp.Token)
	req.NoError(err)
	req.Equal("u1", claims.UserID)
}

func TestLogin_Rejections(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	env.seedUser(t, "alice@example.com", "hunter2")

	w := env.do("POST", "/api/login", "", gin.H{"email": "alice@example.com", "password": "wrong"})
	req.Equal(http.StatusUnauthorized, w.Code)

	w = env.do("POST", "/api/login", "", gin.H{"email": "ghost@example.com", "password": "hunter2"})
	req.Equal(http.StatusUnauthorized, w.Code)

	w = env.do("POST", "/api/login", "", gin.H{"email": "not-an-email"})
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestMeetings_RequireAuth(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	w := env.do("GET", "/api/meetings", "", nil)
	req.Equal(http.StatusUnauthorized, w.Code)

	w = env.do("GET", "/api/meetings", "garbage", nil)
	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestCreateMeeting_EnqueuesInvites(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	user := env.seedUser(t, "alice@example.com", "hunter2")
	token, err := env.tokens.Generate(user)
	req.NoError(err)

	w := env.do("POST", "/api/meetings", token, gin.H{
		"title":   "standup",
		"invites": []string{"bob@example.com", "carol@example.com"},
	})
	req.Equal(http.StatusCreated, w.Code)

	unsent, err := env.mail.ListUnsent(context.Background())
	req.NoError(err)
	req.Len(unsent, 2)
	req.Equal("alice@example.com", unsent[0].From)
	req.Contains(unsent[0].Subject, "standup")

	w = env.do("GET", "/api/meetings", token, nil)
	req.Equal(http.StatusOK, w.Code)
	var resp struct {
		Meetings []domain.Meeting `json:"meetings"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Len(resp.Meetings, 1)
	req.Equal(domain.UserID("u1"), resp.Meetings[0].HostID)
}

func TestOnlineUsersView(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	user := env.seedUser(t, "alice@example.com", "hunter2")
	token, err := env.tokens.Generate(user)
	req.NoError(err)

	w := env.do("GET", "/api/users/online", token, nil)
	req.Equal(http.StatusOK, w.Code)

	var resp struct {
		Users []domain.PresenceEntry `json:"users"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Empty(resp.Users)
}
