package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"driftwood/internal/db"
	"driftwood/internal/middleware"
	"driftwood/internal/models"
	"driftwood/internal/router"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testApp wires the real router, session store and middleware on top of an
// in-memory database, and keeps session cookies across requests like a
// browser would.
type testApp struct {
	t       *testing.T
	router  *gin.Engine
	cookies []*http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))

	prev := db.DB
	db.DB = gdb
	t.Cleanup(func() { db.DB = prev })

	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("driftwood_session", store))
	r.Use(middleware.LoadUser())
	router.RegisterRoutes(r)

	return &testApp{t: t, router: r}
}

func (a *testApp) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	if cs := w.Result().Cookies(); len(cs) > 0 {
		a.cookies = cs
	}
	return w
}

func (a *testApp) clearSession() {
	a.cookies = nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// register signs up a fresh user and leaves the app logged in as them.
func (a *testApp) register(username string) uint {
	a.t.Helper()

	w := a.do(http.MethodPost, "/api/register", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		User struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decode(a.t, w, &resp)
	return resp.User.ID
}

func seedPost(t *testing.T, authorID uint, title string, createdAt time.Time) *models.Post {
	t.Helper()
	post := models.Post{
		Title:    title,
		Content:  "body of " + title,
		AuthorID: authorID,
	}
	require.NoError(t, db.DB.Create(&post).Error)
	require.NoError(t, db.DB.Model(&post).UpdateColumn("created_at", createdAt).Error)
	post.CreatedAt = createdAt
	return &post
}

type postResp struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	TextSnippet string    `json:"text_snippet"`
	Score       int       `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
	Author      *struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	} `json:"author"`
	VoteStatus  *int   `json:"vote_status"`
	Content     string `json:"content"`
	ContentHTML string `json:"content_html"`
}

type feedResp struct {
	Posts   []postResp `json:"posts"`
	HasMore bool       `json:"has_more"`
}

func feedURL(limit int, cursor *time.Time) string {
	url := fmt.Sprintf("/api/posts?limit=%d", limit)
	if cursor != nil {
		url += fmt.Sprintf("&cursor=%d", cursor.UnixMilli())
	}
	return url
}
