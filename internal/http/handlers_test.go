package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mwielgus/scribe/internal/models"
	"github.com/mwielgus/scribe/internal/users"
	"github.com/mwielgus/scribe/internal/ws"
)

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	svc    *users.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Tag{},
		&models.Post{}, &models.Comment{}, &models.Image{}, &models.Session{},
	))

	svc := users.NewService(db)
	hub := ws.NewHub()
	go hub.Run()

	router := gin.New()
	SetupRoutes(router, db, hub, svc)
	return &testApp{router: router, db: db, svc: svc}
}

func (a *testApp) createUser(t *testing.T, email, nickname string, roles ...string) *models.User {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	user := models.User{Email: email, Nickname: nickname, Password: "x", Roles: models.RoleList(roles)}
	require.NoError(t, a.db.Create(&user).Error)
	return &user
}

// do performs a JSON request, optionally authenticated as user.
func (a *testApp) do(t *testing.T, method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		session, err := a.svc.CreateSession(user, time.Hour)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: session.Token})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func reason(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	r, _ := body["reason"].(string)
	return r
}

func TestCreatePostRequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	admin := app.createUser(t, "admin@example.com", "admin", models.RoleUser, models.RoleAdmin)
	user := app.createUser(t, "user@example.com", "user")

	category := models.Category{Name: "News"}
	require.NoError(t, app.db.Create(&category).Error)

	input := PostInput{Title: "Hello world", Content: "first post", Status: "published", CategoryID: category.ID}

	w := app.do(t, "POST", "/api/posts", input, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, "POST", "/api/posts", input, user)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", reason(t, w))

	w = app.do(t, "POST", "/api/posts", input, admin)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestEditPostHasNoAdminOverride(t *testing.T) {
	app := newTestApp(t)
	admin := app.createUser(t, "admin@example.com", "admin", models.RoleUser, models.RoleAdmin)
	author := app.createUser(t, "author@example.com", "author")

	category := models.Category{Name: "News"}
	require.NoError(t, app.db.Create(&category).Error)
	post := models.Post{Title: "Mine", Content: "body", Status: "published", AuthorID: author.ID, CategoryID: category.ID}
	require.NoError(t, app.db.Create(&post).Error)

	input := PostInput{Title: "Edited title", Content: "body", Status: "published", CategoryID: category.ID}

	w := app.do(t, "PUT", fmt.Sprintf("/api/posts/%d", post.ID), input, admin)
	assert.Equal(t, http.StatusForbidden, w.Code, "admin who is not the author cannot edit")

	w = app.do(t, "PUT", fmt.Sprintf("/api/posts/%d", post.ID), input, author)
	assert.Equal(t, http.StatusOK, w.Code)

	// Delete does have the admin override.
	w = app.do(t, "DELETE", fmt.Sprintf("/api/posts/%d", post.ID), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDraftVisibilityOverHTTP(t *testing.T) {
	app := newTestApp(t)
	author := app.createUser(t, "author@example.com", "author", models.RoleUser, models.RoleAdmin)
	stranger := app.createUser(t, "stranger@example.com", "stranger")

	category := models.Category{Name: "News"}
	require.NoError(t, app.db.Create(&category).Error)
	draft := models.Post{Title: "Draft", Content: "wip", Status: "draft", AuthorID: author.ID, CategoryID: category.ID}
	require.NoError(t, app.db.Create(&draft).Error)

	var page struct {
		Items      []models.Post `json:"items"`
		TotalCount int64         `json:"totalCount"`
	}

	w := app.do(t, "GET", "/api/posts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Zero(t, page.TotalCount, "anonymous listing hides drafts")

	w = app.do(t, "GET", "/api/posts", nil, stranger)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.TotalCount, "any authenticated actor sees drafts")
}

func TestCommentOwnershipByEmail(t *testing.T) {
	app := newTestApp(t)
	admin := app.createUser(t, "admin@example.com", "admin", models.RoleUser, models.RoleAdmin)
	owner := app.createUser(t, "owner@example.com", "owner")
	other := app.createUser(t, "other@example.com", "other")

	category := models.Category{Name: "News"}
	require.NoError(t, app.db.Create(&category).Error)
	post := models.Post{Title: "Post", Content: "body", Status: "published", AuthorID: admin.ID, CategoryID: category.ID}
	require.NoError(t, app.db.Create(&post).Error)
	comment := models.Comment{Email: owner.Email, Nickname: owner.Nickname, Content: "nice", PostID: post.ID}
	require.NoError(t, app.db.Create(&comment).Error)

	input := CommentInput{Content: "edited"}

	w := app.do(t, "PUT", fmt.Sprintf("/api/comments/%d", comment.ID), input, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, "PUT", fmt.Sprintf("/api/comments/%d", comment.ID), input, admin)
	assert.Equal(t, http.StatusForbidden, w.Code, "no admin override for comment edit")

	w = app.do(t, "PUT", fmt.Sprintf("/api/comments/%d", comment.ID), input, owner)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, "DELETE", fmt.Sprintf("/api/comments/%d", comment.ID), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code, "admin may delete any comment")
}

func TestAdminSafeguardReasonCodes(t *testing.T) {
	app := newTestApp(t)
	only := app.createUser(t, "only@example.com", "only", models.RoleUser, models.RoleAdmin)

	w := app.do(t, "PUT", fmt.Sprintf("/api/admin/users/%d", only.ID),
		UserUpdateInput{Roles: []string{models.RoleUser}}, only)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "last_admin", reason(t, w))

	w = app.do(t, "PUT", fmt.Sprintf("/api/admin/users/%d", only.ID),
		UserUpdateInput{Roles: []string{models.RoleUser, models.RoleAdmin}, Blocked: true}, only)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "self_block", reason(t, w))
}

func TestCategoryDeleteRefusedWhileReferenced(t *testing.T) {
	app := newTestApp(t)
	admin := app.createUser(t, "admin@example.com", "admin", models.RoleUser, models.RoleAdmin)

	category := models.Category{Name: "News"}
	require.NoError(t, app.db.Create(&category).Error)
	post := models.Post{Title: "Post", Content: "body", Status: "published", AuthorID: admin.ID, CategoryID: category.ID}
	require.NoError(t, app.db.Create(&post).Error)

	w := app.do(t, "DELETE", fmt.Sprintf("/api/categories/%d", category.ID), nil, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.NoError(t, app.db.Delete(&post).Error)
	w = app.do(t, "DELETE", fmt.Sprintf("/api/categories/%d", category.ID), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDuplicateCreatesReturnConflict(t *testing.T) {
	app := newTestApp(t)
	admin := app.createUser(t, "admin@example.com", "admin", models.RoleUser, models.RoleAdmin)

	t.Run("tag title collision", func(t *testing.T) {
		w := app.do(t, "POST", "/api/tags", TagInput{Title: "golang"}, admin)
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.do(t, "POST", "/api/tags", TagInput{Title: "golang"}, admin)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "duplicate", reason(t, w))
	})

	t.Run("category name collision", func(t *testing.T) {
		w := app.do(t, "POST", "/api/categories", CategoryInput{Name: "News"}, admin)
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.do(t, "POST", "/api/categories", CategoryInput{Name: "News"}, admin)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "duplicate", reason(t, w))
	})

	t.Run("registration email collision", func(t *testing.T) {
		input := RegisterInput{Email: "new@example.com", Nickname: "newbie", Password: "hunter22"}
		w := app.do(t, "POST", "/api/register", input, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		input.Nickname = "someone-else"
		w = app.do(t, "POST", "/api/register", input, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "duplicate", reason(t, w))
	})
}

func TestInvalidFilterIsRejected(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, "GET", "/api/posts?categoryId=-3", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_filter", reason(t, w))
}
