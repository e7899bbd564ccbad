package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"story-server/internal/models"
	"story-server/internal/repository/mocks"
	"story-server/internal/service"
	"story-server/shared/authutils"
	sharedModels "story-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret"

type testEnv struct {
	router  *gin.Engine
	issuer  *authutils.JWTIssuer
	stories *mocks.StoryRepository
	nodes   *mocks.NodeRepository
	choices *mocks.ChoiceRepository
	users   *mocks.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		stories: new(mocks.StoryRepository),
		nodes:   new(mocks.NodeRepository),
		choices: new(mocks.ChoiceRepository),
		users:   new(mocks.UserRepository),
	}
	issuer, err := authutils.NewJWTIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	verifier, err := authutils.NewJWTVerifier(testSecret, zap.NewNop())
	require.NoError(t, err)
	env.issuer = issuer

	deps := service.Deps{
		Tx:      new(mocks.TxManager),
		Stories: env.stories,
		Nodes:   env.nodes,
		Choices: env.choices,
		Users:   env.users,
		Logger:  zap.NewNop(),
	}
	h := NewStoryHandler(
		service.NewStoryService(deps),
		service.NewNodeService(deps),
		service.NewChoiceService(deps, false),
		service.NewAuthService(nil, env.users, issuer, zap.NewNop()),
		verifier.VerifyToken,
		zap.NewNop(),
	)
	env.router = gin.New()
	h.RegisterRoutes(env.router)
	return env
}

func (e *testEnv) tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, _, err := e.issuer.IssueToken(userID, false)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
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

func decodeError(t *testing.T, w *httptest.ResponseRecorder) sharedModels.ErrorResponse {
	t.Helper()
	var resp sharedModels.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateStory_Endpoint(t *testing.T) {
	env := newTestEnv(t)
	authorID := uuid.New()

	env.stories.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(2).(*models.Story).ID = uuid.New() }).
		Return(nil).Once()
	env.nodes.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(2).(*models.Node).ID = uuid.New() }).
		Return(nil).Once()
	env.stories.On("SetFirstNode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	w := env.do(http.MethodPost, "/api/stories", env.tokenFor(t, authorID), map[string]any{"title": "Cave"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Message string       `json:"message"`
		Story   models.Story `json:"story"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Story created successfully", resp.Message)
	assert.Equal(t, authorID, resp.Story.AuthorID)
	assert.NotNil(t, resp.Story.FirstNodeID)
	assert.True(t, resp.Story.IsDraft)
}

func TestCreateStory_AnonymousAndInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/stories", "", map[string]any{"title": "Cave"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, sharedModels.ErrCodeUnauthorized, decodeError(t, w).Code)

	w = env.do(http.MethodPost, "/api/stories", "garbage", map[string]any{"title": "Cave"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, sharedModels.ErrCodeTokenInvalid, decodeError(t, w).Code)

	w = env.do(http.MethodPost, "/api/stories", env.tokenFor(t, uuid.New()), map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, sharedModels.ErrCodeValidation, decodeError(t, w).Code)
}

func TestGetStory_Endpoint(t *testing.T) {
	env := newTestEnv(t)
	authorID := uuid.New()
	draft := &models.Story{ID: uuid.New(), AuthorID: authorID, Title: "Draft", IsDraft: true}
	env.stories.On("GetByID", mock.Anything, mock.Anything, draft.ID).Return(draft, nil)
	env.users.On("GetByID", mock.Anything, mock.Anything, authorID).
		Return(&models.User{ID: authorID, DisplayName: "alice"}, nil)

	w := env.do(http.MethodGet, "/api/stories/"+draft.ID.String(), "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/api/stories/"+draft.ID.String(), env.tokenFor(t, authorID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.StoryWithAuthor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "alice", got.Author.DisplayName)

	w = env.do(http.MethodGet, "/api/stories/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	missing := uuid.New()
	env.stories.On("GetByID", mock.Anything, mock.Anything, missing).Return(nil, sharedModels.ErrStoryNotFound)
	w = env.do(http.MethodGet, "/api/stories/"+missing.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Story not found", decodeError(t, w).Message)
}

func TestListPublishedStories_Endpoint(t *testing.T) {
	env := newTestEnv(t)
	env.stories.On("ListPublished", mock.Anything, mock.Anything, "c1", 10).
		Return([]models.StoryWithAuthor{{Story: models.Story{Title: "Open", IsPublished: true}}}, "c2", nil).Once()

	w := env.do(http.MethodGet, "/api/stories?cursor=c1&limit=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page models.StoryPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Stories, 1)
	assert.Equal(t, "c2", page.NextCursor)

	w = env.do(http.MethodGet, "/api/stories?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateChoice_CrossStoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	authorID := uuid.New()
	source := &models.Node{ID: uuid.New(), StoryID: uuid.New()}
	target := &models.Node{ID: uuid.New(), StoryID: uuid.New()}
	env.stories.On("GetByID", mock.Anything, mock.Anything, source.StoryID).
		Return(&models.Story{ID: source.StoryID, AuthorID: authorID}, nil)
	env.nodes.On("GetByID", mock.Anything, mock.Anything, source.ID).Return(source, nil)
	env.nodes.On("GetByID", mock.Anything, mock.Anything, target.ID).Return(target, nil)

	w := env.do(http.MethodPost, "/api/choices", env.tokenFor(t, authorID), map[string]any{
		"sourceNodeId": source.ID,
		"targetNodeId": target.ID,
		"text":         "Portal",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, sharedModels.ErrCodeCrossStoryReference, decodeError(t, w).Code)
}

func TestCreateChoice_NonAuthorForbiddenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	story := &models.Story{ID: uuid.New(), AuthorID: uuid.New()}
	source := &models.Node{ID: uuid.New(), StoryID: story.ID}
	env.nodes.On("GetByID", mock.Anything, mock.Anything, source.ID).Return(source, nil)
	env.stories.On("GetByID", mock.Anything, mock.Anything, story.ID).Return(story, nil)

	w := env.do(http.MethodPost, "/api/choices", env.tokenFor(t, uuid.New()), map[string]any{
		"sourceNodeId": source.ID,
		"targetNodeId": uuid.New(),
		"text":         "Sneak",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	env.nodes.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestUpdateStory_NullClearsFields(t *testing.T) {
	env := newTestEnv(t)
	authorID := uuid.New()
	desc, cover := "Old blurb", "https://img.example/cover.png"
	story := &models.Story{ID: uuid.New(), AuthorID: authorID, Title: "Cave", Description: &desc, CoverImage: &cover}
	env.stories.On("GetByID", mock.Anything, mock.Anything, story.ID).Return(story, nil)
	env.stories.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(st *models.Story) bool {
		return st.Description == nil && st.CoverImage != nil && st.Title == "Cave"
	})).Return(nil).Once()

	w := env.do(http.MethodPut, "/api/stories/"+story.ID.String(), env.tokenFor(t, authorID), `{"description": null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp storyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Story.Description)
	require.NotNil(t, resp.Story.CoverImage)
	assert.Equal(t, cover, *resp.Story.CoverImage)
	env.stories.AssertExpectations(t)
}

func TestUpdateNode_NullClearsTitle(t *testing.T) {
	env := newTestEnv(t)
	authorID := uuid.New()
	title := "Hall"
	story := &models.Story{ID: uuid.New(), AuthorID: authorID}
	node := &models.Node{ID: uuid.New(), StoryID: story.ID, Title: &title, Content: "A hall"}
	env.nodes.On("GetByID", mock.Anything, mock.Anything, node.ID).Return(node, nil)
	env.stories.On("GetByID", mock.Anything, mock.Anything, story.ID).Return(story, nil)
	env.nodes.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(n *models.Node) bool {
		return n.Title == nil && n.Content == "A hall"
	})).Return(nil).Once()

	w := env.do(http.MethodPut, "/api/nodes/"+node.ID.String(), env.tokenFor(t, authorID), `{"title": null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp nodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Node.Title)
	env.nodes.AssertExpectations(t)
}

func TestReorderChoices_Endpoint(t *testing.T) {
	env := newTestEnv(t)
	authorID := uuid.New()
	story := &models.Story{ID: uuid.New(), AuthorID: authorID}
	node := &models.Node{ID: uuid.New(), StoryID: story.ID}
	a := models.Choice{ID: uuid.New(), SourceNodeID: node.ID, Order: 0}
	b := models.Choice{ID: uuid.New(), SourceNodeID: node.ID, Order: 1}

	env.nodes.On("GetByID", mock.Anything, mock.Anything, node.ID).Return(node, nil)
	env.stories.On("GetByID", mock.Anything, mock.Anything, story.ID).Return(story, nil)
	env.nodes.On("GetByIDForUpdate", mock.Anything, mock.Anything, node.ID).Return(node, nil)
	env.choices.On("ListBySourceNode", mock.Anything, mock.Anything, node.ID).Return([]models.Choice{a, b}, nil)
	env.choices.On("UpdateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	path := fmt.Sprintf("/api/choices/node/%s/reorder", node.ID)
	token := env.tokenFor(t, authorID)

	w := env.do(http.MethodPost, path, token, map[string]any{"choiceIds": []uuid.UUID{b.ID, a.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp choicesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Choices, 2)
	assert.Equal(t, b.ID, resp.Choices[0].ID)
	assert.Equal(t, 0, resp.Choices[0].Order)

	w = env.do(http.MethodPost, path, token, `{"choiceIds": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "choiceIds must be an array", decodeError(t, w).Message)

	w = env.do(http.MethodPost, path, token, map[string]any{"choiceIds": []uuid.UUID{uuid.New()}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, sharedModels.ErrCodeInvalidChoiceSet, decodeError(t, w).Code)

	w = env.do(http.MethodPost, path, token, `{"choiceIds": []}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Choices, 2)

	w = env.do(http.MethodPost, path, env.tokenFor(t, uuid.New()), map[string]any{"choiceIds": []uuid.UUID{a.ID}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	env.users.On("GetByEmail", mock.Anything, mock.Anything, "new@example.com").Return(nil, sharedModels.ErrUserNotFound).Once()
	env.users.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(2).(*models.User).ID = uuid.New() }).
		Return(nil).Once()

	w := env.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "new@example.com", "password": "pw", "username": "newbie",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "newbie", reg.User.DisplayName)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	env.users.On("GetByEmail", mock.Anything, mock.Anything, "taken@example.com").
		Return(&models.User{ID: uuid.New()}, nil).Once()
	w = env.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "taken@example.com", "password": "pw", "username": "dup",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User already exists", decodeError(t, w).Message)

	env.users.On("GetByEmail", mock.Anything, mock.Anything, "ghost@example.com").Return(nil, sharedModels.ErrUserNotFound).Once()
	w = env.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ghost@example.com", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decodeError(t, w).Message)

	w = env.do(http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleServiceError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{sharedModels.Validationf("title is required"), http.StatusBadRequest, sharedModels.ErrCodeValidation},
		{sharedModels.ErrCrossStoryReference, http.StatusBadRequest, sharedModels.ErrCodeCrossStoryReference},
		{sharedModels.ErrStoryMismatch, http.StatusBadRequest, sharedModels.ErrCodeStoryMismatch},
		{sharedModels.ErrInvalidChoiceSet, http.StatusBadRequest, sharedModels.ErrCodeInvalidChoiceSet},
		{sharedModels.ErrUnauthorized, http.StatusUnauthorized, sharedModels.ErrCodeUnauthorized},
		{sharedModels.ErrInvalidCredentials, http.StatusUnauthorized, sharedModels.ErrCodeWrongCredentials},
		{sharedModels.ErrForbidden, http.StatusForbidden, sharedModels.ErrCodeForbidden},
		{sharedModels.ErrChoiceNotFound, http.StatusNotFound, sharedModels.ErrCodeNotFound},
		{sharedModels.ErrEntryNodeDeletion, http.StatusConflict, sharedModels.ErrCodeConflict},
		{sharedModels.ErrEmailAlreadyExists, http.StatusConflict, sharedModels.ErrCodeDuplicateEmail},
		{fmt.Errorf("get story: %w: %v", sharedModels.ErrStoreUnavailable, "conn refused"), http.StatusInternalServerError, sharedModels.ErrCodeStoreUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, sharedModels.ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			handleServiceError(c, tc.err, zap.NewNop())
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Source node not found", notFoundMessage(fmt.Errorf("source %w", sharedModels.ErrNodeNotFound)))
	assert.Equal(t, "Target node not found", notFoundMessage(fmt.Errorf("target %w", sharedModels.ErrNodeNotFound)))
	assert.Equal(t, "Choice not found", notFoundMessage(sharedModels.ErrChoiceNotFound))
	assert.Equal(t, "Not found", notFoundMessage(sharedModels.ErrNotFound))
}
