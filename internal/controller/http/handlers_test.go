package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/policy"
	"github.com/vadim/postpilot/internal/domain/post/service"
	slotentity "github.com/vadim/postpilot/internal/domain/slot/entity"
	slotservice "github.com/vadim/postpilot/internal/domain/slot/service"
	"github.com/vadim/postpilot/internal/storage"
)

// fakePosts implements PostService, SchedulingPolicy and ScheduledPostReader
type fakePosts struct {
	err        error
	created    service.CreateInput
	listInput  service.ListInput
	scheduleAt time.Time
	bulkInput  policy.BulkInput
	bulk       *policy.BulkOutput
}

func (f *fakePosts) post(id string) *entity.Post {
	return &entity.Post{ID: id, ProjectID: "proj-1", UserID: "user-1", Platform: entity.PlatformLinkedIn, Content: "hi", Status: entity.PostStatusApproved}
}

func (f *fakePosts) CreatePost(_ context.Context, in service.CreateInput) (*entity.Post, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return f.post("post-1"), nil
}

func (f *fakePosts) UpdatePost(_ context.Context, in service.UpdateInput) (*entity.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.post(in.ID), nil
}

func (f *fakePosts) GetPost(_ context.Context, id string) (*entity.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.post(id), nil
}

func (f *fakePosts) DeletePost(_ context.Context, _ string) error { return f.err }

func (f *fakePosts) ListPosts(_ context.Context, in service.ListInput) (*service.ListOutput, error) {
	f.listInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &service.ListOutput{Posts: []entity.Post{*f.post("post-1")}, Total: 1}, nil
}

func (f *fakePosts) Submit(ctx context.Context, id string) (*entity.Post, error)  { return f.GetPost(ctx, id) }
func (f *fakePosts) Approve(ctx context.Context, id string) (*entity.Post, error) { return f.GetPost(ctx, id) }
func (f *fakePosts) Reject(ctx context.Context, id string) (*entity.Post, error)  { return f.GetPost(ctx, id) }

func (f *fakePosts) Schedule(_ context.Context, postID string, at time.Time) (*entity.Post, *entity.ScheduledPost, error) {
	f.scheduleAt = at
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.post(postID), &entity.ScheduledPost{ID: "sp-1", PostID: postID, ScheduledTime: at}, nil
}

func (f *fakePosts) AutoSchedule(ctx context.Context, postID string) (*entity.Post, *entity.ScheduledPost, error) {
	return f.Schedule(ctx, postID, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
}

func (f *fakePosts) Unschedule(ctx context.Context, postID string) (*entity.Post, error) {
	return f.GetPost(ctx, postID)
}

func (f *fakePosts) PublishNow(ctx context.Context, postID string) (*entity.Post, *entity.ScheduledPost, error) {
	return f.Schedule(ctx, postID, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
}

func (f *fakePosts) BulkAutoSchedule(_ context.Context, in policy.BulkInput) (*policy.BulkOutput, error) {
	f.bulkInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.bulk, nil
}

func (f *fakePosts) GetScheduledPost(_ context.Context, id string) (*entity.ScheduledPost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entity.ScheduledPost{ID: id, Status: entity.ScheduleStatusPending}, nil
}

func (f *fakePosts) ListScheduledPosts(_ context.Context, _ service.ListScheduledInput) (*service.ListScheduledOutput, error) {
	return &service.ListScheduledOutput{ScheduledPosts: []entity.ScheduledPost{}}, f.err
}

func (f *fakePosts) ListConnections(_ context.Context, userID string) ([]entity.Connection, error) {
	expired := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return []entity.Connection{
		{UserID: userID, Platform: entity.PlatformLinkedIn, ExternalAccountID: "li-1", AccessToken: "secret"},
		{UserID: userID, Platform: entity.PlatformX, ExternalAccountID: "x-1", AccessToken: "secret", ExpiresAt: &expired},
	}, nil
}

func newRouter(posts *fakePosts) chi.Router {
	r := chi.NewRouter()
	NewPostHandler(posts, posts).RegisterRoutes(r)
	NewScheduledPostHandler(posts).RegisterRoutes(r)
	NewConnectionHandler(posts).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPostHandler_Create(t *testing.T) {
	posts := &fakePosts{}
	rec := do(t, newRouter(posts), http.MethodPost, "/posts",
		`{"project_id":"proj-1","user_id":"user-1","platform":"linkedin","content":"hi"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, entity.PlatformLinkedIn, posts.created.Platform)
	assert.Equal(t, "proj-1", posts.created.ProjectID)
}

func TestPostHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", entity.ErrPostNotFound, http.StatusNotFound, `{"error":"post not found"}`},
		{"wrapped conflict", errors.Join(errors.New("ctx"), entity.ErrAlreadyScheduled), http.StatusConflict, ""},
		{"cancelled during publish", entity.ErrScheduleNotPending, http.StatusConflict, `{"error":"scheduled post is no longer pending"}`},
		{"validation", entity.ErrScheduledTimeInPast, http.StatusBadRequest, ""},
		{"no preferences", slotentity.ErrNoPreferences, http.StatusUnprocessableEntity, ""},
		{"no slot", slotentity.ErrNoSlot, http.StatusUnprocessableEntity, ""},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newRouter(&fakePosts{err: tt.err}), http.MethodPost, "/posts/post-1/auto-schedule", "")
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestPostHandler_AutoScheduleCodes(t *testing.T) {
	rec := do(t, newRouter(&fakePosts{err: slotentity.ErrNoSlot}), http.MethodPost, "/posts/post-1/auto-schedule", "")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, policy.CodeNoSlot, body["code"])
}

func TestPostHandler_Schedule(t *testing.T) {
	posts := &fakePosts{}
	h := newRouter(posts)

	rec := do(t, h, http.MethodPost, "/posts/post-1/schedule", `{"scheduled_at":"2030-05-01T10:00:00+02:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, posts.scheduleAt.Equal(time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC)))

	var body ScheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "post-1", body.Post.ID)
	assert.Equal(t, "sp-1", body.ScheduledPost.ID)

	rec = do(t, h, http.MethodPost, "/posts/post-1/schedule", `{"scheduled_at":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostHandler_BulkAutoSchedule(t *testing.T) {
	posts := &fakePosts{bulk: &policy.BulkOutput{
		Requested: 3,
		Scheduled: []policy.BulkItem{{Post: &entity.Post{ID: "a"}, ScheduledPost: &entity.ScheduledPost{ID: "sp-a"}}},
		Failures:  []policy.BulkFailure{{PostID: "b", Code: policy.CodeNoSlot, Message: "no slot"}},
	}}

	rec := do(t, newRouter(posts), http.MethodPost, "/posts/projects/proj-9/posts/auto-schedule", `{"limit":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, policy.BulkInput{ProjectID: "proj-9", Limit: 3}, posts.bulkInput)

	var body struct {
		Scheduled []json.RawMessage `json:"scheduled"`
		Meta      struct {
			Requested int                  `json:"requested"`
			Scheduled int                  `json:"scheduled"`
			Failed    int                  `json:"failed"`
			Failures  []policy.BulkFailure `json:"failures"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Scheduled, 1)
	assert.Equal(t, 3, body.Meta.Requested)
	assert.Equal(t, 1, body.Meta.Scheduled)
	assert.Equal(t, 1, body.Meta.Failed)
	assert.Equal(t, "NO_SLOT", body.Meta.Failures[0].Code)
}

func TestPostHandler_BulkAutoSchedule_EmptyBody(t *testing.T) {
	posts := &fakePosts{bulk: &policy.BulkOutput{}}

	rec := do(t, newRouter(posts), http.MethodPost, "/posts/projects/proj-9/posts/auto-schedule", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, posts.bulkInput.Limit)
	assert.JSONEq(t, `{"scheduled":[],"meta":{"requested":0,"scheduled":0,"failed":0,"failures":[]}}`, rec.Body.String())
}

func TestPostHandler_List(t *testing.T) {
	posts := &fakePosts{}
	h := newRouter(posts)

	rec := do(t, h, http.MethodGet, "/posts?project_id=proj-1&status=approved&limit=500&offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "proj-1", posts.listInput.ProjectID)
	assert.Equal(t, entity.PostStatusApproved, *posts.listInput.Status)
	assert.Equal(t, 200, posts.listInput.Limit)
	assert.Equal(t, 10, posts.listInput.Offset)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/posts?status=bogus", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/posts?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/posts?offset=-1", "").Code)
}

func TestScheduledPostHandler(t *testing.T) {
	h := newRouter(&fakePosts{})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/scheduled-posts/sp-1", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/scheduled-posts?status=failed&platform=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/scheduled-posts?platform=myspace", "").Code)

	missing := newRouter(&fakePosts{err: entity.ErrScheduledPostNotFound})
	assert.Equal(t, http.StatusNotFound, do(t, missing, http.MethodGet, "/scheduled-posts/nope", "").Code)
}

func TestConnectionHandler_HidesTokens(t *testing.T) {
	rec := do(t, newRouter(&fakePosts{}), http.MethodGet, "/users/user-1/connections", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotContains(t, rec.Body.String(), "secret")

	var body ListConnectionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Connections, 2)
	assert.False(t, body.Connections[0].Expired)
	assert.True(t, body.Connections[1].Expired)
}

// fakePrefs implements PreferenceService
type fakePrefs struct {
	saved slotservice.SaveInput
	next  time.Time
	err   error
}

func (f *fakePrefs) GetPreference(_ context.Context, userID string) (*slotentity.Preference, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &slotentity.Preference{UserID: userID, Timezone: "UTC"}, nil
}

func (f *fakePrefs) SavePreference(_ context.Context, in slotservice.SaveInput) (*slotentity.Preference, error) {
	f.saved = in
	if f.err != nil {
		return nil, f.err
	}
	return &slotentity.Preference{UserID: in.UserID, Timeslots: in.Timeslots}, nil
}

func (f *fakePrefs) NextSlot(_ context.Context, _ string, _ time.Time) (time.Time, error) {
	return f.next, f.err
}

func newPrefRouter(prefs *fakePrefs) chi.Router {
	r := chi.NewRouter()
	NewPreferenceHandler(prefs).RegisterRoutes(r)
	return r
}

func TestPreferenceHandler_Save(t *testing.T) {
	prefs := &fakePrefs{}
	rec := do(t, newPrefRouter(prefs), http.MethodPut, "/users/user-1/schedule-preferences",
		`{"timezone":"Europe/Berlin","timeslots":[{"iso_day_of_week":1,"minutes_from_midnight":540,"active":true}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", prefs.saved.UserID)
	assert.Equal(t, "Europe/Berlin", *prefs.saved.Timezone)
	assert.Nil(t, prefs.saved.LeadTimeMinutes)
	assert.Equal(t, []slotentity.Timeslot{{ISODayOfWeek: 1, MinutesFromMidnight: 540, Active: true}}, prefs.saved.Timeslots)

	bad := &fakePrefs{err: slotentity.ErrInvalidTimezone}
	rec = do(t, newPrefRouter(bad), http.MethodPut, "/users/user-1/schedule-preferences", `{"timezone":"Mars/Olympus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferenceHandler_NextSlot(t *testing.T) {
	next := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rec := do(t, newPrefRouter(&fakePrefs{next: next}), http.MethodGet, "/users/user-1/schedule-preferences/next-slot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"next_slot":"2024-01-01T09:00:00Z"}`, rec.Body.String())

	rec = do(t, newPrefRouter(&fakePrefs{err: slotservice.ErrPreferenceNotFound}), http.MethodGet, "/users/user-1/schedule-preferences", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// fakeUploader implements MediaUploader
type fakeUploader struct {
	got []byte
	err error
}

func (f *fakeUploader) Upload(_ context.Context, in storage.UploadInput) (*storage.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Reader)
	f.got = b
	return &storage.UploadOutput{Key: "2024/01/01/abc.png", URL: "https://cdn/2024/01/01/abc.png", ContentType: "image/png", Size: in.Size}, nil
}

func multipartBody(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "a.png")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestMediaHandler_Upload(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		err      error
		wantCode int
	}{
		{"stored", "file", nil, http.StatusCreated},
		{"missing file", "attachment", nil, http.StatusBadRequest},
		{"unsupported", "file", storage.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{"storage failure", "file", errors.New("s3 down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUploader{err: tt.err}
			r := chi.NewRouter()
			NewMediaHandler(up).RegisterRoutes(r)

			body, contentType := multipartBody(t, tt.field, []byte("png-bytes"))
			req := httptest.NewRequest(http.MethodPost, "/media/upload", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusCreated {
				assert.Equal(t, []byte("png-bytes"), up.got)
				assert.Contains(t, rec.Body.String(), `"key":"2024/01/01/abc.png"`)
			}
		})
	}
}

func TestSwaggerHandler(t *testing.T) {
	h, err := NewSwaggerHandler("PostPilot API", []byte("openapi: 3.0.3\ninfo:\n  title: PostPilot\n  version: \"1.0\"\npaths: {}\n"))
	require.NoError(t, err)

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := do(t, r, http.MethodGet, "/docs/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"openapi":"3.0.3","info":{"title":"PostPilot","version":"1.0"},"paths":{}}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/docs", "")
	assert.Contains(t, rec.Body.String(), "PostPilot API - API Documentation")

	_, err = NewSwaggerHandler("x", []byte("openapi: [unclosed"))
	assert.Error(t, err)
}
