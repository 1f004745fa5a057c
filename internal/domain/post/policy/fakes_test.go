package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vadim/postpilot/internal/domain/post/dao"
	"github.com/vadim/postpilot/internal/domain/post/entity"
	slotservice "github.com/vadim/postpilot/internal/domain/slot/service"
)

// memStore is an in-memory implementation of the post, scheduled post and connection repositories
type memStore struct {
	mu          sync.Mutex
	posts       map[string]*entity.Post
	scheduled   map[string]*entity.ScheduledPost
	connections map[string]*entity.Connection

	failSchedule map[string]error // by post ID
	failSave     map[string]error // by scheduled post ID
}

func newMemStore() *memStore {
	return &memStore{
		posts:        make(map[string]*entity.Post),
		scheduled:    make(map[string]*entity.ScheduledPost),
		connections:  make(map[string]*entity.Connection),
		failSchedule: make(map[string]error),
		failSave:     make(map[string]error),
	}
}

type memPosts struct{ *memStore }
type memScheduled struct{ *memStore }
type memConnections struct{ *memStore }

func (m memPosts) Create(_ context.Context, post *entity.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m memPosts) GetByID(_ context.Context, id string) (*entity.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m memPosts) Update(_ context.Context, post *entity.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m memPosts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

func (m memPosts) List(_ context.Context, filter dao.PostFilter, _ dao.ListOptions) ([]entity.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Post
	for _, p := range m.posts {
		if filter.ProjectID != "" && p.ProjectID != filter.ProjectID {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m memPosts) Count(ctx context.Context, filter dao.PostFilter) (int64, error) {
	posts, _ := m.List(ctx, filter, dao.ListOptions{})
	return int64(len(posts)), nil
}

func (m memPosts) ListSchedulable(_ context.Context, projectID string, limit int) ([]entity.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Post
	for _, p := range m.posts {
		if p.ProjectID == projectID && p.Status == entity.PostStatusApproved && p.ScheduledAt == nil {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memScheduled) Schedule(_ context.Context, post *entity.Post, sp *entity.ScheduledPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSchedule[post.ID]; err != nil {
		return err
	}
	for _, existing := range m.scheduled {
		if existing.PostID == sp.PostID && existing.Status.IsActive() {
			return entity.ErrAlreadyScheduled
		}
	}
	spCopy, postCopy := *sp, *post
	m.scheduled[sp.ID] = &spCopy
	m.posts[post.ID] = &postCopy
	return nil
}

func (m memScheduled) Cancel(_ context.Context, post *entity.Post, sp *entity.ScheduledPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	spCopy, postCopy := *sp, *post
	m.scheduled[sp.ID] = &spCopy
	m.posts[post.ID] = &postCopy
	return nil
}

func (m memScheduled) SaveAttempt(_ context.Context, sp *entity.ScheduledPost, post *entity.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSave[sp.ID]; err != nil {
		return err
	}
	if stored, ok := m.scheduled[sp.ID]; ok && stored.Status != entity.ScheduleStatusPending {
		return entity.ErrScheduleNotPending
	}
	spCopy := *sp
	m.scheduled[sp.ID] = &spCopy
	if post != nil {
		postCopy := *post
		m.posts[post.ID] = &postCopy
	}
	return nil
}

func (m memScheduled) GetByID(_ context.Context, id string) (*entity.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, ok := m.scheduled[id]
	if !ok {
		return nil, nil
	}
	cp := *sp
	return &cp, nil
}

func (m memScheduled) GetActiveByPostID(_ context.Context, postID string) (*entity.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sp := range m.scheduled {
		if sp.PostID == postID && sp.Status.IsActive() {
			cp := *sp
			return &cp, nil
		}
	}
	return nil, nil
}

func (m memScheduled) List(_ context.Context, _ dao.ScheduledPostFilter, _ dao.ListOptions) ([]entity.ScheduledPost, error) {
	return nil, errors.New("not implemented")
}

func (m memScheduled) Count(_ context.Context, _ dao.ScheduledPostFilter) (int64, error) {
	return 0, errors.New("not implemented")
}

func (m memScheduled) ListDue(_ context.Context, now time.Time, limit int) ([]entity.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.ScheduledPost
	for _, sp := range m.scheduled {
		if sp.IsDue(now) {
			out = append(out, *sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memScheduled) ListPendingTimes(_ context.Context, userID string, from time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Time
	for _, sp := range m.scheduled {
		if sp.UserID == userID && sp.Status == entity.ScheduleStatusPending && !sp.ScheduledTime.Before(from) {
			out = append(out, sp.ScheduledTime)
		}
	}
	return out, nil
}

func (m memScheduled) Claim(_ context.Context, id string, now time.Time, lease time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, ok := m.scheduled[id]
	if !ok || sp.Status != entity.ScheduleStatusPending {
		return false, nil
	}
	if sp.LastAttempt != nil && sp.LastAttempt.After(now.Add(-lease)) {
		return false, nil
	}
	at := now
	sp.LastAttempt = &at
	return true, nil
}

func (m memConnections) Get(_ context.Context, userID string, platform entity.Platform) (*entity.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.connections[userID+"/"+string(platform)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m memConnections) ListByUser(_ context.Context, userID string) ([]entity.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Connection
	for _, c := range m.connections {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) addPost(p entity.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[p.ID] = &p
}

func (m *memStore) addScheduled(sp entity.ScheduledPost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled[sp.ID] = &sp
}

func (m *memStore) connect(userID string, platform entity.Platform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[userID+"/"+string(platform)] = &entity.Connection{
		UserID:            userID,
		Platform:          platform,
		ExternalAccountID: "acct-" + userID,
		AccessToken:       "token-" + userID,
	}
}

func (m *memStore) post(id string) entity.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.posts[id]
}

func (m *memStore) scheduledPost(id string) entity.ScheduledPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.scheduled[id]
}

func (m *memStore) scheduledFor(postID string) []entity.ScheduledPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.ScheduledPost
	for _, sp := range m.scheduled {
		if sp.PostID == postID {
			out = append(out, *sp)
		}
	}
	return out
}

// fakePublisher records calls and returns scripted results
type fakePublisher struct {
	mu    sync.Mutex
	calls []PublishInput
	err   error
	next  int

	// onPublish runs before the call is recorded
	onPublish func()
}

func (f *fakePublisher) Publish(_ context.Context, in PublishInput) (*PublishOutput, error) {
	if f.onPublish != nil {
		f.onPublish()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	f.next++
	return &PublishOutput{ExternalPostID: fmt.Sprintf("ext-%d", f.next)}, nil
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakePlanner returns a fixed plan, or err
type fakePlanner struct {
	plan *slotservice.Plan
	err  error
}

func (f *fakePlanner) Plan(_ context.Context, _ string) (*slotservice.Plan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

// fakeEvents records emitted event types
type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (f *fakeEvents) Publish(_ context.Context, eventType string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, eventType)
	return nil
}

// fakeQueue records enqueued tasks
type fakeQueue struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeQueue) EnqueuePublish(_ context.Context, id string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return nil
}

// recordingSleep captures requested delays without waiting
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	if r.err != nil {
		return r.err
	}
	return ctx.Err()
}
