package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/georgemblack/snapgram/pkg/cache"
	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/georgemblack/snapgram/pkg/query"
	"github.com/georgemblack/snapgram/pkg/realtime"
	"github.com/georgemblack/snapgram/pkg/store"
)

type fakeCache struct {
	mu         sync.Mutex
	sessions   map[string]cache.SessionRecord
	published  []cache.Invalidation
	publishErr error
	incoming   []cache.Invalidation
}

func newFakeCache() *fakeCache {
	return &fakeCache{sessions: map[string]cache.SessionRecord{}}
}

func (f *fakeCache) SaveSession(ctx context.Context, token string, record cache.SessionRecord, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[token] = record
	return nil
}

func (f *fakeCache) ReadSession(ctx context.Context, token string) (cache.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[token], nil
}

func (f *fakeCache) DeleteSession(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

func (f *fakeCache) PublishInvalidation(ctx context.Context, inv cache.Invalidation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, inv)
	return nil
}

func (f *fakeCache) SubscribeInvalidations(ctx context.Context, fn func(cache.Invalidation)) error {
	f.mu.Lock()
	incoming := f.incoming
	f.mu.Unlock()
	for _, inv := range incoming {
		fn(inv)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeCache) Close() {}

// fakeRemote is an in-memory platform with one user per account.
type fakeRemote struct {
	mu      sync.Mutex
	users   map[string]model.User // account id -> user
	orphans map[string]bool       // accounts without a user document
	posts   map[string]model.Post
	calls   map[string]int
	down    bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		users:   map[string]model.User{},
		orphans: map[string]bool{},
		posts:   map[string]model.Post{},
		calls:   map[string]int{},
	}
}

func (f *fakeRemote) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if f.down {
		return errs.New(errs.RemoteUnavailable, name, "platform down")
	}
	return nil
}

func (f *fakeRemote) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRemote) CreateUserAccount(ctx context.Context, user model.NewUser) (model.User, error) {
	if err := f.call("createUserAccount"); err != nil {
		return model.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return model.User{}, errs.New(errs.Conflict, "createUserAccount", "account exists")
		}
	}
	accountID := "acct-" + user.Username
	u := model.User{ID: "user-" + user.Username, AccountID: accountID, Name: user.Name, Email: user.Email, Username: user.Username}
	f.users[accountID] = u
	return u, nil
}

func (f *fakeRemote) SignInAccount(ctx context.Context, creds model.Credentials) (model.Session, error) {
	if err := f.call("signInAccount"); err != nil {
		return model.Session{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == creds.Email {
			return model.Session{ID: "sess-" + u.Username, AccountID: u.AccountID, Secret: "secret-" + u.Username}, nil
		}
	}
	return model.Session{}, errs.New(errs.NotAuthenticated, "signInAccount", "invalid credentials")
}

func (f *fakeRemote) SignOutAccount(ctx context.Context, sess model.Session) error {
	return f.call("signOutAccount")
}

func (f *fakeRemote) GetCurrentUser(ctx context.Context, sess model.Session) (model.User, error) {
	if err := f.call("getCurrentUser"); err != nil {
		return model.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[sess.AccountID]
	if !ok || f.orphans[sess.AccountID] {
		return model.User{}, errs.New(errs.NotFound, "getCurrentUser", "no user")
	}
	return u, nil
}

func (f *fakeRemote) CreatePost(ctx context.Context, sess model.Session, post model.NewPost) (model.Post, error) {
	if err := f.call("createPost"); err != nil {
		return model.Post{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := model.Post{
		ID:        "post-new",
		CreatorID: model.Ref(post.UserID),
		Caption:   post.Caption,
		Location:  post.Location,
		ImageID:   "file-new",
		Tags:      []string{},
	}
	f.posts[p.ID] = p
	return p, nil
}

func (f *fakeRemote) UpdatePost(ctx context.Context, sess model.Session, post model.UpdatePost) (model.Post, error) {
	if err := f.call("updatePost"); err != nil {
		return model.Post{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.posts[post.PostID]
	p.Caption, p.Location = post.Caption, post.Location
	f.posts[p.ID] = p
	return p, nil
}

func (f *fakeRemote) DeletePost(ctx context.Context, sess model.Session, postID, imageID string) error {
	if err := f.call("deletePost"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, postID)
	return nil
}

func (f *fakeRemote) GetPostByID(ctx context.Context, sess model.Session, postID string) (model.Post, error) {
	if err := f.call("getPostById"); err != nil {
		return model.Post{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return model.Post{}, errs.New(errs.NotFound, "getPostById", "no post %s", postID)
	}
	return p, nil
}

func (f *fakeRemote) list() model.PostList {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := model.PostList{Documents: []model.Post{}}
	for _, p := range f.posts {
		list.Documents = append(list.Documents, p)
	}
	list.Total = len(list.Documents)
	return list
}

func (f *fakeRemote) GetRecentPosts(ctx context.Context, sess model.Session) (model.PostList, error) {
	if err := f.call("getRecentPosts"); err != nil {
		return model.PostList{}, err
	}
	return f.list(), nil
}

func (f *fakeRemote) GetInfinitePosts(ctx context.Context, sess model.Session, cursor string) (model.PostList, error) {
	if err := f.call("getInfinitePosts"); err != nil {
		return model.PostList{}, err
	}
	if cursor != "" {
		return model.PostList{Documents: []model.Post{}}, nil
	}
	return f.list(), nil
}

func (f *fakeRemote) SearchPosts(ctx context.Context, sess model.Session, term string) (model.PostList, error) {
	if err := f.call("searchPosts"); err != nil {
		return model.PostList{}, err
	}
	return f.list(), nil
}

func (f *fakeRemote) LikePost(ctx context.Context, sess model.Session, postID string, likes []string) (model.Post, error) {
	if err := f.call("likePost"); err != nil {
		return model.Post{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.posts[postID]
	p.Likes = nil
	for _, id := range likes {
		p.Likes = append(p.Likes, model.Ref(id))
	}
	f.posts[postID] = p
	return p, nil
}

func (f *fakeRemote) SavePost(ctx context.Context, sess model.Session, postID, userID string) (model.Save, error) {
	if err := f.call("savePost"); err != nil {
		return model.Save{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	save := model.Save{ID: "save-" + postID, UserID: model.Ref(userID), PostID: model.Ref(postID)}
	u := f.users[sess.AccountID]
	u.Saves = append(u.Saves, save)
	f.users[sess.AccountID] = u
	return save, nil
}

func (f *fakeRemote) DeleteSavedPost(ctx context.Context, sess model.Session, savedRecordID string) error {
	if err := f.call("deleteSavedPost"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[sess.AccountID]
	saves := u.Saves[:0]
	for _, s := range u.Saves {
		if s.ID != savedRecordID {
			saves = append(saves, s)
		}
	}
	u.Saves = saves
	f.users[sess.AccountID] = u
	return nil
}

// fakeSource replays events, then fails every read.
type fakeSource struct {
	events []realtime.Event
}

var errStreamClosed = errors.New("stream closed")

func (f *fakeSource) Next() (realtime.Event, error) {
	if len(f.events) == 0 {
		return realtime.Event{}, errStreamClosed
	}
	event := f.events[0]
	f.events = f.events[1:]
	return event, nil
}

type testEnv struct {
	handler *handler
	cache   *fakeCache
	remote  *fakeRemote
	store   *store.Store
}

func newTestEnv() testEnv {
	c := newFakeCache()
	r := newFakeRemote()
	s := store.New(r, query.New(), store.Collections{Users: "users", Posts: "posts", Saves: "saves"})
	return testEnv{
		handler: &handler{store: s, cache: c, sessionTTL: time.Hour},
		cache:   c,
		remote:  r,
		store:   s,
	}
}
