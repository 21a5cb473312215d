// Package store binds the remote client to the query cache. Reads go through the cache
// under the keys in keys.go. Writes go straight to the remote client and, on success,
// invalidate the reads listed for them in invalidation.go.
//
// Shared reads (feeds, posts, search) are fetched with the gateway's own credentials so
// that one caller's session never decides what another caller is served. The current
// user is the only read scoped to a session.
package store

import (
	"context"

	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/georgemblack/snapgram/pkg/query"
)

// Remote is the resource client. remote.Client implements it.
type Remote interface {
	CreateUserAccount(ctx context.Context, user model.NewUser) (model.User, error)
	SignInAccount(ctx context.Context, creds model.Credentials) (model.Session, error)
	SignOutAccount(ctx context.Context, sess model.Session) error
	GetCurrentUser(ctx context.Context, sess model.Session) (model.User, error)

	CreatePost(ctx context.Context, sess model.Session, post model.NewPost) (model.Post, error)
	UpdatePost(ctx context.Context, sess model.Session, post model.UpdatePost) (model.Post, error)
	DeletePost(ctx context.Context, sess model.Session, postID, imageID string) error
	GetPostByID(ctx context.Context, sess model.Session, postID string) (model.Post, error)
	GetRecentPosts(ctx context.Context, sess model.Session) (model.PostList, error)
	GetInfinitePosts(ctx context.Context, sess model.Session, cursor string) (model.PostList, error)
	SearchPosts(ctx context.Context, sess model.Session, term string) (model.PostList, error)

	LikePost(ctx context.Context, sess model.Session, postID string, likes []string) (model.Post, error)
	SavePost(ctx context.Context, sess model.Session, postID, userID string) (model.Save, error)
	DeleteSavedPost(ctx context.Context, sess model.Session, savedRecordID string) error
}

// Collections maps platform collection ids to the records they hold, for ApplyChange.
type Collections struct {
	Users string
	Posts string
	Saves string
}

type Store struct {
	remote      Remote
	cache       *query.Cache
	collections Collections
}

func New(remote Remote, cache *query.Cache, collections Collections) *Store {
	return &Store{remote: remote, cache: cache, collections: collections}
}

// Cache exposes the underlying query cache.
func (s *Store) Cache() *query.Cache {
	return s.cache
}

// gateway is the identity used for shared reads.
var gateway = model.Session{}

// NextPostsCursor resolves the cursor of the feed page after page: the id of its last
// post. An empty page has no successor.
func NextPostsCursor(page model.PostList) (string, bool) {
	if len(page.Documents) == 0 {
		return "", false
	}
	return page.Documents[len(page.Documents)-1].ID, true
}

func (s *Store) GetRecentPosts(ctx context.Context) (model.PostList, error) {
	defer s.cache.Observe(RecentPostsKey())()
	return query.Fetch(ctx, s.cache, RecentPostsKey(), func(ctx context.Context) (model.PostList, error) {
		return s.remote.GetRecentPosts(ctx, gateway)
	})
}

func (s *Store) feedPage(ctx context.Context, cursor string) (model.PostList, error) {
	return s.remote.GetInfinitePosts(ctx, gateway, cursor)
}

// GetPosts returns the pages of the feed loaded so far, loading the first on a miss.
func (s *Store) GetPosts(ctx context.Context) (query.Pages[model.PostList], error) {
	defer s.cache.Observe(PostsKey())()
	return query.FetchInfinite(ctx, s.cache, PostsKey(), s.feedPage, NextPostsCursor)
}

// FetchNextPosts loads one more page of the feed.
func (s *Store) FetchNextPosts(ctx context.Context) (query.Pages[model.PostList], error) {
	defer s.cache.Observe(PostsKey())()
	return query.FetchNextPage(ctx, s.cache, PostsKey(), s.feedPage, NextPostsCursor)
}

// GetPostByID is disabled for an empty id.
func (s *Store) GetPostByID(ctx context.Context, id string) (model.Post, error) {
	if id == "" {
		return model.Post{}, errs.Validationf("getPostById", "post id is required")
	}
	defer s.cache.Observe(PostByIDKey(id))()
	return query.Fetch(ctx, s.cache, PostByIDKey(id), func(ctx context.Context) (model.Post, error) {
		return s.remote.GetPostByID(ctx, gateway, id)
	})
}

func (s *Store) GetCurrentUser(ctx context.Context, sess model.Session) (model.User, error) {
	if sess.IsEmpty() {
		return model.User{}, errs.New(errs.NotAuthenticated, "getCurrentUser", "no session")
	}
	defer s.cache.Observe(CurrentUserKey(sess.ID))()
	return query.Fetch(ctx, s.cache, CurrentUserKey(sess.ID), func(ctx context.Context) (model.User, error) {
		return s.remote.GetCurrentUser(ctx, sess)
	})
}

// SearchPosts is disabled for an empty term: it returns no posts and caches nothing.
func (s *Store) SearchPosts(ctx context.Context, term string) (model.PostList, error) {
	if term == "" {
		return model.PostList{Documents: []model.Post{}}, nil
	}
	defer s.cache.Observe(SearchPostsKey(term))()
	return query.Fetch(ctx, s.cache, SearchPostsKey(term), func(ctx context.Context) (model.PostList, error) {
		return s.remote.SearchPosts(ctx, gateway, term)
	})
}

func (s *Store) CreateUserAccount(ctx context.Context, user model.NewUser) (model.User, error) {
	return s.remote.CreateUserAccount(ctx, user)
}

func (s *Store) SignIn(ctx context.Context, creds model.Credentials) (model.Session, error) {
	return s.remote.SignInAccount(ctx, creds)
}

// SignOut ends the session and forgets its current user.
func (s *Store) SignOut(ctx context.Context, sess model.Session) error {
	if err := s.remote.SignOutAccount(ctx, sess); err != nil {
		return err
	}
	s.cache.Remove(CurrentUserKey(sess.ID))
	return nil
}

func (s *Store) CreatePost(ctx context.Context, sess model.Session, post model.NewPost) (model.Post, error) {
	created, err := s.remote.CreatePost(ctx, sess, post)
	if err != nil {
		return model.Post{}, err
	}
	s.invalidate(CreatePostMutation, created.ID)
	return created, nil
}

func (s *Store) LikePost(ctx context.Context, sess model.Session, postID string, likes []string) (model.Post, error) {
	updated, err := s.remote.LikePost(ctx, sess, postID, likes)
	if err != nil {
		return model.Post{}, err
	}
	s.invalidate(LikePostMutation, postID)
	return updated, nil
}

func (s *Store) SavePost(ctx context.Context, sess model.Session, postID, userID string) (model.Save, error) {
	save, err := s.remote.SavePost(ctx, sess, postID, userID)
	if err != nil {
		return model.Save{}, err
	}
	s.invalidate(SavePostMutation, postID)
	return save, nil
}

func (s *Store) DeleteSavedPost(ctx context.Context, sess model.Session, savedRecordID string) error {
	if err := s.remote.DeleteSavedPost(ctx, sess, savedRecordID); err != nil {
		return err
	}
	s.invalidate(DeleteSavedPostMutation, savedRecordID)
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, sess model.Session, post model.UpdatePost) (model.Post, error) {
	updated, err := s.remote.UpdatePost(ctx, sess, post)
	if err != nil {
		return model.Post{}, err
	}
	id := updated.ID
	if id == "" {
		id = post.PostID
	}
	s.invalidate(UpdatePostMutation, id)
	return updated, nil
}

func (s *Store) DeletePost(ctx context.Context, sess model.Session, postID, imageID string) error {
	if err := s.remote.DeletePost(ctx, sess, postID, imageID); err != nil {
		return err
	}
	s.invalidate(DeletePostMutation, postID)
	return nil
}
