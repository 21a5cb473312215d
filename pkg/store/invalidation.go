package store

import (
	"log/slog"

	"github.com/georgemblack/snapgram/pkg/query"
)

// Mutation names a write that invalidates cached reads when it succeeds.
type Mutation string

const (
	CreatePostMutation      Mutation = "createPost"
	LikePostMutation        Mutation = "likePost"
	SavePostMutation        Mutation = "savePost"
	DeleteSavedPostMutation Mutation = "deleteSavedPost"
	UpdatePostMutation      Mutation = "updatePost"
	DeletePostMutation      Mutation = "deletePost"
)

// target is a key namespace to invalidate. byID narrows it to the written record.
type target struct {
	namespace string
	byID      bool
}

func (t target) key(id string) query.Key {
	if t.byID {
		return query.Key{t.namespace, id}
	}
	return query.Key{t.namespace}
}

var invalidations = map[Mutation][]target{
	CreatePostMutation:      {{namespace: RecentPosts}},
	LikePostMutation:        {{namespace: PostByID, byID: true}, {namespace: RecentPosts}, {namespace: Posts}, {namespace: CurrentUser}},
	SavePostMutation:        {{namespace: RecentPosts}, {namespace: Posts}, {namespace: CurrentUser}},
	DeleteSavedPostMutation: {{namespace: RecentPosts}, {namespace: Posts}, {namespace: CurrentUser}},
	UpdatePostMutation:      {{namespace: PostByID, byID: true}},
	DeletePostMutation:      {{namespace: RecentPosts}},
}

// Invalidates returns the keys a successful mutation on the record id invalidates.
func Invalidates(m Mutation, id string) []query.Key {
	targets := invalidations[m]
	keys := make([]query.Key, 0, len(targets))
	for _, t := range targets {
		keys = append(keys, t.key(id))
	}
	return keys
}

func (s *Store) invalidate(m Mutation, id string) {
	n := 0
	for _, key := range Invalidates(m, id) {
		n += s.cache.Invalidate(key)
	}
	slog.Debug("invalidated queries", "mutation", string(m), "id", id, "count", n)
}

// Change is a document change observed on the platform, outside this process.
type Change struct {
	Collection string
	Action     string
	DocumentID string
}

// Realtime actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ApplyChange invalidates the reads a platform document change can affect and returns
// the number of entries marked stale. Changes to unknown collections are ignored.
//
// A change does not say which fields moved, so every post change stales search results,
// including the echo of a like made through this process.
func (s *Store) ApplyChange(change Change) int {
	if change.Collection == "" {
		return 0
	}

	var keys []query.Key
	switch change.Collection {
	case s.collections.Posts:
		keys = []query.Key{RecentPostsKey(), PostsKey(), {SearchPosts}}
		if change.Action != ActionCreate && change.DocumentID != "" {
			keys = append(keys, PostByIDKey(change.DocumentID))
		}
	case s.collections.Users, s.collections.Saves:
		keys = []query.Key{{CurrentUser}}
	default:
		return 0
	}

	n := 0
	for _, key := range keys {
		n += s.cache.Invalidate(key)
	}
	return n
}
