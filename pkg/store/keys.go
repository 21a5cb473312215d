package store

import "github.com/georgemblack/snapgram/pkg/query"

// Query key namespaces. The first element of every cache key is one of these.
const (
	RecentPosts = "RECENT_POSTS"
	Posts       = "POSTS"
	PostByID    = "POST_BY_ID"
	CurrentUser = "CURRENT_USER"
	SearchPosts = "SEARCH_POSTS"
)

func RecentPostsKey() query.Key { return query.Key{RecentPosts} }

func PostsKey() query.Key { return query.Key{Posts} }

func PostByIDKey(id string) query.Key { return query.Key{PostByID, id} }

// CurrentUserKey scopes the current user to one session.
func CurrentUserKey(sessionID string) query.Key { return query.Key{CurrentUser, sessionID} }

func SearchPostsKey(term string) query.Key { return query.Key{SearchPosts, term} }
