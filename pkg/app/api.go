package app

import (
	"time"

	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/georgemblack/snapgram/pkg/query"
)

type APIUser struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	ImageURL   string   `json:"imageUrl"`
	SavedPosts []string `json:"savedPosts"`
}

type APIPost struct {
	ID        string    `json:"id"`
	CreatorID string    `json:"creatorId"`
	Caption   string    `json:"caption"`
	ImageURL  string    `json:"imageUrl"`
	Location  string    `json:"location"`
	Tags      []string  `json:"tags"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type APIPostList struct {
	Total int       `json:"total"`
	Posts []APIPost `json:"posts"`
}

// APIFeed is the infinite feed loaded so far.
type APIFeed struct {
	Pages      []APIPostList `json:"pages"`
	HasNext    bool          `json:"hasNext"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type APISave struct {
	ID     string `json:"id"`
	PostID string `json:"postId"`
}

type APIError struct {
	Error string `json:"error"`
}

type APISignUpRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type APISignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// APISessionResponse carries the gateway token for clients that do not keep cookies.
type APISessionResponse struct {
	Token string  `json:"token"`
	User  APIUser `json:"user"`
}

func toAPIUser(u model.User) APIUser {
	saved := make([]string, 0, len(u.Saves))
	for _, s := range u.Saves {
		saved = append(saved, s.PostID.String())
	}
	return APIUser{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Email:      u.Email,
		ImageURL:   u.ImageURL,
		SavedPosts: saved,
	}
}

func toAPIPost(p model.Post) APIPost {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	likes := make([]string, 0, len(p.Likes))
	for _, l := range p.Likes {
		likes = append(likes, l.String())
	}
	return APIPost{
		ID:        p.ID,
		CreatorID: p.CreatorID.String(),
		Caption:   p.Caption,
		ImageURL:  p.ImageURL,
		Location:  p.Location,
		Tags:      tags,
		Likes:     likes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toAPIPostList(l model.PostList) APIPostList {
	posts := make([]APIPost, len(l.Documents))
	for i, p := range l.Documents {
		posts[i] = toAPIPost(p)
	}
	return APIPostList{Total: l.Total, Posts: posts}
}

func toAPIFeed(p query.Pages[model.PostList]) APIFeed {
	pages := make([]APIPostList, len(p.Pages))
	for i, page := range p.Pages {
		pages[i] = toAPIPostList(page)
	}
	return APIFeed{Pages: pages, HasNext: p.HasNext, NextCursor: p.NextParam}
}
