// Package model defines the records exchanged with the platform and served by the gateway.
package model

import (
	"bytes"
	"encoding/json"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Ref is a document reference. The platform returns relationship attributes either as a
// bare id or as the expanded document; both decode to the id.
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref(id)
		return nil
	}
	var doc struct {
		ID string `json:"$id"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*r = Ref(doc.ID)
	return nil
}

func (r Ref) String() string { return string(r) }

// Account is the platform's authentication identity.
type Account struct {
	ID    string `json:"$id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is a credential scoped to one account. Secret is only returned to privileged
// callers and is what the gateway presents on behalf of the user.
type Session struct {
	ID        string    `json:"$id"`
	AccountID string    `json:"userId"`
	Secret    string    `json:"secret,omitempty"`
	Expire    time.Time `json:"expire"`
}

// IsEmpty reports whether the session carries no credential.
func (s Session) IsEmpty() bool {
	return s.ID == "" || s.Secret == ""
}

// User is the profile document; exactly one per account.
type User struct {
	ID        string `json:"$id"`
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	ImageURL  string `json:"imageUrl"`
	Saves     []Save `json:"save,omitempty"`
}

// SavedRecordID returns the id of the save record joining the user to postID, if any.
func (u User) SavedRecordID(postID string) (string, bool) {
	for _, s := range u.Saves {
		if s.PostID.String() == postID {
			return s.ID, true
		}
	}
	return "", false
}

// Post is a photo post.
type Post struct {
	ID        string    `json:"$id"`
	CreatorID Ref       `json:"creator"`
	Caption   string    `json:"caption"`
	ImageURL  string    `json:"imageUrl"`
	ImageID   string    `json:"imageId"`
	Location  string    `json:"location"`
	Tags      []string  `json:"tags"`
	Likes     []Ref     `json:"likes"`
	CreatedAt time.Time `json:"$createdAt"`
	UpdatedAt time.Time `json:"$updatedAt"`
}

func (p Post) TagSet() mapset.Set[string] {
	return mapset.NewSet(p.Tags...)
}

// LikeSet returns the ids of the users who liked the post.
func (p Post) LikeSet() mapset.Set[string] {
	set := mapset.NewSet[string]()
	for _, like := range p.Likes {
		set.Add(like.String())
	}
	return set
}

// Save records that a user bookmarked a post.
type Save struct {
	ID     string `json:"$id"`
	UserID Ref    `json:"user"`
	PostID Ref    `json:"post"`
}

// DocumentList is one page of a document listing.
type DocumentList[T any] struct {
	Total     int `json:"total"`
	Documents []T `json:"documents"`
}

type PostList = DocumentList[Post]

// File is a stored upload.
type File struct {
	ID       string `json:"$id"`
	BucketID string `json:"bucketId"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// Upload is an image blob supplied by a form.
type Upload struct {
	Name        string
	ContentType string
	Content     []byte
}

// NewUser is the signup form.
type NewUser struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the signin form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewPost is the create-post form. Tags is free text, comma separated.
type NewPost struct {
	UserID   string
	Caption  string
	File     *Upload
	Location string
	Tags     string
}

// UpdatePost is the edit-post form. File is nil when the image is unchanged, in which
// case ImageID and ImageURL are kept.
type UpdatePost struct {
	PostID   string
	Caption  string
	ImageID  string
	ImageURL string
	File     *Upload
	Location string
	Tags     string
}
