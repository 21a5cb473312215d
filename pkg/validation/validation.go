// Package validation checks form input before anything reaches the platform.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
)

// Field limits.
const (
	MinNameLength     = 2
	MinUsernameLength = 2
	MinPasswordLength = 8
	MinCaptionLength  = 5
	MaxCaptionLength  = 2200
	MinLocationLength = 1
	MaxLocationLength = 1000
	MaxTagsLength     = 2200
)

// problems collects one message per offending field.
type problems []string

func (p *problems) minLength(field, value string, n int) {
	if utf8.RuneCountInString(value) < n {
		*p = append(*p, fmt.Sprintf("%s must be at least %d characters", field, n))
	}
}

func (p *problems) maxLength(field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		*p = append(*p, fmt.Sprintf("%s must be at most %d characters", field, n))
	}
}

func (p *problems) email(value string) {
	if !govalidator.IsEmail(value) {
		*p = append(*p, "email is invalid")
	}
}

func (p problems) err(op string) error {
	if len(p) == 0 {
		return nil
	}
	return errs.Validationf(op, "%s", strings.Join(p, "; "))
}

func SignUp(user model.NewUser) error {
	var p problems
	p.minLength("name", user.Name, MinNameLength)
	p.minLength("username", user.Username, MinUsernameLength)
	p.email(user.Email)
	p.minLength("password", user.Password, MinPasswordLength)
	return p.err("signup")
}

func SignIn(creds model.Credentials) error {
	var p problems
	p.email(creds.Email)
	p.minLength("password", creds.Password, MinPasswordLength)
	return p.err("signin")
}

// Post checks the post form. An image is required when creating and optional when
// updating.
func Post(caption, location, tags string, file *model.Upload, create bool) error {
	var p problems
	p.minLength("caption", caption, MinCaptionLength)
	p.maxLength("caption", caption, MaxCaptionLength)
	p.minLength("location", location, MinLocationLength)
	p.maxLength("location", location, MaxLocationLength)
	p.maxLength("tags", tags, MaxTagsLength)
	if create && (file == nil || len(file.Content) == 0) {
		p = append(p, "file is required")
	}
	return p.err("post")
}

func NewPost(post model.NewPost) error {
	return Post(post.Caption, post.Location, post.Tags, post.File, true)
}

func UpdatePost(post model.UpdatePost) error {
	return Post(post.Caption, post.Location, post.Tags, post.File, false)
}
