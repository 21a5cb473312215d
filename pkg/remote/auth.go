package remote

import (
	"context"

	"github.com/georgemblack/snapgram/pkg/appwrite"
	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/georgemblack/snapgram/pkg/util"
)

// CreateUserAccount registers an account and stores its user document. The avatar is
// rendered from the name's initials.
func (c *Client) CreateUserAccount(ctx context.Context, user model.NewUser) (model.User, error) {
	account, err := c.platform.CreateAccount(ctx, newID(), user.Email, user.Password, user.Name)
	if err != nil {
		return model.User{}, util.WrapErr("failed to create account", err)
	}

	return c.SaveUserToDB(ctx, model.Session{}, model.User{
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Username:  user.Username,
		ImageURL:  c.platform.AvatarInitialsURL(user.Name),
	})
}

// SaveUserToDB stores a user document.
func (c *Client) SaveUserToDB(ctx context.Context, sess model.Session, user model.User) (model.User, error) {
	if user.AccountID == "" {
		return model.User{}, errs.Validationf("saveUserToDB", "account id is required")
	}

	var created model.User
	err := c.platform.CreateDocument(ctx, sess, c.cfg.DatabaseID, c.cfg.UserCollectionID, newID(), map[string]any{
		"accountId": user.AccountID,
		"name":      user.Name,
		"email":     user.Email,
		"username":  user.Username,
		"imageUrl":  user.ImageURL,
	}, &created)
	if err != nil {
		return model.User{}, util.WrapErr("failed to save user to database", err)
	}
	return created, nil
}

func (c *Client) SignInAccount(ctx context.Context, creds model.Credentials) (model.Session, error) {
	session, err := c.platform.CreateEmailPasswordSession(ctx, creds.Email, creds.Password)
	if err != nil {
		return model.Session{}, util.WrapErr("failed to sign in", err)
	}
	return session, nil
}

// SignOutAccount destroys the session making the call.
func (c *Client) SignOutAccount(ctx context.Context, sess model.Session) error {
	if sess.IsEmpty() {
		return errs.New(errs.NotAuthenticated, "signOutAccount", "no active session")
	}
	if err := c.platform.DeleteSession(ctx, sess, "current"); err != nil {
		return util.WrapErr("failed to sign out", err)
	}
	return nil
}

func (c *Client) GetAccount(ctx context.Context, sess model.Session) (model.Account, error) {
	if sess.IsEmpty() {
		return model.Account{}, errs.New(errs.NotAuthenticated, "getAccount", "no active session")
	}
	account, err := c.platform.GetAccount(ctx, sess)
	if err != nil {
		return model.Account{}, util.WrapErr("failed to get account", err)
	}
	if account.ID == "" {
		return model.Account{}, errs.New(errs.NotAuthenticated, "getAccount", "no account for session")
	}
	return account, nil
}

// GetCurrentUser resolves the user document of the account that owns sess.
func (c *Client) GetCurrentUser(ctx context.Context, sess model.Session) (model.User, error) {
	account, err := c.GetAccount(ctx, sess)
	if err != nil {
		return model.User{}, err
	}

	var users model.DocumentList[model.User]
	err = c.platform.ListDocuments(ctx, sess, c.cfg.DatabaseID, c.cfg.UserCollectionID,
		[]string{appwrite.Equal("accountId", account.ID)}, &users)
	if err != nil {
		return model.User{}, util.WrapErr("failed to list users", err)
	}
	if len(users.Documents) == 0 {
		return model.User{}, errs.New(errs.NotFound, "getCurrentUser", "no user document for account %s", account.ID)
	}
	return users.Documents[0], nil
}
