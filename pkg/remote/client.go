// Package remote is the resource client the query layer calls into. Each operation maps
// to one platform call, except the post writes, which upload an image first and release
// it again if a later step fails. The client holds configuration only.
package remote

import (
	"context"
	"log/slog"

	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/google/uuid"
)

// Listing sizes.
const (
	RecentPostsLimit = 20
	FeedPageSize     = 9
)

// Platform is the subset of the BaaS the client depends on. appwrite.Client implements it.
type Platform interface {
	CreateAccount(ctx context.Context, accountID, email, password, name string) (model.Account, error)
	CreateEmailPasswordSession(ctx context.Context, email, password string) (model.Session, error)
	DeleteSession(ctx context.Context, sess model.Session, sessionID string) error
	GetAccount(ctx context.Context, sess model.Session) (model.Account, error)

	CreateDocument(ctx context.Context, sess model.Session, databaseID, collectionID, documentID string, data, out any) error
	GetDocument(ctx context.Context, sess model.Session, databaseID, collectionID, documentID string, out any) error
	UpdateDocument(ctx context.Context, sess model.Session, databaseID, collectionID, documentID string, data, out any) error
	DeleteDocument(ctx context.Context, sess model.Session, databaseID, collectionID, documentID string) error
	ListDocuments(ctx context.Context, sess model.Session, databaseID, collectionID string, queries []string, out any) error

	CreateFile(ctx context.Context, sess model.Session, bucketID, fileID string, upload model.Upload) (model.File, error)
	FilePreviewURL(bucketID, fileID string) (string, error)
	DeleteFile(ctx context.Context, sess model.Session, bucketID, fileID string) error
	AvatarInitialsURL(name string) string
}

// Config names the platform resources used by the application.
type Config struct {
	DatabaseID        string
	UserCollectionID  string
	PostCollectionID  string
	SavesCollectionID string
	StorageID         string
}

type Client struct {
	platform Platform
	cfg      Config
}

func New(platform Platform, cfg Config) *Client {
	return &Client{platform: platform, cfg: cfg}
}

func newID() string {
	return uuid.NewString()
}

// releaseFile deletes an uploaded file that no record references. Failures are logged
// only; the caller's original error is what propagates.
func (c *Client) releaseFile(ctx context.Context, sess model.Session, fileID string) {
	err := c.platform.DeleteFile(context.WithoutCancel(ctx), sess, c.cfg.StorageID, fileID)
	if err != nil {
		slog.Error("failed to release uploaded file", "file_id", fileID, "error", err)
		return
	}
	slog.Debug("released uploaded file", "file_id", fileID)
}
