package appwrite

import (
	"context"
	"net/url"

	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/go-resty/resty/v2"
)

const (
	documentsPath = "/databases/{databaseId}/collections/{collectionId}/documents"
	documentPath  = documentsPath + "/{documentId}"
)

func (c *Client) documents(ctx context.Context, sess model.Session, databaseID, collectionID string) *resty.Request {
	return c.request(ctx, sess).SetPathParams(map[string]string{
		"databaseId":   databaseID,
		"collectionId": collectionID,
	})
}

// CreateDocument stores data as a new document and decodes the created document into out.
func (c *Client) CreateDocument(ctx context.Context, sess model.Session, databaseID, collectionID, documentID string, data, out any) error {
	resp, err := c.documents(ctx, sess, databaseID, collectionID).
		SetBody(map[string]any{
			"documentId": documentID,
			"data":       data,
		}).
		SetResult(out).
		Post(documentsPath)
	return check("document.create", resp, err)
}

// GetDocument decodes one document into out.
func (c *Client) GetDocument(ctx context.Context, sess model.Session, databaseID, collectionID, documentID string, out any) error {
	return c.read(ctx, "document.get", func() (*resty.Response, error) {
		return c.documents(ctx, sess, databaseID, collectionID).
			SetPathParam("documentId", documentID).
			SetResult(out).
			Get(documentPath)
	})
}

// UpdateDocument patches the given attributes and decodes the updated document into out.
func (c *Client) UpdateDocument(ctx context.Context, sess model.Session, databaseID, collectionID, documentID string, data, out any) error {
	resp, err := c.documents(ctx, sess, databaseID, collectionID).
		SetPathParam("documentId", documentID).
		SetBody(map[string]any{"data": data}).
		SetResult(out).
		Patch(documentPath)
	return check("document.update", resp, err)
}

func (c *Client) DeleteDocument(ctx context.Context, sess model.Session, databaseID, collectionID, documentID string) error {
	resp, err := c.documents(ctx, sess, databaseID, collectionID).
		SetPathParam("documentId", documentID).
		Delete(documentPath)
	return check("document.delete", resp, err)
}

// ListDocuments decodes a document list matching queries into out.
func (c *Client) ListDocuments(ctx context.Context, sess model.Session, databaseID, collectionID string, queries []string, out any) error {
	return c.read(ctx, "document.list", func() (*resty.Response, error) {
		return c.documents(ctx, sess, databaseID, collectionID).
			SetQueryParamsFromValues(url.Values{"queries[]": queries}).
			SetResult(out).
			Get(documentsPath)
	})
}
