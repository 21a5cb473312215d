package appwrite

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
)

// Preview parameters used for post images.
const (
	previewWidth   = 2000
	previewHeight  = 2000
	previewGravity = "top"
	previewQuality = 100
)

// CreateFile uploads a blob into a bucket.
func (c *Client) CreateFile(ctx context.Context, sess model.Session, bucketID, fileID string, upload model.Upload) (model.File, error) {
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var file model.File
	resp, err := c.request(ctx, sess).
		SetPathParam("bucketId", bucketID).
		SetMultipartFormData(map[string]string{"fileId": fileID}).
		SetMultipartField("file", upload.Name, contentType, bytes.NewReader(upload.Content)).
		SetResult(&file).
		Post("/storage/buckets/{bucketId}/files")
	if err := check("file.create", resp, err); err != nil {
		return model.File{}, err
	}
	return file, nil
}

func (c *Client) DeleteFile(ctx context.Context, sess model.Session, bucketID, fileID string) error {
	resp, err := c.request(ctx, sess).
		SetPathParams(map[string]string{"bucketId": bucketID, "fileId": fileID}).
		Delete("/storage/buckets/{bucketId}/files/{fileId}")
	return check("file.delete", resp, err)
}

// FilePreviewURL derives the public preview URL of a stored image. No request is made.
func (c *Client) FilePreviewURL(bucketID, fileID string) (string, error) {
	if bucketID == "" || fileID == "" {
		return "", errs.Validationf("file.preview", "bucket and file id are required")
	}
	u, err := url.Parse(fmt.Sprintf("%s/storage/buckets/%s/files/%s/preview",
		c.endpoint, url.PathEscape(bucketID), url.PathEscape(fileID)))
	if err != nil {
		return "", errs.Wrap(errs.RemoteUnavailable, "file.preview", err)
	}
	q := url.Values{}
	q.Set("width", fmt.Sprint(previewWidth))
	q.Set("height", fmt.Sprint(previewHeight))
	q.Set("gravity", previewGravity)
	q.Set("quality", fmt.Sprint(previewQuality))
	q.Set("project", c.projectID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
