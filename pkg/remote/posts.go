package remote

import (
	"context"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/georgemblack/snapgram/pkg/appwrite"
	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/georgemblack/snapgram/pkg/util"
)

func (c *Client) UploadFile(ctx context.Context, sess model.Session, upload model.Upload) (model.File, error) {
	if len(upload.Content) == 0 {
		return model.File{}, errs.Validationf("uploadFile", "file is empty")
	}
	file, err := c.platform.CreateFile(ctx, sess, c.cfg.StorageID, newID(), upload)
	if err != nil {
		return model.File{}, util.WrapErr("failed to upload file", err)
	}
	return file, nil
}

// FilePreview derives the preview URL of a stored image.
func (c *Client) FilePreview(fileID string) (string, error) {
	url, err := c.platform.FilePreviewURL(c.cfg.StorageID, fileID)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", errs.New(errs.RemoteUnavailable, "filePreview", "empty preview url for file %s", fileID)
	}
	return url, nil
}

func (c *Client) DeleteFile(ctx context.Context, sess model.Session, fileID string) error {
	if fileID == "" {
		return errs.Validationf("deleteFile", "file id is required")
	}
	if err := c.platform.DeleteFile(ctx, sess, c.cfg.StorageID, fileID); err != nil {
		return util.WrapErr("failed to delete file", err)
	}
	return nil
}

// uploadImage stores a new image and derives its preview URL. If the URL cannot be
// derived the upload is released.
func (c *Client) uploadImage(ctx context.Context, sess model.Session, op string, upload model.Upload) (model.File, string, error) {
	file, err := c.UploadFile(ctx, sess, upload)
	if err != nil {
		return model.File{}, "", err
	}

	url, err := c.FilePreview(file.ID)
	if err != nil {
		c.releaseFile(ctx, sess, file.ID)
		return model.File{}, "", errs.Wrap(errs.RemoteUnavailable, op, err)
	}
	return file, url, nil
}

// CreatePost uploads the image, then persists the post referencing it. A failed persist
// releases the upload.
func (c *Client) CreatePost(ctx context.Context, sess model.Session, post model.NewPost) (model.Post, error) {
	if post.UserID == "" {
		return model.Post{}, errs.Validationf("createPost", "creator id is required")
	}
	if post.File == nil {
		return model.Post{}, errs.Validationf("createPost", "an image is required")
	}

	file, url, err := c.uploadImage(ctx, sess, "createPost", *post.File)
	if err != nil {
		return model.Post{}, err
	}

	var created model.Post
	err = c.platform.CreateDocument(ctx, sess, c.cfg.DatabaseID, c.cfg.PostCollectionID, newID(), map[string]any{
		"creator":  post.UserID,
		"caption":  post.Caption,
		"imageUrl": url,
		"imageId":  file.ID,
		"location": post.Location,
		"tags":     mapset.Sorted(ParseTags(post.Tags)),
	}, &created)
	if err != nil {
		c.releaseFile(ctx, sess, file.ID)
		return model.Post{}, errs.Wrap(errs.RemoteUnavailable, "createPost", err)
	}

	slog.Debug("created post", "post_id", created.ID, "image_id", file.ID)
	return created, nil
}

// UpdatePost rewrites the editable attributes of a post. A new image is uploaded only
// when one is supplied; if the update then fails, that new image is released and the
// old one is left in place.
func (c *Client) UpdatePost(ctx context.Context, sess model.Session, post model.UpdatePost) (model.Post, error) {
	if post.PostID == "" {
		return model.Post{}, errs.Validationf("updatePost", "post id is required")
	}

	imageID, imageURL := post.ImageID, post.ImageURL
	uploaded := ""
	if post.File != nil {
		file, url, err := c.uploadImage(ctx, sess, "updatePost", *post.File)
		if err != nil {
			return model.Post{}, err
		}
		imageID, imageURL, uploaded = file.ID, url, file.ID
	}

	var updated model.Post
	err := c.platform.UpdateDocument(ctx, sess, c.cfg.DatabaseID, c.cfg.PostCollectionID, post.PostID, map[string]any{
		"caption":  post.Caption,
		"imageUrl": imageURL,
		"imageId":  imageID,
		"location": post.Location,
		"tags":     mapset.Sorted(ParseTags(post.Tags)),
	}, &updated)
	if err != nil {
		if uploaded != "" {
			c.releaseFile(ctx, sess, uploaded)
			return model.Post{}, errs.Wrap(errs.RemoteUnavailable, "updatePost", err)
		}
		return model.Post{}, util.WrapErr("failed to update post", err)
	}

	// The replaced image is no longer referenced.
	if uploaded != "" && post.ImageID != "" && post.ImageID != uploaded {
		c.releaseFile(ctx, sess, post.ImageID)
	}
	return updated, nil
}

// DeletePost deletes the post record and then releases its image.
func (c *Client) DeletePost(ctx context.Context, sess model.Session, postID, imageID string) error {
	if postID == "" || imageID == "" {
		return errs.Validationf("deletePost", "post id and image id are required")
	}

	err := c.platform.DeleteDocument(ctx, sess, c.cfg.DatabaseID, c.cfg.PostCollectionID, postID)
	if err != nil {
		return util.WrapErr("failed to delete post", err)
	}

	c.releaseFile(ctx, sess, imageID)
	return nil
}

func (c *Client) GetPostByID(ctx context.Context, sess model.Session, postID string) (model.Post, error) {
	if postID == "" {
		return model.Post{}, errs.Validationf("getPostById", "post id is required")
	}
	var post model.Post
	err := c.platform.GetDocument(ctx, sess, c.cfg.DatabaseID, c.cfg.PostCollectionID, postID, &post)
	if err != nil {
		return model.Post{}, util.WrapErr("failed to get post", err)
	}
	return post, nil
}

// GetRecentPosts lists the newest posts by creation time.
func (c *Client) GetRecentPosts(ctx context.Context, sess model.Session) (model.PostList, error) {
	return c.listPosts(ctx, sess, "getRecentPosts",
		appwrite.OrderDesc("$createdAt"),
		appwrite.Limit(RecentPostsLimit),
	)
}

// GetInfinitePosts lists one feed page ordered by last update. An empty cursor starts
// from the first page; otherwise the page resumes after the document with that id.
func (c *Client) GetInfinitePosts(ctx context.Context, sess model.Session, cursor string) (model.PostList, error) {
	queries := []string{appwrite.OrderDesc("$updatedAt"), appwrite.Limit(FeedPageSize)}
	if cursor != "" {
		queries = append(queries, appwrite.CursorAfter(cursor))
	}
	return c.listPosts(ctx, sess, "getInfinitePosts", queries...)
}

// SearchPosts matches the term against post captions.
func (c *Client) SearchPosts(ctx context.Context, sess model.Session, term string) (model.PostList, error) {
	if term == "" {
		return model.PostList{}, errs.Validationf("searchPosts", "search term is required")
	}
	return c.listPosts(ctx, sess, "searchPosts", appwrite.Search("caption", term))
}

func (c *Client) listPosts(ctx context.Context, sess model.Session, op string, queries ...string) (model.PostList, error) {
	var posts model.PostList
	err := c.platform.ListDocuments(ctx, sess, c.cfg.DatabaseID, c.cfg.PostCollectionID, queries, &posts)
	if err != nil {
		return model.PostList{}, util.WrapErr(op+" failed", err)
	}
	if posts.Documents == nil {
		posts.Documents = []model.Post{}
	}
	return posts, nil
}

// LikePost replaces the post's like set.
func (c *Client) LikePost(ctx context.Context, sess model.Session, postID string, likes []string) (model.Post, error) {
	if postID == "" {
		return model.Post{}, errs.Validationf("likePost", "post id is required")
	}
	var updated model.Post
	err := c.platform.UpdateDocument(ctx, sess, c.cfg.DatabaseID, c.cfg.PostCollectionID, postID, map[string]any{
		"likes": mapset.Sorted(mapset.NewSet(likes...)),
	}, &updated)
	if err != nil {
		return model.Post{}, util.WrapErr("failed to like post", err)
	}
	return updated, nil
}

// SavePost bookmarks a post for a user.
func (c *Client) SavePost(ctx context.Context, sess model.Session, postID, userID string) (model.Save, error) {
	if postID == "" || userID == "" {
		return model.Save{}, errs.Validationf("savePost", "post id and user id are required")
	}
	var save model.Save
	err := c.platform.CreateDocument(ctx, sess, c.cfg.DatabaseID, c.cfg.SavesCollectionID, newID(), map[string]any{
		"user": userID,
		"post": postID,
	}, &save)
	if err != nil {
		return model.Save{}, util.WrapErr("failed to save post", err)
	}
	return save, nil
}

func (c *Client) DeleteSavedPost(ctx context.Context, sess model.Session, savedRecordID string) error {
	if savedRecordID == "" {
		return errs.Validationf("deleteSavedPost", "saved record id is required")
	}
	err := c.platform.DeleteDocument(ctx, sess, c.cfg.DatabaseID, c.cfg.SavesCollectionID, savedRecordID)
	if err != nil {
		return util.WrapErr("failed to delete saved post", err)
	}
	return nil
}
