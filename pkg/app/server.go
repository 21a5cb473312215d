package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/georgemblack/snapgram/pkg/cache"
	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/georgemblack/snapgram/pkg/query"
	"github.com/georgemblack/snapgram/pkg/store"
	"github.com/georgemblack/snapgram/pkg/util"
	"github.com/georgemblack/snapgram/pkg/validation"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxUploadBytes = 32 << 20

var errForbidden = errors.New("only the creator may change a post")

func Server() error {
	slog.Info("starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx)
	if err != nil {
		return util.WrapErr("failed to create app", err)
	}
	defer app.Close()

	go app.Store.Cache().Run(ctx, app.Config.JanitorInterval)
	go followInvalidations(ctx, app.Cache, app.Store)

	h := &handler{
		store:         app.Store,
		cache:         app.Cache,
		sessionTTL:    app.Config.SessionTTL,
		secureCookies: app.Config.SecureCookies,
	}

	// Start the server
	slog.Info("starting server", "port", app.Config.ServerPort)
	return http.ListenAndServe(fmt.Sprintf(":%s", app.Config.ServerPort), newRouter(h))
}

// followInvalidations applies invalidations published by the realtime process until ctx
// is done. After the subscription drops, every entry is invalidated, since changes may
// have been missed while disconnected.
func followInvalidations(ctx context.Context, c Cache, s *store.Store) {
	subscribe := func() error {
		err := c.SubscribeInvalidations(ctx, func(inv cache.Invalidation) {
			n := s.ApplyChange(store.Change{
				Collection: inv.Collection,
				Action:     inv.Action,
				DocumentID: inv.DocumentID,
			})
			slog.Debug("applied invalidation", "collection", inv.Collection, "action", inv.Action, "document_id", inv.DocumentID, "count", n)
		})
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		s.Cache().Invalidate(query.Key{})
		if err == nil {
			err = errors.New("subscription closed")
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		slog.Warn("invalidation subscription lost", "error", err, "retry_in", next)
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	_ = backoff.RetryNotify(subscribe, backoff.WithContext(b, ctx), notify)
}

type handler struct {
	store         *store.Store
	cache         Cache
	sessionTTL    time.Duration
	secureCookies bool
}

func newRouter(h *handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(instrument)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/signup", h.signUp).Methods(http.MethodPost)
	api.HandleFunc("/signin", h.signIn).Methods(http.MethodPost)
	api.HandleFunc("/signout", h.authenticated(h.signOut)).Methods(http.MethodPost)
	api.HandleFunc("/users/current", h.authenticated(h.currentUser)).Methods(http.MethodGet)

	api.HandleFunc("/posts/recent", h.authenticated(h.recentPosts)).Methods(http.MethodGet)
	api.HandleFunc("/posts", h.authenticated(h.posts)).Methods(http.MethodGet)
	api.HandleFunc("/posts/next", h.authenticated(h.nextPosts)).Methods(http.MethodPost)
	api.HandleFunc("/posts", h.authenticated(h.createPost)).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}", h.authenticated(h.postByID)).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", h.authenticated(h.updatePost)).Methods(http.MethodPut)
	api.HandleFunc("/posts/{id}", h.authenticated(h.deletePost)).Methods(http.MethodDelete)
	api.HandleFunc("/posts/{id}/like", h.authenticated(h.likePost)).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}/save", h.authenticated(h.savePost)).Methods(http.MethodPost)
	api.HandleFunc("/saves/{id}", h.authenticated(h.deleteSavedPost)).Methods(http.MethodDelete)
	api.HandleFunc("/search", h.authenticated(h.search)).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func statusFor(err error) int {
	if errors.Is(err, errForbidden) {
		return http.StatusForbidden
	}
	switch errs.KindOf(err) {
	case errs.Validation:
		return http.StatusBadRequest
	case errs.NotAuthenticated:
		return http.StatusUnauthorized
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Conflict:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	} else {
		slog.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, APIError{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validationf("decode", "invalid request body: %v", err)
	}
	return nil
}

func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req APISignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	newUser := model.NewUser(req)
	if err := validation.SignUp(newUser); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.store.CreateUserAccount(r.Context(), newUser); err != nil {
		writeError(w, err)
		return
	}
	h.openSession(w, r, model.Credentials{Email: req.Email, Password: req.Password}, http.StatusCreated)
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req APISignInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	creds := model.Credentials(req)
	if err := validation.SignIn(creds); err != nil {
		writeError(w, err)
		return
	}
	h.openSession(w, r, creds, http.StatusOK)
}

// openSession signs in, checks the account has a user document, and hands out a token.
func (h *handler) openSession(w http.ResponseWriter, r *http.Request, creds model.Credentials, status int) {
	sess, err := h.store.SignIn(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.store.GetCurrentUser(r.Context(), sess)
	if err != nil {
		if err := h.store.SignOut(r.Context(), sess); err != nil {
			slog.Warn("failed to end platform session", "error", err)
		}
		writeError(w, err)
		return
	}
	token, err := h.startSession(w, r, sess)
	if err != nil {
		writeError(w, errs.Wrap(errs.RemoteUnavailable, "session", err))
		return
	}
	writeJSON(w, status, APISessionResponse{Token: token, User: toAPIUser(user)})
}

func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	rs, _ := sessionFrom(r)
	if err := h.store.SignOut(r.Context(), rs.session); err != nil {
		writeError(w, err)
		return
	}
	if err := h.cache.DeleteSession(r.Context(), rs.token); err != nil {
		slog.Error("failed to delete session", "error", err)
	}
	h.endSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) currentUser(w http.ResponseWriter, r *http.Request) {
	rs, _ := sessionFrom(r)
	user, err := h.store.GetCurrentUser(r.Context(), rs.session)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIUser(user))
}

func (h *handler) recentPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.GetRecentPosts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIPostList(posts))
}

func (h *handler) posts(w http.ResponseWriter, r *http.Request) {
	pages, err := h.store.GetPosts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIFeed(pages))
}

func (h *handler) nextPosts(w http.ResponseWriter, r *http.Request) {
	pages, err := h.store.FetchNextPosts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIFeed(pages))
}

func (h *handler) postByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.GetPostByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIPost(post))
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.SearchPosts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIPostList(posts))
}

// postForm reads the multipart post form. The file is nil when none was sent.
func postForm(r *http.Request) (caption, location, tags string, file *model.Upload, err error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", "", "", nil, errs.Validationf("post", "invalid form: %v", err)
	}

	f, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return "", "", "", nil, errs.Validationf("post", "invalid file: %v", err)
	default:
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return "", "", "", nil, errs.Validationf("post", "failed to read file: %v", err)
		}
		file = &model.Upload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     content,
		}
	}

	return r.FormValue("caption"), r.FormValue("location"), r.FormValue("tags"), file, nil
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	rs, _ := sessionFrom(r)
	caption, location, tags, file, err := postForm(r)
	if err != nil {
		writeError(w, err)
		return
	}
	newPost := model.NewPost{
		Caption:  caption,
		File:     file,
		Location: location,
		Tags:     tags,
	}
	if err := validation.NewPost(newPost); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.store.GetCurrentUser(r.Context(), rs.session)
	if err != nil {
		writeError(w, err)
		return
	}
	newPost.UserID = user.ID

	post, err := h.store.CreatePost(r.Context(), rs.session, newPost)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAPIPost(post))
}

// ownPost loads a post and checks the caller created it.
func (h *handler) ownPost(r *http.Request, sess model.Session) (model.Post, error) {
	user, err := h.store.GetCurrentUser(r.Context(), sess)
	if err != nil {
		return model.Post{}, err
	}
	post, err := h.store.GetPostByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return model.Post{}, err
	}
	if post.CreatorID.String() != user.ID {
		return model.Post{}, errForbidden
	}
	return post, nil
}

func (h *handler) updatePost(w http.ResponseWriter, r *http.Request) {
	rs, _ := sessionFrom(r)
	caption, location, tags, file, err := postForm(r)
	if err != nil {
		writeError(w, err)
		return
	}
	update := model.UpdatePost{
		Caption:  caption,
		File:     file,
		Location: location,
		Tags:     tags,
	}
	if err := validation.UpdatePost(update); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.ownPost(r, rs.session)
	if err != nil {
		writeError(w, err)
		return
	}
	update.PostID = post.ID
	update.ImageID = post.ImageID
	update.ImageURL = post.ImageURL

	updated, err := h.store.UpdatePost(r.Context(), rs.session, update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIPost(updated))
}

func (h *handler) deletePost(w http.ResponseWriter, r *http.Request) {
	rs, _ := sessionFrom(r)
	post, err := h.ownPost(r, rs.session)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeletePost(r.Context(), rs.session, post.ID, post.ImageID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// likePost toggles the caller in the post's like set.
func (h *handler) likePost(w http.ResponseWriter, r *http.Request) {
	rs, _ := sessionFrom(r)
	user, err := h.store.GetCurrentUser(r.Context(), rs.session)
	if err != nil {
		writeError(w, err)
		return
	}
	post, err := h.store.GetPostByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	likes := post.LikeSet()
	if likes.Contains(user.ID) {
		likes.Remove(user.ID)
	} else {
		likes.Add(user.ID)
	}

	updated, err := h.store.LikePost(r.Context(), rs.session, post.ID, mapset.Sorted(likes))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIPost(updated))
}

func (h *handler) savePost(w http.ResponseWriter, r *http.Request) {
	rs, _ := sessionFrom(r)
	postID := mux.Vars(r)["id"]
	user, err := h.store.GetCurrentUser(r.Context(), rs.session)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, ok := user.SavedRecordID(postID); ok {
		writeError(w, errs.New(errs.Conflict, "savePost", "post %s is already saved", postID))
		return
	}

	save, err := h.store.SavePost(r.Context(), rs.session, postID, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APISave{ID: save.ID, PostID: save.PostID.String()})
}

func (h *handler) deleteSavedPost(w http.ResponseWriter, r *http.Request) {
	rs, _ := sessionFrom(r)
	saveID := mux.Vars(r)["id"]
	user, err := h.store.GetCurrentUser(r.Context(), rs.session)
	if err != nil {
		writeError(w, err)
		return
	}

	owned := false
	for _, s := range user.Saves {
		if s.ID == saveID {
			owned = true
			break
		}
	}
	if !owned {
		writeError(w, errs.New(errs.NotFound, "deleteSavedPost", "no saved record %s", saveID))
		return
	}

	if err := h.store.DeleteSavedPost(r.Context(), rs.session, saveID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
