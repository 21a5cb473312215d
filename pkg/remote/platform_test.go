package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
)

// fakePlatform records calls and serves canned documents. Documents are round-tripped
// through JSON so decoding matches the real transport.
type fakePlatform struct {
	mu sync.Mutex

	calls        []string
	deletedFiles []string
	lastData     map[string]any
	lastQueries  []string

	account   model.Account
	documents map[string]any // documentID -> document
	lists     []any          // consumed in order by ListDocuments

	failOn     map[string]error
	previewURL string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		documents:  map[string]any{},
		failOn:     map[string]error{},
		previewURL: "https://cdn.example.com/preview",
	}
}

func (f *fakePlatform) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakePlatform) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func decodeInto(v, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakePlatform) CreateAccount(_ context.Context, accountID, email, _, name string) (model.Account, error) {
	if err := f.record("CreateAccount"); err != nil {
		return model.Account{}, err
	}
	return model.Account{ID: accountID, Name: name, Email: email}, nil
}

func (f *fakePlatform) CreateEmailPasswordSession(_ context.Context, _, _ string) (model.Session, error) {
	if err := f.record("CreateEmailPasswordSession"); err != nil {
		return model.Session{}, err
	}
	return model.Session{ID: "sess1", AccountID: f.account.ID, Secret: "secret"}, nil
}

func (f *fakePlatform) DeleteSession(_ context.Context, _ model.Session, _ string) error {
	return f.record("DeleteSession")
}

func (f *fakePlatform) GetAccount(_ context.Context, _ model.Session) (model.Account, error) {
	if err := f.record("GetAccount"); err != nil {
		return model.Account{}, err
	}
	return f.account, nil
}

func (f *fakePlatform) CreateDocument(_ context.Context, _ model.Session, _, collectionID, documentID string, data, out any) error {
	if err := f.record("CreateDocument"); err != nil {
		return err
	}
	doc := map[string]any{"$id": documentID}
	for k, v := range data.(map[string]any) {
		doc[k] = v
	}
	f.mu.Lock()
	f.lastData = data.(map[string]any)
	f.documents[documentID] = doc
	f.mu.Unlock()
	return decodeInto(doc, out)
}

func (f *fakePlatform) GetDocument(_ context.Context, _ model.Session, _, _, documentID string, out any) error {
	if err := f.record("GetDocument"); err != nil {
		return err
	}
	f.mu.Lock()
	doc, ok := f.documents[documentID]
	f.mu.Unlock()
	if !ok {
		return errs.New(errs.NotFound, "document.get", "no document %s", documentID)
	}
	return decodeInto(doc, out)
}

func (f *fakePlatform) UpdateDocument(_ context.Context, _ model.Session, _, _, documentID string, data, out any) error {
	if err := f.record("UpdateDocument"); err != nil {
		return err
	}
	doc := map[string]any{"$id": documentID}
	for k, v := range data.(map[string]any) {
		doc[k] = v
	}
	f.mu.Lock()
	f.lastData = data.(map[string]any)
	f.documents[documentID] = doc
	f.mu.Unlock()
	return decodeInto(doc, out)
}

func (f *fakePlatform) DeleteDocument(_ context.Context, _ model.Session, _, _, documentID string) error {
	if err := f.record("DeleteDocument"); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.documents, documentID)
	f.mu.Unlock()
	return nil
}

func (f *fakePlatform) ListDocuments(_ context.Context, _ model.Session, _, _ string, queries []string, out any) error {
	if err := f.record("ListDocuments"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQueries = queries
	if len(f.lists) == 0 {
		return decodeInto(map[string]any{"total": 0, "documents": []any{}}, out)
	}
	next := f.lists[0]
	f.lists = f.lists[1:]
	return decodeInto(next, out)
}

func (f *fakePlatform) CreateFile(_ context.Context, _ model.Session, bucketID, fileID string, upload model.Upload) (model.File, error) {
	if err := f.record("CreateFile"); err != nil {
		return model.File{}, err
	}
	return model.File{ID: fileID, BucketID: bucketID, Name: upload.Name}, nil
}

func (f *fakePlatform) FilePreviewURL(_, fileID string) (string, error) {
	if err := f.record("FilePreviewURL"); err != nil {
		return "", err
	}
	if f.previewURL == "" {
		return "", nil
	}
	return f.previewURL + "/" + fileID, nil
}

func (f *fakePlatform) DeleteFile(_ context.Context, _ model.Session, _, fileID string) error {
	err := f.record("DeleteFile")
	f.mu.Lock()
	f.deletedFiles = append(f.deletedFiles, fileID)
	f.mu.Unlock()
	return err
}

func (f *fakePlatform) AvatarInitialsURL(name string) string {
	return "https://cdn.example.com/avatars/" + name
}

var errPlatformDown = errors.New("platform down")

var testSession = model.Session{ID: "sess1", AccountID: "acct1", Secret: "secret"}

var testConfig = Config{
	DatabaseID:        "db",
	UserCollectionID:  "users",
	PostCollectionID:  "posts",
	SavesCollectionID: "saves",
	StorageID:         "media",
}
