package appwrite

import "encoding/json"

// Query is a document list filter in the platform's JSON query syntax.
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func (q Query) String() string {
	data, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	return string(data)
}

func Equal(attribute string, values ...any) string {
	return Query{Method: "equal", Attribute: attribute, Values: values}.String()
}

func OrderDesc(attribute string) string {
	return Query{Method: "orderDesc", Attribute: attribute}.String()
}

func Limit(n int) string {
	return Query{Method: "limit", Values: []any{n}}.String()
}

// CursorAfter resumes a listing after the document with the given id.
func CursorAfter(documentID string) string {
	return Query{Method: "cursorAfter", Values: []any{documentID}}.String()
}

// Search is a full-text match; the attribute needs a full-text index.
func Search(attribute, term string) string {
	return Query{Method: "search", Attribute: attribute, Values: []any{term}}.String()
}
