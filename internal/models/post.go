package models

import (
	"bytes"
	"encoding/json"
	"sort"
)

// PostStatus represents where a post is in its lifecycle
type PostStatus string

const (
	PostStatusPending PostStatus = "pending"
	PostStatusPosted  PostStatus = "posted"
)

// Post is a single draft together with its polished version
type Post struct {
	ID         int        `json:"id" db:"id"`
	RoughDraft string     `json:"rough_draft" db:"rough_draft"`
	FinalPost  string     `json:"final_post" db:"final_post"`
	Status     PostStatus `json:"status" db:"status"`
	Idea       string     `json:"idea,omitempty" db:"idea"`

	// Extra holds record fields not listed above; they are written back unchanged
	Extra map[string]json.RawMessage `json:"-" db:"-"`
}

var postFields = []string{"id", "rough_draft", "final_post", "status", "idea"}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra
func (p *Post) UnmarshalJSON(data []byte) error {
	type plain Post
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	extra, err := unknownFields(data, postFields)
	if err != nil {
		return err
	}
	known.Extra = extra
	*p = Post(known)
	return nil
}

// MarshalJSON writes the known fields followed by Extra in key order
func (p Post) MarshalJSON() ([]byte, error) {
	type plain Post
	return marshalWithExtra(plain(p), p.Extra)
}

// Collection is the full set of stored posts, read and written as one unit
type Collection struct {
	Posts []Post `json:"posts"`

	// Extra holds top-level keys other than "posts"
	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the posts and keeps any other top-level key in Extra
func (c *Collection) UnmarshalJSON(data []byte) error {
	type plain Collection
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	extra, err := unknownFields(data, []string{"posts"})
	if err != nil {
		return err
	}
	known.Extra = extra
	*c = Collection(known)
	return nil
}

// MarshalJSON writes "posts" followed by Extra in key order
func (c Collection) MarshalJSON() ([]byte, error) {
	type plain Collection
	return marshalWithExtra(plain(c), c.Extra)
}

// NewCollection returns an empty collection that serializes as {"posts": []}
func NewCollection() *Collection {
	return &Collection{Posts: make([]Post, 0)}
}

// HasDraft reports whether a post with the given rough draft already exists
func (c *Collection) HasDraft(draft string) bool {
	for _, p := range c.Posts {
		if p.RoughDraft == draft {
			return true
		}
	}
	return false
}

// NextID returns the id for the next appended post.
// For a collection built only by appends this equals len(Posts)+1.
func (c *Collection) NextID() int {
	maxID := 0
	for _, p := range c.Posts {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID + 1
}

// Clone returns a deep copy of the collection. A nil collection clones to an empty one.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return NewCollection()
	}
	out := &Collection{
		Posts: make([]Post, len(c.Posts)),
		Extra: cloneExtra(c.Extra),
	}
	for i, p := range c.Posts {
		p.Extra = cloneExtra(p.Extra)
		out.Posts[i] = p
	}
	return out
}

func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// unknownFields returns the keys of the JSON object in data that are not in known.
// The result is nil when there are none.
func unknownFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// marshalWithExtra encodes v without HTML escaping and appends extra to the object
func marshalWithExtra(v interface{}, extra map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	if len(extra) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Reopen the object and append each extra member
	out = out[:len(out)-1]
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		if len(out) > 1 {
			out = append(out, ',')
		}
		out = append(out, name...)
		out = append(out, ':')
		out = append(out, extra[k]...)
	}
	return append(out, '}'), nil
}

// CreatePostRequest is the body of POST /api/posts
type CreatePostRequest struct {
	RoughDraft string `json:"rough_draft"`
	Idea       string `json:"idea,omitempty"`
}

// GeneratePostRequest is the body of POST /api/generate_post
type GeneratePostRequest struct {
	RoughDraft string `json:"rough_draft"`
}

// GeneratePostResponse is the body returned by POST /api/generate_post
type GeneratePostResponse struct {
	FinalPost string `json:"final_post"`
}

// PostStats holds post counts by status
type PostStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Posted  int `json:"posted"`
}
