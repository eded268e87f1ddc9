package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/pkg/errors"
)

// ResultStore defines an interface for persisting detection results
type ResultStore interface {
	// StoreResult persists a detection result under its document id
	StoreResult(ctx context.Context, result *pii.Result) error

	// LoadResult loads the result stored for a document id
	LoadResult(ctx context.Context, documentID string) (*pii.Result, error)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// JSONResultStore implements ResultStore using one JSON file per document
type JSONResultStore struct {
	dir string
}

// NewJSONResultStore creates a store rooted at dir
func NewJSONResultStore(dir string) *JSONResultStore {
	return &JSONResultStore{
		dir: dir,
	}
}

// Path returns the file a document's result is written to
func (s *JSONResultStore) Path(documentID string) string {
	return filepath.Join(s.dir, unsafeName.ReplaceAllString(documentID, "_")+".json")
}

// StoreResult stores the result as indented JSON
func (s *JSONResultStore) StoreResult(ctx context.Context, result *pii.Result) error {
	if result == nil {
		return errors.New("cannot store nil result")
	}
	if result.DocumentID == "" {
		return errors.New("result has no document id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrapf(err, "create result directory %s", s.dir)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode result")
	}

	// Results hold raw PII values, keep them private to the owner
	return errors.Wrap(os.WriteFile(s.Path(result.DocumentID), data, 0600), "write result")
}

// LoadResult loads a result from its JSON file
func (s *JSONResultStore) LoadResult(ctx context.Context, documentID string) (*pii.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(documentID))
	if err != nil {
		return nil, errors.Wrapf(err, "read result for %s", documentID)
	}

	var result pii.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrapf(err, "decode result for %s", documentID)
	}

	return &result, nil
}
