// Package storage abstracts the object store that holds theme files.
//
// Themes live under `templates/{storeID}/{path}` keys. Production
// reads go through the CDN in front of the bucket; the S3 client is
// the source of truth and the fallback. Both stores return identical
// bytes for a key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ObjectStore fetches raw bytes by key.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// NotFoundError reports a key absent from the store. Callers map it to
// the template-not-found taxonomy; the storage layer stays neutral.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object not found: %s", e.Key)
}

// IsNotFound reports whether err is a storage NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// TemplateKey builds the object key for a store's template file.
func TemplateKey(storeID, path string) string {
	return "templates/" + storeID + "/" + NormalizeTemplatePath(path)
}

// NormalizeTemplatePath canonicalizes a template reference. Bare
// section names ("header") become "sections/header.liquid"; anything
// already carrying a directory keeps its shape and gains only the
// extension if missing. JSON page configs pass through untouched.
func NormalizeTemplatePath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return path
	}
	if strings.HasSuffix(path, ".json") {
		return path
	}
	if !strings.Contains(path, "/") {
		if !strings.HasSuffix(path, ".liquid") {
			path += ".liquid"
		}
		return "sections/" + path
	}
	if !strings.HasSuffix(path, ".liquid") {
		path += ".liquid"
	}
	return path
}
