// Package fsx defines the object store the pipeline uploads images to.
package fsx

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/Abraxas-365/rxintake/errx"
)

var (
	ErrorRegistry = errx.NewRegistry("FS")

	CodeWriteFailed = ErrorRegistry.Register("WRITE_FAILED", errx.TypeExternal,
		http.StatusBadGateway, "Object could not be written")
	CodeInvalidKey = ErrorRegistry.Register("INVALID_KEY", errx.TypeValidation,
		http.StatusBadRequest, "Object key is not valid")
)

// ObjectStore writes opaque blobs under slash separated keys
type ObjectStore interface {
	// Put stores data under key, overwriting any previous object, and
	// returns the storage path of the object relative to the public base.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// CleanKey normalizes key and rejects keys that would leave the store root
func CleanKey(key string) (string, error) {
	slashed := strings.ReplaceAll(key, "\\", "/")
	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", ErrorRegistry.New(CodeInvalidKey).WithDetail("key", key)
		}
	}
	k := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if k == "" {
		return "", ErrorRegistry.New(CodeInvalidKey).WithDetail("key", key)
	}
	return k, nil
}

// Join builds a public URL from a base and a storage path
func Join(base, storagePath string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(storagePath, "/")
}
