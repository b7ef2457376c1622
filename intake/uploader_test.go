package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/rxintake/auth"
	"github.com/Abraxas-365/rxintake/errx"
	"github.com/Abraxas-365/rxintake/fsx/localfs"
	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadToLocalStore(t *testing.T) {
	store, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	u := NewUploader(store, "http://localhost:8080/uploads/")

	got, err := u.Upload(context.Background(), "user-1", testImage())
	require.NoError(t, err)
	assert.Equal(t, prescription.StoredImage{
		URL:      "http://localhost:8080/uploads/user-1/rx.jpg",
		Path:     "user-1/rx.jpg",
		OwnerID:  "user-1",
		Filename: "rx.jpg",
	}, got)
}

func TestUploadRequiresUser(t *testing.T) {
	objects := &MockStore{}
	_, err := NewUploader(objects, "").Upload(context.Background(), "", testImage())
	assert.True(t, errx.IsCode(err, auth.CodeUnauthenticated))
	assert.Empty(t, objects.keys)
}

func TestUploadStorageError(t *testing.T) {
	objects := &MockStore{PutFunc: func(context.Context, string, []byte, string) (string, error) {
		return "", errors.New("denied")
	}}
	_, err := NewUploader(objects, "").Upload(context.Background(), "u1", testImage())
	assert.True(t, errx.IsCode(err, prescription.CodeStorageFailed))
}
