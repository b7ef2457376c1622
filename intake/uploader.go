package intake

import (
	"context"

	"github.com/Abraxas-365/rxintake/auth"
	"github.com/Abraxas-365/rxintake/fsx"
	"github.com/Abraxas-365/rxintake/logx"
	"github.com/Abraxas-365/rxintake/prescription"
)

// Uploader puts acquired images into the object store under the owner's
// prefix and resolves their public URL.
type Uploader struct {
	store      fsx.ObjectStore
	publicBase string
}

func NewUploader(store fsx.ObjectStore, publicBase string) *Uploader {
	return &Uploader{store: store, publicBase: publicBase}
}

// Upload stores img at <userID>/<filename>. An existing object with the same
// name is replaced.
func (u *Uploader) Upload(ctx context.Context, userID string, img prescription.Image) (prescription.StoredImage, error) {
	if err := auth.RequireUser(userID); err != nil {
		return prescription.StoredImage{}, err
	}

	key := userID + "/" + img.Filename
	storedPath, err := u.store.Put(ctx, key, img.Data, img.MIMEType)
	if err != nil {
		logx.Error("upload of %s for user %s failed: %v", img.Filename, userID, err)
		return prescription.StoredImage{}, prescription.ErrorRegistry.New(prescription.CodeStorageFailed).
			WithCause(err).
			WithDetail("filename", img.Filename)
	}

	stored := prescription.StoredImage{
		URL:      fsx.Join(u.publicBase, storedPath),
		Path:     storedPath,
		OwnerID:  userID,
		Filename: img.Filename,
	}
	logx.Info("stored %s (%d bytes, %s) for user %s", stored.Path, len(img.Data), img.Source, userID)
	return stored, nil
}
