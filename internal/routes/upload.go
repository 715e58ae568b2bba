package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"chirpnet/internal/apperr"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// saveUpload writes the named multipart file to the upload directory under
// a random name and returns the stored path. A missing file part is not an
// error; the post simply has no media.
func (a *API) saveUpload(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperr.ErrValidation
	}
	defer file.Close()

	if err := os.MkdirAll(a.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(header.Filename)
	path := filepath.Join(a.cfg.UploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}

	return path, nil
}
