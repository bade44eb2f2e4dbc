package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/utils"
)

// maxUploadBytes caps image uploads at 2 MB.
const maxUploadBytes = 2 << 20

// UploadController stores product images on local disk and returns the URL
// they are served from.
type UploadController struct {
	Dir string
}

// NewUploadController creates the upload directory if needed.
func NewUploadController(dir string) (*UploadController, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &UploadController{Dir: dir}, nil
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Upload accepts a multipart "image" field and writes it under the upload
// directory with a generated filename.
func (uc *UploadController) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "File size cannot be larger than 2MB")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		utils.WriteError(w, http.StatusBadRequest, "Unsupported image type")
		return
	}

	filename := uuid.NewString() + ext
	path := filepath.Join(uc.Dir, filename)

	dst, err := os.Create(path)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/uploads/%s", scheme, r.Host, filename)

	utils.WriteData(w, http.StatusCreated, map[string]string{"url": url})
}
