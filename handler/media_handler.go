package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadMedia stores one image or video from the "media" form field and
// reports where it is served.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(h.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing multipart form")
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error retrieving file")
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(h.maxUploadBytes))
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Error reading file")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head[:n])
	}
	isImage := strings.HasPrefix(contentType, "image/")
	isVideo := strings.HasPrefix(contentType, "video/")
	if !isImage && !isVideo {
		writeError(w, http.StatusBadRequest, "画像または動画ファイルを選択してください")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	filename := uuid.New().String() + ext
	if err := saveUpload(h.uploadsDir, filename, io.MultiReader(bytes.NewReader(head[:n]), file)); err != nil {
		log.Printf("Error saving file: %v", err)
		writeError(w, http.StatusInternalServerError, "Error saving file")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"media_url": "/uploads/" + filename,
		"is_video":  isVideo,
	})
}

// saveUpload writes src to dir/filename. A failed copy removes the partial file.
func saveUpload(dir, filename string, src io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}

	path := filepath.Join(dir, filename)
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func tooLargeMessage(limit int64) string {
	return "ファイルサイズは" + formatSize(limit) + "以下にしてください"
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
