package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/vbonduro/phototasks/internal/domain"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

// allowedImageTypes maps accepted photo MIME types to the extension used for
// the spooled upload. net/http.DetectContentType handles JPEG, PNG, and GIF
// via magic-byte sniffing. WebP is detected separately because the WHATWG
// sniffing algorithm (and therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if _, ok := allowedImageTypes[mime]; ok {
		return mime, true
	}
	return "", false
}

func extensionFor(mime string) string {
	if mime == "image/webp" {
		return ".webp"
	}
	return allowedImageTypes[mime]
}

// taskForm is a parsed create/update request. photoPath is empty when no
// photo was uploaded; otherwise it names a temp file removed by cleanup.
type taskForm struct {
	title       string
	location    domain.Location
	hasLocation bool
	photoPath   string
	cleanup     func()
}

func (s *Server) parseTaskForm(w http.ResponseWriter, r *http.Request) (*taskForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		return nil, errors.New("failed to parse form")
	}

	form := &taskForm{title: r.FormValue("title"), cleanup: func() {}}

	location, ok, err := parseLocation(r)
	if err != nil {
		return nil, err
	}
	form.location, form.hasLocation = location, ok

	path, err := s.spoolPhoto(r)
	if err != nil {
		return nil, err
	}
	if path != "" {
		form.photoPath = path
		form.cleanup = func() { removeWithLog(path, s.logger) }
	}
	return form, nil
}

// parseLocation reads latitude, longitude and the optional address. It
// reports false when neither coordinate was sent.
func parseLocation(r *http.Request) (domain.Location, bool, error) {
	latRaw := strings.TrimSpace(r.FormValue("latitude"))
	lngRaw := strings.TrimSpace(r.FormValue("longitude"))
	if latRaw == "" && lngRaw == "" {
		return domain.Location{}, false, nil
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		return domain.Location{}, false, errors.New("invalid latitude")
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil || lng < -180 || lng > 180 {
		return domain.Location{}, false, errors.New("invalid longitude")
	}

	loc := domain.Location{Latitude: lat, Longitude: lng}
	if values, ok := r.MultipartForm.Value["address"]; ok && len(values) > 0 {
		loc.Address = domain.StringPtr(strings.TrimSpace(values[0]))
	}
	return loc, true, nil
}

// spoolPhoto writes the uploaded photo to a temp file named with the
// extension of its detected type and returns the path, or "" when the
// request carries no photo.
func (s *Server) spoolPhoto(r *http.Request) (string, error) {
	file, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", errors.New("failed to read photo")
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		return "", errors.New("failed to read photo")
	}

	mimeType, ok := allowedImageMIME(data)
	if !ok {
		return "", errors.New("unsupported image format")
	}

	tmp, err := os.CreateTemp("", "upload-*"+extensionFor(mimeType))
	if err != nil {
		return "", errors.New("failed to store photo")
	}
	if _, err := tmp.Write(data); err != nil {
		closeWithLog(tmp, "upload temp file", s.logger)
		removeWithLog(tmp.Name(), s.logger)
		return "", errors.New("failed to store photo")
	}
	if err := tmp.Close(); err != nil {
		removeWithLog(tmp.Name(), s.logger)
		return "", errors.New("failed to store photo")
	}
	return tmp.Name(), nil
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}

func removeWithLog(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove upload", "path", path, "error", err)
	}
}
