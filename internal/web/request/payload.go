package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conduit-lang/plumber/internal/plumbing"
)

// Body is the request payload as prepared by a route's payload policy
type Body struct {
	Raw    []byte             // Buffered body, output "data" only
	Parsed any                // Decoded body when the policy parses
	Fields url.Values         // Multipart form values
	File   *File              // Whole body written to disk, output "file"
	Files  map[string][]*File // Multipart file parts written to disk
}

// File is a payload written to disk
type File struct {
	Field       string
	Filename    string
	ContentType string
	Path        string
	Size        int64
}

// ErrorWriter renders a payload failure
type ErrorWriter func(w http.ResponseWriter, status int, code, message string)

type bodyKey struct{}

// FromContext returns the payload prepared for the request, or nil
func FromContext(ctx context.Context) *Body {
	body, _ := ctx.Value(bodyKey{}).(*Body)
	return body
}

// PayloadHandler applies a payload policy before next. Files written for
// output "file" are removed once next returns.
func PayloadHandler(policy plumbing.Payload, uploadDir string, next http.Handler, onError ErrorWriter) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, status int, code, message string) {
			http.Error(w, message, status)
		}
	}
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := &Body{}
		r = r.WithContext(context.WithValue(r.Context(), bodyKey{}, body))

		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}

		if policy.MaxBytes > 0 {
			if r.ContentLength > policy.MaxBytes {
				onError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
					fmt.Sprintf("Payload content length greater than maximum allowed: %d", policy.MaxBytes))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, policy.MaxBytes)
		}

		var err error
		switch policy.Output {
		case plumbing.OutputStream:
		case plumbing.OutputFile:
			defer body.cleanup()
			err = readToFiles(r, body, policy.Parse, uploadDir)
		default:
			err = readToMemory(r, body, policy.Parse)
		}
		if err != nil {
			status, code := statusFor(err)
			onError(w, status, code, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// errUnsupportedMediaType marks bodies the parser cannot decode
var errUnsupportedMediaType = errors.New("unsupported content type")

func statusFor(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"
	case errors.Is(err, errUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"
	default:
		return http.StatusBadRequest, "BAD_REQUEST"
	}
}

func mediaType(r *http.Request) (string, map[string]string) {
	contentType := r.Header.Get("Content-Type")
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType, nil
	}
	return mt, params
}

func readToMemory(r *http.Request, body *Body, parse bool) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	_ = r.Body.Close()
	body.Raw = raw
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if !parse || len(raw) == 0 {
		return nil
	}

	mt, params := mediaType(r)
	switch {
	case mt == "application/json" || mt == "":
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		body.Parsed = parsed
	case mt == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return fmt.Errorf("invalid form data: %w", err)
		}
		body.Parsed = values
	case strings.HasPrefix(mt, "multipart/"):
		form, err := multipart.NewReader(bytes.NewReader(raw), params["boundary"]).ReadForm(int64(len(raw)) + 1)
		if err != nil {
			return fmt.Errorf("invalid multipart form: %w", err)
		}
		body.Fields = url.Values(form.Value)
		body.Parsed = body.Fields
		_ = form.RemoveAll()
	case strings.HasPrefix(mt, "text/"):
		body.Parsed = string(raw)
	default:
		return fmt.Errorf("%w: %s", errUnsupportedMediaType, mt)
	}

	return nil
}

func readToFiles(r *http.Request, body *Body, parse bool, uploadDir string) error {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	mt, _ := mediaType(r)
	if parse && strings.HasPrefix(mt, "multipart/") {
		return readMultipartToFiles(r, body, uploadDir)
	}

	file, err := writeTemp(uploadDir, r.Body)
	if file != nil {
		file.ContentType = mt
		body.File = file
	}
	return err
}

func readMultipartToFiles(r *http.Request, body *Body, uploadDir string) error {
	reader, err := r.MultipartReader()
	if err != nil {
		return fmt.Errorf("invalid multipart form: %w", err)
	}

	body.Fields = make(url.Values)
	body.Files = make(map[string][]*File)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("invalid multipart form: %w", err)
		}

		if part.FileName() == "" {
			value, err := io.ReadAll(part)
			_ = part.Close()
			if err != nil {
				return fmt.Errorf("failed to read field %s: %w", part.FormName(), err)
			}
			body.Fields.Add(part.FormName(), string(value))
			continue
		}

		file, err := writeTemp(uploadDir, part)
		_ = part.Close()
		if file != nil {
			file.Field = part.FormName()
			file.Filename = filepath.Base(part.FileName())
			file.ContentType = part.Header.Get("Content-Type")
			body.Files[file.Field] = append(body.Files[file.Field], file)
		}
		if err != nil {
			return err
		}
	}

	body.Parsed = body.Fields
	return nil
}

// writeTemp streams src into a new file under dir. The returned file is
// non-nil whenever something was created on disk, so it can be cleaned up.
func writeTemp(dir string, src io.Reader) (*File, error) {
	dst, err := os.CreateTemp(dir, "payload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create payload file: %w", err)
	}
	defer dst.Close()

	file := &File{Path: dst.Name()}
	n, err := io.Copy(dst, src)
	file.Size = n
	if err != nil {
		return file, fmt.Errorf("failed to write payload file: %w", err)
	}
	return file, nil
}

func (b *Body) cleanup() {
	if b.File != nil {
		_ = os.Remove(b.File.Path)
	}
	for _, files := range b.Files {
		for _, f := range files {
			_ = os.Remove(f.Path)
		}
	}
}
