package storefront

import (
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Form field names, shared by the add-item view and FieldErrors.
const (
	FieldName        = "name"
	FieldPrice       = "price"
	FieldDescription = "description"
	FieldImage       = "image"
)

const maxImageBytes = 8 << 20

var ErrImageTooLarge = errors.New("image exceeds size limit")

// ImageFile is an image selected in the add-item form.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageFromMultipart reads an uploaded file. The content type falls back to
// sniffing when the browser did not send one.
func ImageFromMultipart(fh *multipart.FileHeader) (*ImageFile, error) {
	if fh.Size > maxImageBytes {
		return nil, ErrImageTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, ErrImageTooLarge
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return &ImageFile{Filename: fh.Filename, ContentType: ct, Data: data}, nil
}

// NewItemForm holds the raw add-item input.
type NewItemForm struct {
	Name        string
	Price       string
	Description string
	Image       *ImageFile
}

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

// ValidationError is returned when the form cannot be submitted.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid form: " + strings.Join(keys, ", ")
}

// Validate checks the form and returns the trimmed payload without the image
// URL, which only exists after upload.
func (f NewItemForm) Validate() (NewItem, error) {
	errs := FieldErrors{}

	name := strings.TrimSpace(f.Name)
	if name == "" {
		errs[FieldName] = "Name is required"
	}

	price, ok := parsePrice(f.Price)
	if !ok {
		errs[FieldPrice] = "Valid price required"
	}

	desc := strings.TrimSpace(f.Description)
	if desc == "" {
		errs[FieldDescription] = "Description required"
	}

	switch {
	case f.Image == nil || len(f.Image.Data) == 0:
		errs[FieldImage] = "Please select an image"
	case !strings.HasPrefix(f.Image.ContentType, "image/"):
		errs[FieldImage] = "Please select an image file"
	}

	if len(errs) > 0 {
		return NewItem{}, &ValidationError{Fields: errs}
	}
	return NewItem{Name: name, Price: price, Description: desc}, nil
}

func parsePrice(s string) (float64, bool) {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, false
	}
	return p, true
}
