package apiclient

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyJSON
	bodyMultipart
	bodyRaw
)

// Request describes one API call relative to the client's base URL. Bodies
// are held as bytes so the request can be sent a second time after a
// token refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header

	body        []byte
	kind        bodyKind
	contentType string
	retried     bool
}

// NewRequest builds a request with no body
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path, Header: http.Header{}}
}

// NewJSONRequest builds a request with payload encoded as JSON
func NewJSONRequest(method, path string, payload any) (*Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "[NewJSONRequest] encode payload")
	}
	r := NewRequest(method, path)
	r.body = body
	r.kind = bodyJSON
	r.contentType = "application/json"
	return r, nil
}

// NewMultipartRequest builds a request carrying form as multipart/form-data
func NewMultipartRequest(method, path string, form *MultipartForm) (*Request, error) {
	body, contentType, err := form.encode()
	if err != nil {
		return nil, errors.Wrap(err, "[NewMultipartRequest] encode form")
	}
	r := NewRequest(method, path)
	r.body = body
	r.kind = bodyMultipart
	r.contentType = contentType
	return r, nil
}

// NewRawRequest builds a request with an opaque body. An empty contentType
// leaves the header unset.
func NewRawRequest(method, path, contentType string, body []byte) *Request {
	r := NewRequest(method, path)
	r.body = body
	r.kind = bodyRaw
	r.contentType = contentType
	return r
}

func (r *Request) retry() *Request {
	clone := *r
	clone.Header = r.Header.Clone()
	clone.retried = true
	return &clone
}

func (r *Request) bodyReader() io.Reader {
	if r.kind == bodyNone {
		return nil
	}
	return bytes.NewReader(r.body)
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

// MultipartForm collects fields and files for NewMultipartRequest
type MultipartForm struct {
	fields [][2]string
	files  []formFile
}

func (f *MultipartForm) AddField(name, value string) {
	f.fields = append(f.fields, [2]string{name, value})
}

// AddFile reads r fully and attaches it under field
func (f *MultipartForm) AddFile(field, filename string, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "[AddFile] read %s", filename)
	}
	f.files = append(f.files, formFile{field: field, filename: filename, content: content})
	return nil
}

func (f *MultipartForm) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, kv := range f.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.field, file.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
