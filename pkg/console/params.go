package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
)

var errBodyTooLarge = errors.New("request body too large")

// multipartMemory bounds the multipart form parts kept in memory. Files
// are never needed, so anything larger than this is ignored.
const multipartMemory = 1 << 20

// readParams collects the request parameters from the URL query and the
// body. Body values take precedence. The body is restored so the wrapped
// handler can read it again.
func (e *Endpoint) readParams(r *http.Request) (url.Values, error) {
	params := url.Values{}
	for k, v := range r.URL.Query() {
		params[k] = v
	}

	if r.Body == nil || r.Body == http.NoBody {
		return params, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, e.maxBodySize+1))
	if err != nil {
		restoreBody(r, body)
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > e.maxBodySize {
		restoreBody(r, body)
		return nil, errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	bodyParams, err := parseBody(r.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}
	for k, v := range bodyParams {
		params[k] = v
	}
	return params, nil
}

// restoreBody puts the consumed prefix back in front of the unread rest.
func restoreBody(r *http.Request, prefix []byte) {
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(prefix), r.Body), r.Body}
}

func parseBody(contentType string, body []byte) (url.Values, error) {
	if len(body) == 0 {
		return nil, nil
	}

	mediaType, ctParams, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Clients posting without a content type most likely sent a form.
		mediaType = "application/x-www-form-urlencoded"
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("parsing form body: %w", err)
		}
		return values, nil

	case "multipart/form-data":
		boundary := ctParams["boundary"]
		if boundary == "" {
			return nil, errors.New("multipart body without boundary")
		}
		form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(multipartMemory)
		if err != nil {
			return nil, fmt.Errorf("parsing multipart body: %w", err)
		}
		defer func() { _ = form.RemoveAll() }()
		return url.Values(form.Value), nil

	case "application/json":
		return parseJSONBody(body)
	}

	return nil, nil
}

// parseJSONBody accepts a flat JSON object. Scalars are converted to their
// text form; nested values are ignored.
func parseJSONBody(body []byte) (url.Values, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing JSON body: %w", err)
	}

	values := url.Values{}
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			values.Set(k, v)
		case json.Number:
			values.Set(k, v.String())
		case bool:
			values.Set(k, fmt.Sprint(v))
		}
	}
	return values, nil
}
