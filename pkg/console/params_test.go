package console

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        map[string]string
		wantErr     bool
	}{
		{
			name:        "form",
			contentType: "application/x-www-form-urlencoded",
			body:        "query=1%2B1&token=t",
			want:        map[string]string{"query": "1+1", "token": "t"},
		},
		{
			name: "missing content type treated as form",
			body: "query=x",
			want: map[string]string{"query": "x"},
		},
		{
			name:        "json scalars",
			contentType: "application/json",
			body:        `{"query": "a", "n": 12.5, "b": true, "nested": {"x": 1}}`,
			want:        map[string]string{"query": "a", "n": "12.5", "b": "true"},
		},
		{
			name:        "invalid json",
			contentType: "application/json",
			body:        `{"query":`,
			wantErr:     true,
		},
		{
			name:        "multipart without boundary",
			contentType: "multipart/form-data",
			body:        "x",
			wantErr:     true,
		},
		{
			name:        "other media types carry no params",
			contentType: "text/plain",
			body:        "query=x",
			want:        map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBody(tt.contentType, []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBody() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Errorf("parseBody() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got.Get(k) != v {
					t.Errorf("%s = %q, want %q", k, got.Get(k), v)
				}
			}
		})
	}
}

func TestReadParams_BodyOverridesQuery(t *testing.T) {
	e := New(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodPost, "/console?query=url&extra=1", strings.NewReader("query=body"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	params, err := e.readParams(req)
	if err != nil {
		t.Fatalf("readParams() error: %v", err)
	}
	if params.Get("query") != "body" {
		t.Errorf("query = %q, want body value", params.Get("query"))
	}
	if params.Get("extra") != "1" {
		t.Errorf("extra = %q, want query value", params.Get("extra"))
	}
}
