package console

import "net/http"

// discardWriter swallows the wrapped handler's response for requests the
// console answers itself.
type discardWriter struct {
	header http.Header
}

func newDiscardWriter() *discardWriter {
	return &discardWriter{header: http.Header{}}
}

func (d *discardWriter) Header() http.Header { return d.header }

func (d *discardWriter) Write(b []byte) (int, error) { return len(b), nil }

func (d *discardWriter) WriteHeader(int) {}

// Flush lets streaming handlers run to completion.
func (d *discardWriter) Flush() {}
