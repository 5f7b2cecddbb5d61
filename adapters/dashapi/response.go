package dashapi

import (
	"io"
	"time"

	"github.com/goliatone/go-invoices/dashboard"
	"github.com/goliatone/go-invoices/session"
)

// Response provides a minimal response interface for transport adapters.
type Response interface {
	SetHeader(name, value string)
	DelHeader(name string)
	WriteHeader(status int)
	Write(data []byte) (int, error)
	WriteJSON(status int, payload any) error
	Writer() (io.Writer, bool)
}

// DownloadStreamer is implemented by responses that send an archived export
// straight from its reader. Download headers are set before the call; the
// streamer writes the status and body and closes body once it is sent.
type DownloadStreamer interface {
	StreamDownload(dl dashboard.Download, body io.Closer) error
}

// ErrorResponse describes JSON error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains error details.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SessionResponse describes the session endpoints. The token stays
// server-side.
type SessionResponse struct {
	Authenticated bool          `json:"isAuthenticated"`
	User          *session.User `json:"user,omitempty"`
}

// ExportResponse is written in place of the PDF when the client asks for
// JSON.
type ExportResponse struct {
	JobID    string    `json:"jobId"`
	Filename string    `json:"filename"`
	Bytes    int       `json:"bytes"`
	At       time.Time `json:"at"`
}
