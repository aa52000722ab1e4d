package control

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/yndnr/arsnap-go/internal/core/domain"
	"github.com/yndnr/arsnap-go/internal/core/service"
)

// Commands understood by the control socket.
const (
	CmdStart  = "start"
	CmdStop   = "stop"
	CmdStatus = "status"
	CmdReload = "reload"
)

// MaxLineLength bounds a request line, including the newline.
const MaxLineLength = 4096

// Response is the JSON line written for each request.
type Response struct {
	OK     bool                 `json:"ok"`
	Error  *ErrorBody           `json:"error,omitempty"`
	Status *service.Status      `json:"status,omitempty"`
	Flush  *service.FlushResult `json:"flush,omitempty"`
}

// ErrorBody carries a stable error code and a human message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Err returns the response error as a DomainError, or nil when OK.
func (r *Response) Err() error {
	if r.OK || r.Error == nil {
		return nil
	}
	return domain.NewDomainError(r.Error.Code, r.Error.Message)
}

// ParseRequest splits a request line into a lower-cased command and its
// argument. The argument is the rest of the line with surrounding space
// trimmed, so session names may contain spaces.
func ParseRequest(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	cmd, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

// FormatRequest builds a request line for cmd and an optional argument.
func FormatRequest(cmd, arg string) string {
	if arg == "" {
		return cmd + "\n"
	}
	return cmd + " " + arg + "\n"
}

func errorResponse(err error) Response {
	body := &ErrorBody{Code: domain.ErrInternal.Code, Message: err.Error()}

	var de *domain.DomainError
	if errors.As(err, &de) {
		body.Code = de.Code
		body.Message = de.Message
		if de.Details != "" {
			body.Message += ": " + de.Details
		}
		if de.Cause != nil {
			body.Message += ": " + de.Cause.Error()
		}
	}
	return Response{OK: false, Error: body}
}

func encodeResponse(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(errorResponse(domain.ErrInternal.WithCause(err)))
	}
	return append(data, '\n')
}
