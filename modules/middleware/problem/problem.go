// Package problem writes RFC 7807 application/problem+json error documents.
package problem

import (
	"encoding/json"
	"net/http"

	"cruddemo/modules/middleware/requestid"
)

const ContentType = "application/problem+json"

type Problem struct {
	Code          *string         `json:"code,omitempty"`
	Detail        *string         `json:"detail,omitempty"`
	Instance      *string         `json:"instance,omitempty"`
	InvalidParams *[]InvalidParam `json:"invalidParams,omitempty"`
	Status        int             `json:"status"`
	Title         string          `json:"title"`
	TraceID       *string         `json:"traceId,omitempty"`
	Type          *string         `json:"type,omitempty"`

	// Extensions are merged into the top-level object; they never override a standard member.
	Extensions map[string]any `json:"-"`
}

type InvalidParam struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type Option func(*Problem)

func New(opts ...Option) *Problem {
	p := &Problem{
		Type:   strPtr("about:blank"),
		Status: http.StatusInternalServerError,
		Detail: strPtr("unhandled error"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
		if p.Title == "" {
			p.Title = "Unknown Error"
		}
	}
	return p
}

func Write(w http.ResponseWriter, p *Problem) {
	if p == nil {
		p = Internal("server error")
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteRequest fills instance and traceId from r before writing.
func WriteRequest(w http.ResponseWriter, r *http.Request, p *Problem) {
	if p == nil {
		p = Internal("server error")
	}
	if p.Instance == nil {
		p.Instance = strPtr(r.URL.Path)
	}
	if id := requestid.From(r.Context()); id != "" && p.TraceID == nil {
		p.TraceID = strPtr(id)
	}
	Write(w, p)
}

func WithStatus(status int) Option {
	return func(p *Problem) { p.Status = status }
}

func WithTitle(title string) Option {
	return func(p *Problem) { p.Title = title }
}

func WithDetail(detail string) Option {
	return func(p *Problem) { p.Detail = strPtr(detail) }
}

func WithType(typ string) Option {
	return func(p *Problem) { p.Type = strPtr(typ) }
}

func WithCode(code string) Option {
	return func(p *Problem) { p.Code = strPtr(code) }
}

func WithTraceID(traceID string) Option {
	return func(p *Problem) { p.TraceID = strPtr(traceID) }
}

func WithInvalidParam(name, reason string) Option {
	return func(p *Problem) {
		var s []InvalidParam
		if p.InvalidParams != nil {
			s = *p.InvalidParams
		}
		s = append(s, InvalidParam{Name: name, Reason: reason})
		p.InvalidParams = &s
	}
}

func WithExtension(key string, value any) Option {
	return func(p *Problem) {
		if p.Extensions == nil {
			p.Extensions = map[string]any{}
		}
		p.Extensions[key] = value
	}
}

func status(code int, detail string, opts []Option) *Problem {
	base := []Option{WithStatus(code), WithTitle(http.StatusText(code)), WithDetail(detail)}
	return New(append(base, opts...)...)
}

func BadRequest(detail string, opts ...Option) *Problem {
	return status(http.StatusBadRequest, detail, opts)
}

func NotFound(detail string, opts ...Option) *Problem {
	return status(http.StatusNotFound, detail, opts)
}

func MethodNotAllowed(detail string, opts ...Option) *Problem {
	return status(http.StatusMethodNotAllowed, detail, opts)
}

func TooManyRequests(detail string, opts ...Option) *Problem {
	return status(http.StatusTooManyRequests, detail, opts)
}

func Internal(detail string, opts ...Option) *Problem {
	return status(http.StatusInternalServerError, detail, opts)
}

func strPtr(s string) *string { return &s }

func (p Problem) MarshalJSON() ([]byte, error) {
	// alias drops the method set, otherwise json.Marshal would recurse into MarshalJSON
	type alias Problem
	base, err := json.Marshal(alias(p))
	if err != nil || len(p.Extensions) == 0 {
		return base, err
	}
	var m map[string]any
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range p.Extensions {
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return json.Marshal(m)
}
