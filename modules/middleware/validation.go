// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"cruddemo/modules/middleware/problem"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	nethttpmiddleware "github.com/oapi-codegen/nethttp-middleware"
)

// LoadOpenAPI reads and validates an OpenAPI document from fsys.
func LoadOpenAPI(ctx context.Context, fsys fs.FS, path string) (*openapi3.T, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: parse %s: %w", path, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: invalid document %s: %w", path, err)
	}
	return doc, nil
}

// OpenAPIValidation rejects requests that do not match doc with a 400 problem
// listing every violation. Requests to routes doc does not describe get a 404.
func OpenAPIValidation(doc *openapi3.T) func(http.Handler) http.Handler {
	return nethttpmiddleware.OapiRequestValidatorWithOptions(doc, &nethttpmiddleware.Options{
		Options:               openapi3filter.Options{MultiError: true},
		DoNotValidateServers:  true,
		SilenceServersWarning: true,
		ErrorHandlerWithOpts: func(ctx context.Context, err error, w http.ResponseWriter, r *http.Request, opts nethttpmiddleware.ErrorHandlerOpts) {
			status := opts.StatusCode
			if status == 0 {
				status = http.StatusBadRequest
			}
			slog.DebugContext(ctx, "request rejected by openapi validation",
				slog.Int("status", status),
				slog.Any("error", err),
			)

			if status != http.StatusBadRequest {
				problem.WriteRequest(w, r, problem.New(problem.WithStatus(status), problem.WithDetail(http.StatusText(status))))
				return
			}
			p := problem.BadRequest("request validation failed")
			for _, ve := range ExtractValidationErrors(err) {
				problem.WithInvalidParam(ve.Field, ve.Reason)(p)
			}
			problem.WriteRequest(w, r, p)
		},
	})
}

type ValidationError struct {
	Field  string
	Reason string
}

// ExtractValidationErrors flattens a kin-openapi error into per-field reasons.
// Reasons never echo request input back.
func ExtractValidationErrors(err error) []ValidationError {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		var out []ValidationError
		for _, item := range multi {
			out = append(out, ExtractValidationErrors(item)...)
		}
		return out
	}
	return []ValidationError{extractSingleError(err)}
}

func extractSingleError(err error) ValidationError {
	var re *openapi3filter.RequestError
	if errors.As(err, &re) {
		var se *openapi3.SchemaError
		if errors.As(re.Err, &se) {
			if re.Parameter != nil {
				return ValidationError{Field: re.Parameter.Name, Reason: se.Reason}
			}
			return ValidationError{Field: fieldFromPointer(se.JSONPointer()), Reason: se.Reason}
		}
		if re.Parameter != nil {
			return ValidationError{Field: re.Parameter.Name, Reason: SafeReason(re.Reason)}
		}
		return ValidationError{Field: "body", Reason: SafeReason(re.Reason)}
	}

	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		return ValidationError{Field: fieldFromPointer(se.JSONPointer()), Reason: se.Reason}
	}
	return ValidationError{Field: "request", Reason: "invalid value"}
}

func fieldFromPointer(ptr []string) string {
	if len(ptr) == 0 || ptr[0] == "" || ptr[0] == "0" {
		return "body"
	}
	return ptr[0]
}

func SafeReason(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case reason == "":
		return "invalid value"
	case strings.Contains(lower, "doesn't match schema"):
		return "doesn't match schema"
	case strings.Contains(lower, "must be one of"), strings.Contains(lower, "value is required"):
		return reason
	}
	return "invalid value"
}
