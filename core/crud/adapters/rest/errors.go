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

package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"cruddemo/core/crud/domain"
	"cruddemo/modules/middleware/problem"
)

// problemFromDomainError maps domain errors to problem details. Field errors
// in err are listed as invalidParams.
func problemFromDomainError(err error, detail string) *problem.Problem {
	var p *problem.Problem
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p = problem.NotFound(detail)
	case errors.Is(err, domain.ErrForbiddenField),
		errors.Is(err, domain.ErrInvalidData),
		errors.Is(err, domain.ErrUnsupported):
		p = problem.BadRequest(detail)
	default:
		return problem.Internal("server error")
	}
	for _, fe := range domain.FieldErrors(err) {
		problem.WithInvalidParam(fe.Field, fe.Reason)(p)
	}
	return p
}

func (a *API[T]) writeError(w http.ResponseWriter, r *http.Request, err error, id int) {
	slog.DebugContext(r.Context(), "domain error", slog.String("entity", a.app.Name()), slog.Any("error", err))

	var detail string
	switch {
	case errors.Is(err, domain.ErrNotFound):
		detail = fmt.Sprintf("%s with id %d not found", a.app.Name(), id)
	case errors.Is(err, domain.ErrForbiddenField):
		detail = fmt.Sprintf("%s id not allowed in request body - %d", a.app.Name(), id)
	case errors.Is(err, domain.ErrUnsupported):
		detail = "unsupported filter"
	default:
		detail = "validation failed"
	}
	problem.WriteRequest(w, r, problemFromDomainError(err, detail))
}

func writeBadBody(w http.ResponseWriter, r *http.Request, err error) {
	slog.DebugContext(r.Context(), "malformed body", slog.Any("error", err))
	p := problem.BadRequest("malformed request body")
	problem.WithInvalidParam("body", "invalid JSON")(p)
	problem.WriteRequest(w, r, p)
}

// pathID reads the {id} wildcard; ok is false after a 400 has been written.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		p := problem.BadRequest("invalid id")
		problem.WithInvalidParam("id", "must be an integer")(p)
		problem.WriteRequest(w, r, p)
		return 0, false
	}
	return id, true
}
