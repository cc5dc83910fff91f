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

package services

import (
	"net/http"

	"cruddemo/core/crud/adapters/rest"
	"cruddemo/modules/api/serde"
	"cruddemo/modules/middleware"

	"github.com/getkin/kin-openapi/openapi3"
)

// APIDocsPath serves the OpenAPI document as JSON.
const APIDocsPath = "/v3/api-docs"

// Mountable is a set of handlers that can add its routes to a mux.
type Mountable interface {
	Register(mux *http.ServeMux)
}

// CrudAPIService mounts the CRUD resource APIs and the health probe, and
// validates every request against the OpenAPI document.
type CrudAPIService struct {
	doc  *openapi3.T
	apis []Mountable
}

// NewCrudAPIService skips request validation when doc is nil.
func NewCrudAPIService(doc *openapi3.T, apis ...Mountable) *CrudAPIService {
	return &CrudAPIService{doc: doc, apis: apis}
}

func (s *CrudAPIService) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", rest.Healthz)
	if s.doc != nil {
		mux.HandleFunc("GET "+APIDocsPath, s.apiDocs)
	}
	for _, api := range s.apis {
		api.Register(mux)
	}
}

func (s *CrudAPIService) Middlewares() []func(http.Handler) http.Handler {
	if s.doc == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{
		middleware.OpenAPIValidation(s.doc),
	}
}

func (s *CrudAPIService) apiDocs(w http.ResponseWriter, _ *http.Request) {
	serde.WriteJSON(w, http.StatusOK, s.doc)
}
