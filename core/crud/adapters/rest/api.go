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

// Package rest exposes an Application over net/http.
package rest

import (
	"net/http"
	"slices"

	"cruddemo/core/crud/domain"
)

// API implements the REST handlers of one entity type. It acts as the REST
// adapter in the hexagonal architecture, translating HTTP requests into
// domain operations.
type API[T domain.Entity[T]] struct {
	app      *domain.Application[T]
	resource string
	// query parameter -> JSON attribute
	filters map[string]string
}

type Option func(*apiOptions)

type apiOptions struct {
	filters map[string]string
}

// WithQueryFilter lets GET /api/<resource>?param=value filter on attribute.
func WithQueryFilter(param, attribute string) Option {
	return func(o *apiOptions) {
		o.filters[param] = attribute
	}
}

// NewAPI mounts app under /api/<resource>.
func NewAPI[T domain.Entity[T]](app *domain.Application[T], resource string, opts ...Option) *API[T] {
	o := apiOptions{filters: map[string]string{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &API[T]{app: app, resource: resource, filters: o.filters}
}

func (a *API[T]) basePath() string {
	return "/api/" + a.resource
}

func (a *API[T]) Register(mux *http.ServeMux) {
	base := a.basePath()
	mux.HandleFunc("GET "+base, a.List)
	mux.HandleFunc("POST "+base, a.Create)
	mux.HandleFunc("PUT "+base, a.Replace)
	mux.HandleFunc("GET "+base+"/{id}", a.Get)
	mux.HandleFunc("PATCH "+base+"/{id}", a.Patch)
	mux.HandleFunc("DELETE "+base+"/{id}", a.Delete)
}

// filterFrom picks the first configured query parameter present in r.
func (a *API[T]) filterFrom(r *http.Request) domain.Filter {
	q := r.URL.Query()
	params := make([]string, 0, len(a.filters))
	for p := range a.filters {
		params = append(params, p)
	}
	slices.Sort(params)
	for _, p := range params {
		if q.Has(p) {
			return domain.Filter{Attribute: a.filters[p], Value: q.Get(p)}
		}
	}
	return domain.Filter{}
}
