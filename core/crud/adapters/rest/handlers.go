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
	"fmt"
	"net/http"

	"cruddemo/modules/api/serde"
	"cruddemo/modules/etag"
)

// List returns every entity, or those matching a configured query filter.
func (a *API[T]) List(w http.ResponseWriter, r *http.Request) {
	all, err := a.app.List(r.Context(), a.filterFrom(r))
	if err != nil {
		a.writeError(w, r, err, 0)
		return
	}
	serde.WriteJSON(w, http.StatusOK, all)
}

func (a *API[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := a.app.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err, id)
		return
	}
	if tag, err := etag.Of(e); err == nil {
		w.Header().Set("ETag", tag)
		if etag.Match(r.Header.Get("If-None-Match"), tag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	serde.WriteJSON(w, http.StatusOK, e)
}

// Create ignores any id in the body; the store assigns a fresh one.
func (a *API[T]) Create(w http.ResponseWriter, r *http.Request) {
	var in T
	if err := serde.ParseJsonBody(r.Body, &in); err != nil {
		writeBadBody(w, r, err)
		return
	}
	saved, err := a.app.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err, 0)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/%d", a.basePath(), saved.PrimaryKey()))
	serde.WriteJSON(w, http.StatusCreated, saved)
}

// Replace overwrites the entity named by the id in the body.
func (a *API[T]) Replace(w http.ResponseWriter, r *http.Request) {
	var in T
	if err := serde.ParseJsonBody(r.Body, &in); err != nil {
		writeBadBody(w, r, err)
		return
	}
	saved, err := a.app.Replace(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err, in.PrimaryKey())
		return
	}
	serde.WriteJSON(w, http.StatusOK, saved)
}

// Patch merges a flat JSON object into the stored entity.
func (a *API[T]) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	payload, err := serde.ParseJsonObject(r.Body)
	if err != nil {
		writeBadBody(w, r, err)
		return
	}
	saved, err := a.app.Patch(r.Context(), id, payload)
	if err != nil {
		a.writeError(w, r, err, id)
		return
	}
	serde.WriteJSON(w, http.StatusOK, saved)
}

func (a *API[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.app.Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err, id)
		return
	}
	serde.WriteText(w, http.StatusOK, fmt.Sprintf("%s with id %d deleted successfully", a.app.Name(), id))
}
