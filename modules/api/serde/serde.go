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

package serde

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var (
	ErrTrailingData = errors.New("serde: unexpected data after JSON value")
	ErrNotObject    = errors.New("serde: body is not a JSON object")
)

// ParseJsonBody decodes exactly one JSON value into valuePtr, rejecting
// fields valuePtr does not declare.
func ParseJsonBody[T any](body io.ReadCloser, valuePtr *T) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(valuePtr); err != nil {
		return err
	}
	if dec.More() {
		return ErrTrailingData
	}
	return nil
}

// ParseJsonObject decodes a single JSON object keeping numbers as json.Number,
// so integers survive without a float64 round trip.
func ParseJsonObject(body io.ReadCloser) (map[string]any, error) {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, ErrTrailingData
	}
	if obj == nil {
		return nil, ErrNotObject
	}
	return obj, nil
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, s)
}
