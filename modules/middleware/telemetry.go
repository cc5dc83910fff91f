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
	"net/http"
	"strconv"
	"strings"
	"time"

	"cruddemo/modules/telemetry"
)

type responseRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.statusCode = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytesWritten += int64(n)
	return n, err
}

// Telemetry records request metrics for everything served by mux, including
// responses written by other middlewares. Endpoints are labelled by their mux
// pattern to keep cardinality bounded; unmatched requests use "unmatched".
//
// Place it first in the chain.
func Telemetry(metrics *telemetry.HTTPMetrics, mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			endpoint := "unmatched"
			if _, pattern := mux.Handler(r); pattern != "" {
				if _, path, ok := strings.Cut(pattern, " "); ok {
					pattern = path
				}
				endpoint = pattern
			}

			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			metrics.RecordRequest(
				r.Context(),
				r.Method,
				endpoint,
				strconv.Itoa(rec.statusCode),
				float64(time.Since(start).Milliseconds()),
				rec.bytesWritten,
			)
		})
	}
}
