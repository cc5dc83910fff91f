package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cruddemo/modules/middleware/problem"

	"github.com/stretchr/testify/assert"
)

func TestRecovery_WritesProblem(t *testing.T) {
	t.Parallel()

	h := Recovery(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/employees", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRecovery_CustomHandler(t *testing.T) {
	t.Parallel()

	var got any
	h := Recovery(func(w http.ResponseWriter, _ *http.Request, recovered any) {
		got = recovered
		w.WriteHeader(http.StatusTeapot)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(42)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 42, got)
}

func TestRecovery_RepanicsAbort(t *testing.T) {
	t.Parallel()

	h := Recovery(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
