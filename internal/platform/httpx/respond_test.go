package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProblemUsesProblemJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusConflict, "Conflict", "entry already void")

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Conflict", body.Title)
	require.Equal(t, "about:blank", body.Type)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct{ Memo string }
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Memo":"rent"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	require.Equal(t, "rent", dst.Memo)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Memo":"a"}{"Memo":"b"}`))
	require.Error(t, DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.EqualError(t, DecodeJSON(req, &dst), "empty body")
}
