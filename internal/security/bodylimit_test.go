package security

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func limitedHandler(t *testing.T, max int64, body string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var captured string
	handler := BodyLimit{Max: max}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/carts", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, captured
}

func TestBodyLimitAllowsWithinLimit(t *testing.T) {
	rr, captured := limitedHandler(t, 32, `{"productId":"p-flower-eighth"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, `{"productId":"p-flower-eighth"}`, captured)
}

func TestBodyLimitRejectsOversized(t *testing.T) {
	rr, _ := limitedHandler(t, 5, "far too much payload")
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, "PAYLOAD_TOO_LARGE", envelope.Error.Code)
}

func TestBodyLimitRejectsDeclaredContentLength(t *testing.T) {
	handler := BodyLimit{Max: 5}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/carts", strings.NewReader("tiny"))
	req.ContentLength = 100
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}
