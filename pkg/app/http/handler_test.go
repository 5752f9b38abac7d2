package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
)

func TestHandleError(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		msg    string
	}{
		"format":  {apperrors.FormatError(errors.New("bad hex"), "invalid note"), http.StatusBadRequest, "invalid note"},
		"spent":   {apperrors.AlreadySpentError(nil, "note has already been withdrawn"), http.StatusConflict, "note has already been withdrawn"},
		"general": {apperrors.GeneralError(errors.New("secret detail")), http.StatusInternalServerError, "Unexpected Service Error"},
		"plain":   {errors.New("boom"), http.StatusInternalServerError, "Unexpected Service Error"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := HandleError(func(http.ResponseWriter, *http.Request) error { return tc.err })
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.msg, body.ErrMsg)
			assert.Equal(t, tc.status, body.ErrMsgCode)
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}

func TestHandleError_Success(t *testing.T) {
	h := HandleError(func(w http.ResponseWriter, _ *http.Request) error {
		return WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
