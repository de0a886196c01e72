package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"insurledger-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// Actor is the caller identity used by handler tests.
const Actor = "adjuster-1"

// NewApp returns a Fiber app with the production error handler and actor middleware.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(nil)})
	app.Use(middleware.Actor())
	return app
}

// JSONRequest builds a request with a JSON body and the test actor header.
func JSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, Actor)
	return req
}

// UploadRequest builds a multipart request with one file and extra form fields.
func UploadRequest(t *testing.T, path, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(middleware.ActorHeader, Actor)
	return req
}

// Do runs req against app and decodes the JSON envelope.
func Do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(b) > 0 {
		require.NoError(t, json.Unmarshal(b, &out), string(b))
	}
	return resp.StatusCode, out
}

// Data returns the "data" object of a success envelope.
func Data(t *testing.T, out map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := out["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", out)
	return d
}

// ErrorKind returns details.kind of an error envelope.
func ErrorKind(t *testing.T, out map[string]interface{}) string {
	t.Helper()
	e, ok := out["error"].(map[string]interface{})
	require.True(t, ok, "not an error envelope: %v", out)
	d, _ := e["details"].(map[string]interface{})
	k, _ := d["kind"].(string)
	return k
}
