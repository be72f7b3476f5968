package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loanform/loanform/internal/config"
	"github.com/loanform/loanform/internal/encrypt"
	"github.com/loanform/loanform/internal/logging"
)

var jpegContent = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("fake image content")...)

type stubResolver struct{}

func (stubResolver) HasMX(_ context.Context, domain string) (bool, error) {
	return domain == "example.com", nil
}

func setupTestApp(t *testing.T, mutate func(*Deps)) (*fiber.App, string) {
	t.Helper()

	key, err := encrypt.GenerateKey()
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "encryption.key")
	require.NoError(t, encrypt.WriteKeyFile(keyPath, key))

	uploadDir := t.TempDir()

	deps := Deps{
		Cfg: config.Config{
			AppName:      "loanform-test",
			KeyPath:      keyPath,
			UploadDir:    uploadDir,
			SubmitPerMin: 100,
		},
		Logger:   logging.Discard(),
		Resolver: stubResolver{},
	}
	if mutate != nil {
		mutate(&deps)
	}

	app := fiber.New(fiber.Config{BodyLimit: 8 << 20})
	require.NoError(t, Setup(app, deps))
	return app, uploadDir
}

type formInput struct {
	fullName   string
	email      string
	phone      string
	loanAmount string
	fileName   string
	fileBody   []byte
}

func validInput() formInput {
	return formInput{
		fullName:   "John Doe",
		email:      "john@example.com",
		phone:      "+37065456543",
		loanAmount: "1000",
		fileName:   "passport.jpg",
		fileBody:   jpegContent,
	}
}

func buildRequest(t *testing.T, in formInput) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("full_name", in.fullName))
	require.NoError(t, w.WriteField("email", in.email))
	require.NoError(t, w.WriteField("phone", in.phone))
	require.NoError(t, w.WriteField("loan_amount", in.loanAmount))
	if in.fileName != "" {
		part, err := w.CreateFormFile("file", in.fileName)
		require.NoError(t, err)
		_, err = part.Write(in.fileBody)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func postForm(t *testing.T, app *fiber.App, in formInput) (int, map[string]any, map[string]string) {
	t.Helper()

	body, contentType := buildRequest(t, in)
	req := httptest.NewRequest(fiber.MethodPost, "/", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)

	headers := map[string]string{
		fiber.HeaderContentType:  resp.Header.Get(fiber.HeaderContentType),
		fiber.HeaderCacheControl: resp.Header.Get(fiber.HeaderCacheControl),
		"Pragma":                 resp.Header.Get("Pragma"),
		"Expires":                resp.Header.Get("Expires"),
	}
	return resp.StatusCode, decoded, headers
}

func TestSubmitEndToEndSuccess(t *testing.T) {
	app, uploadDir := setupTestApp(t, nil)

	status, body, headers := postForm(t, app, validInput())

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", body["status"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data object: %v", body)
	assert.Equal(t, float64(1), data["user_id"])

	assert.Contains(t, headers[fiber.HeaderContentType], "application/json")
	assert.Equal(t, "no-cache, no-store, must-revalidate", headers[fiber.HeaderCacheControl])
	assert.Equal(t, "no-cache", headers["Pragma"])
	assert.Equal(t, "0", headers["Expires"])

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "passport_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".jpg"))

	stored, err := os.ReadFile(filepath.Join(uploadDir, entries[0].Name()))
	require.NoError(t, err)
	assert.NotEqual(t, jpegContent, stored, "stored file must be encrypted")
}

func TestSubmitEndToEndInvalidEmail(t *testing.T) {
	app, uploadDir := setupTestApp(t, nil)

	in := validInput()
	in.email = "not-an-email"
	status, body, _ := postForm(t, app, in)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, []any{"Invalid email address."}, body["errors"])

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file may be written for rejected input")
}

func TestSubmitEndToEndDuplicateEmail(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	status, _, _ := postForm(t, app, validInput())
	require.Equal(t, fiber.StatusOK, status)

	status, body, _ := postForm(t, app, validInput())
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "User with this email already exists.", body["message"])
}

func TestSubmitEndToEndMissingFile(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	in := validInput()
	in.fileName = ""
	status, body, _ := postForm(t, app, in)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{"File is required."}, body["errors"])
}

func TestSubmitRejectsNonMultipartBody(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	req := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(`{"full_name":"John Doe"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, []any{"Invalid input or keys"}, body["errors"])
}

func TestInfoPageAndMethodNotAllowed(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPut, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSubmitRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app, _ := setupTestApp(t, func(d *Deps) {
		d.Cache = cache
		d.Cfg.SubmitPerMin = 2
	})

	in := validInput()
	for i := 0; i < 2; i++ {
		in.email = "john@example.com"
		if i == 1 {
			in.email = "jane@example.com"
		}
		status, _, _ := postForm(t, app, in)
		require.Equal(t, fiber.StatusOK, status, "request %d should pass the limiter", i+1)
	}

	body, contentType := buildRequest(t, validInput())
	req := httptest.NewRequest(fiber.MethodPost, "/", body)
	req.Header.Set(fiber.HeaderContentType, contentType)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
