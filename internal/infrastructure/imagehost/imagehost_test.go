package imagehost

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/infrastructure/config"
)

func TestImgBBUpload(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		assert.Equal(t, "soup.png", header.Filename)
		assert.Equal(t, "PNGDATA", string(data))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"status":  200,
			"data": map[string]interface{}{
				"display_url": "https://i.example/soup.png",
				"delete_url":  "https://example/delete/abc",
				"url_viewer":  "https://example/abc",
				"thumb":       map[string]string{"url": "https://i.example/t/soup.png"},
			},
		})
	}))
	defer server.Close()

	host := NewImgBB(config.ImageHostConfig{
		UploadURL:     server.URL + "/1/upload",
		APIKey:        "secret",
		Timeout:       5 * time.Second,
		MaxUploadSize: 1024,
	}, zap.NewNop())

	// Act
	urls, err := host.Upload(context.Background(), "soup.png", strings.NewReader("PNGDATA"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, recipe.ImageURLs{
		Display:   "https://i.example/soup.png",
		Delete:    "https://example/delete/abc",
		Thumbnail: "https://i.example/t/soup.png",
		Viewer:    "https://example/abc",
	}, urls)
	assert.NoError(t, host.Delete(context.Background(), urls))
}

func TestImgBBErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"status":400,"error":{"message":"Invalid API v1 key."}}`))
	}))
	defer server.Close()

	host := NewImgBB(config.ImageHostConfig{UploadURL: server.URL, MaxUploadSize: 4}, zap.NewNop())

	_, err := host.Upload(context.Background(), "a.png", strings.NewReader("abc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API v1 key.")

	_, err = host.Upload(context.Background(), "a.png", strings.NewReader("too large"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(data)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3UploadAndDelete(t *testing.T) {
	// Arrange
	fake := &fakeS3{objects: map[string]string{}}
	server := httptest.NewServer(fake)
	defer server.Close()

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String("eu-central-1"),
		Endpoint:         aws.String(server.URL),
		S3ForcePathStyle: aws.Bool(true),
		Credentials:      credentials.NewStaticCredentials("AKID", "SECRET", ""),
	})
	require.NoError(t, err)
	host := NewS3WithClient(s3.New(sess), "pics", "https://cdn.example/", zap.NewNop())

	// Act
	urls, err := host.Upload(context.Background(), "Soup.JPG", strings.NewReader("jpeg"))

	// Assert
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(urls.Display, "https://cdn.example/recipes/"))
	assert.True(t, strings.HasSuffix(urls.Display, ".jpg"))
	assert.True(t, strings.HasPrefix(urls.Delete, "s3://pics/recipes/"))
	require.Len(t, fake.objects, 1)

	require.NoError(t, host.Delete(context.Background(), urls))
	assert.Empty(t, fake.objects)

	// Foreign delete URLs are ignored.
	assert.NoError(t, host.Delete(context.Background(), recipe.ImageURLs{Delete: "https://ibb.co/x"}))
}

func TestParseS3URL(t *testing.T) {
	bucket, key, ok := parseS3URL("s3://pics/recipes/a.png")
	assert.True(t, ok)
	assert.Equal(t, "pics", bucket)
	assert.Equal(t, "recipes/a.png", key)

	_, _, ok = parseS3URL("s3://pics")
	assert.False(t, ok)
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := &config.Config{ImageHost: config.ImageHostConfig{Provider: "none"}}
	host, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	_, err = host.Upload(context.Background(), "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrDisabled)

	cfg.ImageHost.Provider = "imgbb"
	host, err = New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &ImgBB{}, host)

	cfg.ImageHost.Provider = "ftp"
	_, err = New(cfg, zap.NewNop())
	assert.Error(t, err)
}
