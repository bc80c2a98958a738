package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animstudio/contentsync/pkg/contentsync"
	"github.com/animstudio/contentsync/pkg/contentsync/probe"
	repomemory "github.com/animstudio/contentsync/pkg/contentsync/repo/memory"
	memorystorage "github.com/animstudio/contentsync/pkg/contentsync/storage/memory"
)

func newAssetServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc, err := contentsync.New(
		contentsync.WithRepository(repomemory.New()),
		contentsync.WithBlobStore(memorystorage.New()),
		contentsync.WithImageProber(probe.New()),
	)
	require.NoError(t, err)

	server := httptest.NewServer(NewAssetHandler(svc, nil).Routes())
	t.Cleanup(server.Close)
	return server
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func uploadAsset(t *testing.T, server *httptest.Server, filename string, content []byte, fields map[string]string) *http.Response {
	t.Helper()

	body, contentType := multipartUpload(t, filename, content, fields)
	resp, err := http.Post(server.URL+"/", contentType, body)
	require.NoError(t, err)
	return resp
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 12, 8))))
	return buf.Bytes()
}

func TestUploadAsset(t *testing.T) {
	server := newAssetServer(t)

	resp := uploadAsset(t, server, "scene art.png", smallPNG(t), map[string]string{"type": "background"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var asset AssetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asset))
	assert.Equal(t, "scene_art.png", asset.StorageKey)
	assert.Equal(t, "background", asset.Class)
	require.NotNil(t, asset.Width)
	assert.Equal(t, 12, *asset.Width)
	require.NotNil(t, asset.Height)
	assert.Equal(t, 8, *asset.Height)
}

func TestUploadAssetDefaultsToUploadClass(t *testing.T) {
	server := newAssetServer(t)

	resp := uploadAsset(t, server, "clip.gif", []byte("gifdata"), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var asset AssetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asset))
	assert.Equal(t, "upload", asset.Class)
}

func TestUploadAssetRejectsExtension(t *testing.T) {
	server := newAssetServer(t)

	resp := uploadAsset(t, server, "layer.txt", []byte("text"), map[string]string{"type": "overlay"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadAssetWithProject(t *testing.T) {
	server := newAssetServer(t)
	projectID := uuid.New()

	resp := uploadAsset(t, server, "prop.png", smallPNG(t), map[string]string{
		"type":       "upload",
		"project_id": projectID.String(),
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var asset AssetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asset))
	assert.Equal(t, projectID.String(), asset.ProjectID)
}

func TestUploadAssetInvalidProject(t *testing.T) {
	server := newAssetServer(t)

	resp := uploadAsset(t, server, "prop.png", smallPNG(t), map[string]string{
		"project_id": "not-a-uuid",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadAssetMissingFile(t *testing.T) {
	server := newAssetServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("type", "upload"))
	require.NoError(t, writer.Close())

	resp, err := http.Post(server.URL+"/", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDownloadAsset(t *testing.T) {
	server := newAssetServer(t)
	content := smallPNG(t)

	resp := uploadAsset(t, server, "scene.png", content, map[string]string{"type": "background"})
	var asset AssetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asset))
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/" + asset.ID + "/content")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestGetAssetNotFound(t *testing.T) {
	server := newAssetServer(t)

	resp, err := http.Get(server.URL + "/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetAssetInvalidID(t *testing.T) {
	server := newAssetServer(t)

	resp, err := http.Get(server.URL + "/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteAsset(t *testing.T) {
	server := newAssetServer(t)

	resp := uploadAsset(t, server, "scene.png", smallPNG(t), map[string]string{"type": "background"})
	var asset AssetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asset))
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/"+asset.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(server.URL + "/" + asset.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListAssets(t *testing.T) {
	server := newAssetServer(t)

	for _, name := range []string{"a.png", "b.png"} {
		resp := uploadAsset(t, server, name, smallPNG(t), map[string]string{"type": "background"})
		resp.Body.Close()
	}

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var assets []AssetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&assets))
	assert.Len(t, assets, 2)
}
