package file

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStorage struct {
	path        string
	contentType string
	data        []byte
}

func (s *recordingStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.path, s.contentType, s.data = key, contentType, data
	return key, nil
}

func (s *recordingStorage) Remove(ctx context.Context, key string) error { return nil }

func (s *recordingStorage) URL(key string) (string, error) {
	return "http://files/" + key, nil
}

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 8), uint8(y * 8), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadDisputeProof_ConvertsImagesToJPEG(t *testing.T) {
	store := &recordingStorage{}
	svc := NewFileService(store, 0)

	path, err := svc.UploadDisputeProof(context.Background(), "co-1", "emp-1", "att-1", bytes.NewReader(pngBytes(t)), "Proof.PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "disputes/co-1/emp-1/att-1-"))
	assert.True(t, strings.HasSuffix(path, ".jpg"))
	assert.Equal(t, "image/jpeg", store.contentType)

	_, format, err := image.Decode(bytes.NewReader(store.data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestUploadDisputeProof_StoresPDFAsIs(t *testing.T) {
	store := &recordingStorage{}
	svc := NewFileService(store, 0)

	_, err := svc.UploadDisputeProof(context.Background(), "co-1", "emp-1", "att-1", strings.NewReader("%PDF-1.4 letter"), "letter.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", store.contentType)
	assert.Equal(t, "%PDF-1.4 letter", string(store.data))
}

func TestUploadDisputeProof_Rejects(t *testing.T) {
	svc := NewFileService(&recordingStorage{}, 8)

	_, err := svc.UploadDisputeProof(context.Background(), "co-1", "emp-1", "att-1", strings.NewReader("x"), "run.exe")
	assert.ErrorIs(t, err, ErrInvalidFileType)

	_, err = svc.UploadDisputeProof(context.Background(), "co-1", "emp-1", "att-1", strings.NewReader("%PDF-1.4 too long"), "a.pdf")
	assert.ErrorIs(t, err, ErrFileTooLarge)
}
