package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Import for PNG decoding support
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

var (
	ErrInvalidFileType = errors.New("invalid file type: only jpg, jpeg, png, pdf allowed")
	ErrFileTooLarge    = errors.New("file exceeds the maximum allowed size")
)

type FileService interface {
	// UploadDisputeProof stores evidence attached to an attendance dispute and returns its storage path.
	UploadDisputeProof(ctx context.Context, companyID, employeeID, attemptID string, file io.Reader, filename string) (string, error)

	DeleteProof(ctx context.Context, path string) error
	ProofURL(path string) (string, error)
}

type fileServiceImpl struct {
	store   storage.ProofStore
	maxSize int64
}

func NewFileService(store   storage.ProofStore, maxSize int64) FileService {
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	return &fileServiceImpl{
		store:   store,
		maxSize: maxSize,
	}
}

// UploadDisputeProof accepts photos and PDFs. Photos are recompressed to JPEG of at most 150KB.
func (s *fileServiceImpl) UploadDisputeProof(ctx context.Context, companyID, employeeID, attemptID string, file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".pdf" {
		return "", ErrInvalidFileType
	}

	buffer, err := io.ReadAll(io.LimitReader(file, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read proof: %w", err)
	}
	if int64(len(buffer)) > s.maxSize {
		return "", ErrFileTooLarge
	}

	contentType := "application/pdf"
	if ext != ".pdf" {
		buffer, err = compressImage(buffer, 150*1024)
		if err != nil {
			return "", fmt.Errorf("failed to compress image: %w", err)
		}
		ext = ".jpg"
		contentType = "image/jpeg"
	}

	// disputes/{company}/{employee}/{attempt}-{uuid}.ext
	newFilename := fmt.Sprintf("%s-%s%s", attemptID, uuid.New().String(), ext)
	path := filepath.Join("disputes", companyID, employeeID, newFilename)

	uploadedPath, err := s.store.Put(ctx, path, bytes.NewReader(buffer), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload dispute proof: %w", err)
	}

	return uploadedPath, nil
}

func (s *fileServiceImpl) DeleteProof(ctx context.Context, path string) error {
	return s.store.Remove(ctx, path)
}

func (s *fileServiceImpl) ProofURL(path string) (string, error) {
	return s.store.URL(path)
}

// ==================== HELPER FUNCTIONS ====================

// compressImage re-encodes an image as JPEG until it is at most maxSize, lowering quality
// first and resizing only as a last step.
func compressImage(buffer []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	quality := 85
	var compressed []byte
	for quality >= 50 {
		buf := new(bytes.Buffer)
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
		compressed = buf.Bytes()

		if len(compressed) <= maxSize {
			return compressed, nil
		}
		quality -= 5
	}

	// target the middle of the range
	bounds := img.Bounds()
	ratio := math.Sqrt(float64(100*1024) / float64(len(compressed)))
	newWidth := max(int(float64(bounds.Dx())*ratio), 600)
	newHeight := max(int(float64(bounds.Dy())*ratio), 400)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, resizeImage(img, newWidth, newHeight), &jpeg.Options{Quality: 70}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeImage scales with CatmullRom interpolation
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
