package repository

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ImagesRepository stores verification captures (face / ID card) in GridFS.
type ImagesRepository struct {
	bucket *gridfs.Bucket
}

func NewImagesRepository(bucket *gridfs.Bucket) *ImagesRepository {
	return &ImagesRepository{
		bucket: bucket,
	}
}

// SaveImage stores one capture and returns a stable URL path for it.
func (r *ImagesRepository) SaveImage(token, imageType string, preview bool, data io.Reader) (string, error) {
	filename := fmt.Sprintf("%s-%s-%d", token, imageType, time.Now().UnixMilli())
	opts := options.GridFSUpload().SetMetadata(bson.M{
		"token":     token,
		"type":      imageType,
		"isPreview": preview,
	})

	id, err := r.bucket.UploadFromStream(filename, data, opts)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	return fmt.Sprintf("/api/v1/uploads/%s", id.Hex()), nil
}

// ReadImage streams a stored capture back by its hex object id.
func (r *ImagesRepository) ReadImage(idHex string) ([]byte, error) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, fmt.Errorf("invalid image id: %w", err)
	}

	var buf bytes.Buffer
	if _, err := r.bucket.DownloadToStream(id, &buf); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return buf.Bytes(), nil
}
