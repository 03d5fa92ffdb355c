// Package storage holds the blob bucket that listing images and profile
// avatars are uploaded to. Two implementations exist: S3Bucket for any
// S3-compatible service and DiskBucket for single-host deployments and tests.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path under which stored objects are publicly
// readable. It mirrors the hosted object-storage layout the front end was
// written against, so stored paths stay portable between backends.
const PublicPrefix = "/storage/v1/object/public/storage/"

// Folders objects are filed under.
const (
	FolderImages  = "images"
	FolderAvatars = "avatars"
)

// Bucket stores and removes objects by path.
type Bucket interface {
	Upload(ctx context.Context, objectPath string, body io.Reader, contentType string) error
	// Remove deletes every path in one call. Missing objects are not an error.
	Remove(ctx context.Context, objectPaths []string) error
}

// PublicURL builds the public URL of a stored object.
func PublicURL(baseURL, objectPath string) string {
	return strings.TrimSuffix(baseURL, "/") + PublicPrefix + strings.TrimPrefix(objectPath, "/")
}

// PublicURLs maps PublicURL over a list of paths.
func PublicURLs(baseURL string, objectPaths []string) []string {
	urls := make([]string, len(objectPaths))
	for i, p := range objectPaths {
		urls[i] = PublicURL(baseURL, p)
	}
	return urls
}

// ObjectName returns a fresh collision-free path inside folder, keeping the
// extension of the uploaded file name: "images/3f1c...e2.png".
func ObjectName(folder, filename string) string {
	return folder + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
}
