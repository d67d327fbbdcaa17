// Package storage resolves dataset locations to byte streams. A location is a
// local path or an s3://bucket/key object.
package storage

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidLocation is returned for a location that cannot be parsed
var ErrInvalidLocation = errors.New("invalid location")

const s3Scheme = "s3://"

// Location is a parsed dataset location
type Location struct {
	Bucket string // empty for local paths
	Key    string
	Path   string
}

// IsS3 reports whether the location is an object in a bucket
func (l Location) IsS3() bool {
	return l.Bucket != ""
}

// Name is the final element of the location, used for format detection
func (l Location) Name() string {
	if l.IsS3() {
		return path.Base(l.Key)
	}
	return filepath.Base(l.Path)
}

func (l Location) String() string {
	if l.IsS3() {
		return s3Scheme + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// Join appends a name to the location key or path
func (l Location) Join(name string) Location {
	if l.IsS3() {
		return Location{Bucket: l.Bucket, Key: strings.TrimPrefix(path.Join(l.Key, name), "/")}
	}
	return Location{Path: filepath.Join(l.Path, name)}
}

// ParseLocation parses a local path or an s3://bucket/key URL
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrInvalidLocation)
	}

	if !strings.HasPrefix(strings.ToLower(raw), s3Scheme) {
		return Location{Path: raw}, nil
	}

	rest := raw[len(s3Scheme):]
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("%w: %q has no bucket", ErrInvalidLocation, raw)
	}

	return Location{Bucket: bucket, Key: strings.Trim(key, "/")}, nil
}
