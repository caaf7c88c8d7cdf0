// Package listsource opens FileListing documents from local files and
// S3 compatible object stores.
package listsource

import (
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sdejongh/dirlisting/pkg/metrics"
	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/ratelimit"
)

// S3Scheme prefixes listing names stored in a bucket: s3://bucket/key
const S3Scheme = "s3://"

// S3API is the part of the S3 client used to fetch listings
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener opens listings by name. Names ending in .bz2 are decompressed.
type Opener struct {
	// S3 fetches s3:// names; nil disables them
	S3 S3API

	// Limiter caps the bandwidth of raw streams; nil does not limit
	Limiter *ratelimit.Limiter

	// Wrap, if set, wraps the raw stream before decompression. size is
	// the stream length or -1 if unknown. Used for progress reporting.
	Wrap func(r io.Reader, size int64) io.Reader
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Open returns a reader of the uncompressed document named name
func (o *Opener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	start := time.Now()
	scheme := "file"
	if strings.HasPrefix(name, S3Scheme) {
		scheme = "s3"
	}

	rc, err := o.open(ctx, scheme, name)
	metrics.RecordSourceOpen(scheme, err == nil, time.Since(start))
	if err != nil {
		return nil, models.Unavailable("open", name, err)
	}
	return rc, nil
}

func (o *Opener) open(ctx context.Context, scheme, name string) (io.ReadCloser, error) {
	var (
		body io.ReadCloser
		size int64 = -1
	)

	switch scheme {
	case "s3":
		bucket, key, err := ParseS3Name(name)
		if err != nil {
			return nil, err
		}
		if o.S3 == nil {
			return nil, errors.New("no S3 client configured")
		}
		out, err := o.S3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("get object %s: %w", key, err)
		}
		body = out.Body
		if out.ContentLength != nil {
			size = *out.ContentLength
		}
	default:
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
		body = f
	}

	r := ratelimit.NewReader(ctx, body, o.Limiter)
	if o.Wrap != nil {
		r = o.Wrap(r, size)
	}
	if strings.HasSuffix(strings.ToLower(name), ".bz2") {
		r = bzip2.NewReader(r)
	}
	return readCloser{Reader: r, Closer: body}, nil
}

// ParseS3Name splits s3://bucket/key
func ParseS3Name(name string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(name, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an S3 name: %s", name)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 name %q, want s3://bucket/key", name)
	}
	return bucket, key, nil
}

// cidLength is the length of a base32 encoded client ID
const cidLength = 39

// UnknownNick is returned for list file names without a nick
const UnknownNick = "Unknown"

// stripExtensions removes a trailing .bz2 and then .xml
func stripExtensions(name string) string {
	for _, ext := range []string{".bz2", ".xml"} {
		if len(name) >= len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext) {
			name = name[:len(name)-len(ext)]
		}
	}
	return name
}

// NickFromFilename extracts the nick from a list file named
// [nick].[CID].xml or [nick].[CID].xml.bz2
func NickFromFilename(fileName string) string {
	name := stripExtensions(baseName(fileName))
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return UnknownNick
	}
	return name[:i]
}

// CIDFromFilename extracts the client ID from a list file name.
// It returns "" when the name carries no valid ID.
func CIDFromFilename(fileName string) string {
	name := stripExtensions(baseName(fileName))
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	cid := name[i+1:]
	if len(cid) != cidLength || strings.Trim(cid, "A") == "" {
		return ""
	}
	return cid
}

func baseName(name string) string {
	if strings.HasPrefix(name, S3Scheme) {
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			return name[i+1:]
		}
	}
	return filepath.Base(name)
}
