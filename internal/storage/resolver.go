package storage

import (
	"net/url"
	"strings"
)

// DefaultBucket holds proof files in object storage.
const DefaultBucket = "issue-proofs"

// ObjectStore computes public URLs for object keys.
type ObjectStore interface {
	PublicURL(bucket, key string) string
}

// PublicURLBuilder derives object URLs from a storage base URL without any
// network call, in the {base}/storage/v1/object/public/{bucket}/{key} layout.
type PublicURLBuilder struct {
	base string
}

// NewPublicURLBuilder trims trailing slashes from base.
func NewPublicURLBuilder(base string) PublicURLBuilder {
	return PublicURLBuilder{base: strings.TrimRight(base, "/")}
}

// PublicURL implements ObjectStore.
func (b PublicURLBuilder) PublicURL(bucket, key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.base + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// Resolver turns a stored proof reference into a URL a browser can open.
type Resolver struct {
	objects ObjectStore
	bucket  string
}

// NewResolver uses DefaultBucket when bucket is empty.
func NewResolver(objects ObjectStore, bucket string) *Resolver {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Resolver{objects: objects, bucket: bucket}
}

// Resolve returns absolute paths unchanged, roots "uploads..." paths, and
// hands anything else to the object store as a key.
func (r *Resolver) Resolve(ref string) string {
	switch {
	case strings.HasPrefix(ref, "/"):
		return ref
	case strings.HasPrefix(ref, "uploads"):
		return "/" + ref
	default:
		return r.objects.PublicURL(r.bucket, ref)
	}
}
