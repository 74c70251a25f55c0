package guesswhat

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Bucket is the storage bucket holding all quiz media.
const Bucket = "quiz-uploads"

// Kind is the media folder a file lives in.
type Kind string

const (
	// KindThumbnail holds game cover images.
	KindThumbnail Kind = "thumbnail"

	// KindQuestion holds question and answer images.
	KindQuestion Kind = "question"
)

// Valid reports whether k is a known media kind.
func (k Kind) Valid() bool {
	return k == KindThumbnail || k == KindQuestion
}

// TempFolder is where freshly uploaded media of this kind lands.
func (k Kind) TempFolder() string {
	return "temp/" + string(k)
}

// FinalFolder is where promoted media of this kind lives.
func (k Kind) FinalFolder() string {
	return "final/" + string(k)
}

func publicPrefix(bucket string) string {
	return "/storage/v1/object/public/" + bucket + "/"
}

// PathFromURL returns the storage path of a public media URL. The second
// return is false when the URL does not belong to bucket.
func PathFromURL(url, bucket string) (string, bool) {
	prefix := publicPrefix(bucket)
	idx := strings.Index(url, prefix)
	if idx < 0 {
		return "", false
	}

	return url[idx+len(prefix):], true
}

// PublicURL builds the public URL of path in bucket. It is the inverse of
// PathFromURL.
func PublicURL(origin, bucket, path string) string {
	return strings.TrimRight(origin, "/") + publicPrefix(bucket) + path
}

// IsTemp reports whether a storage path is a provisional upload.
func IsTemp(p string) bool {
	return strings.HasPrefix(p, "temp/")
}

// UploadPath names a new upload of the given kind. The object name is a
// random UUID keeping the original file extension.
func UploadPath(kind Kind, filename string) string {
	ext := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i+1:]
	}
	ext = path.Base(ext)
	if ext == "." || ext == "/" {
		ext = "bin"
	}

	return kind.TempFolder() + "/" + uuid.NewString() + "." + ext
}
