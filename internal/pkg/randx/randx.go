/*
Package randx generates identifiers: opaque connection ids and
collision-resistant file names for uploaded images.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the alphabet used for random suffixes.
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the alphabet size.
	Base62Len = int64(len(Base62Chars))

	// FileSuffixLength is the number of random characters after the timestamp in an upload name.
	FileSuffixLength = 10
)

// imageExts maps accepted image extensions to their canonical form.
var imageExts = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpeg",
	".png":  ".png",
	".gif":  ".gif",
	".webp": ".webp",
	".bmp":  ".bmp",
	".avif": ".avif",
	".heic": ".heic",
}

// ConnectionID returns a new opaque connection identifier (UUID v4).
func ConnectionID() string {
	return uuid.New().String()
}

// Base62 returns n cryptographically random Base62 characters.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random suffix: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// ImageFileName builds "<unix-millis>-<random><ext>" for an upload.
// The extension of originalName is kept when it is a known image extension,
// otherwise one is derived from contentType; it may be empty.
func ImageFileName(originalName, contentType string, now time.Time) (string, error) {
	suffix, err := Base62(FileSuffixLength)
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix + ImageExt(originalName, contentType), nil
}

// ImageExt picks the extension stored with an upload.
func ImageExt(originalName, contentType string) string {
	if ext, ok := imageExts[strings.ToLower(filepath.Ext(originalName))]; ok {
		return ext
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil {
		return ""
	}
	for _, e := range exts {
		if ext, ok := imageExts[strings.ToLower(e)]; ok {
			return ext
		}
	}
	return ""
}
