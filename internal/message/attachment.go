package message

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

const defaultContentType = "application/octet-stream"

// base64LineLength is the conventional chunk width for base64 transfer
// encoding.
const base64LineLength = 76

// Attachment is a loaded attachment ready for encoding into a transport or
// provider payload.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// LoadAttachment reads the file at path and infers its MIME type from the
// filename extension, defaulting to application/octet-stream.
func LoadAttachment(path string) (*Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attachment %s: %w", path, err)
	}

	filename := filepath.Base(path)
	ctype := mime.TypeByExtension(filepath.Ext(filename))
	if ctype == "" {
		ctype = defaultContentType
	}

	return &Attachment{
		Filename:    filename,
		ContentType: ctype,
		Content:     content,
	}, nil
}

// ChunkBase64 encodes content as base64 split into 76 character lines, each
// terminated with CRLF.
func ChunkBase64(content []byte) string {
	encoded := base64.StdEncoding.EncodeToString(content)

	var b strings.Builder
	b.Grow(len(encoded) + 2*(len(encoded)/base64LineLength+1))
	for len(encoded) > base64LineLength {
		b.WriteString(encoded[:base64LineLength])
		b.WriteString("\r\n")
		encoded = encoded[base64LineLength:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")
	return b.String()
}
