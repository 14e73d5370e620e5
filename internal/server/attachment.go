package server

import (
	"encoding/base64"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/huddlechat/huddle/internal/types"
)

// sniffBytes is plenty for content-type detection.
const sniffBytes = 3072

// sniffAttachmentType detects the attachment's content type from its
// payload and overrides whatever the client claimed. Detection failures
// leave the claimed type alone.
func sniffAttachmentType(att *types.Attachment) {
	idx := strings.Index(att.DataURL, "base64,")
	if idx < 0 {
		return
	}

	dec := base64.NewDecoder(base64.StdEncoding, strings.NewReader(att.DataURL[idx+len("base64,"):]))
	buf := make([]byte, sniffBytes)
	n, err := io.ReadFull(dec, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return
	}
	if n == 0 {
		return
	}

	att.Type = mimetype.Detect(buf[:n]).String()
}
