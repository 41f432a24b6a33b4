package mcp

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlattenContent_ImageSizeIsDecodedByteCount(t *testing.T) {
	raw := []byte("not actually an image but five bytes more")
	encoded := base64.StdEncoding.EncodeToString(raw)
	require.Greater(t, len(encoded), len(raw))

	out := flattenContent([]toolContentBlock{
		{Type: "image", Data: encoded, MimeType: "image/png"},
	})
	require.Equal(t, fmt.Sprintf("[Image: %d bytes, type: image/png]", len(raw)), out)
}

func TestFlattenContent_TextConcatenates(t *testing.T) {
	out := flattenContent([]toolContentBlock{
		{Type: "text", Text: "hello "},
		{Type: "text", Text: "world"},
	})
	require.Equal(t, "hello world", out)
}

func TestDecodedImageSize_FallsBackToRawLengthOnBadBase64(t *testing.T) {
	require.Equal(t, len("not-base64!!"), decodedImageSize("not-base64!!"))
}
