package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/pkg/errors"
)

const uploadField = "image"

// UploadImage posts a multipart form with the file under "image". The only
// Content-Type sent is the multipart one carrying the boundary.
func (c *Client) UploadImage(ctx context.Context, token, filename string, r io.Reader) (*resources.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UploadImage] read file")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(filePartHeader(filename, data))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UploadImage] create part")
	}
	if _, err := part.Write(data); err != nil {
		return nil, errors.Wrap(err, "[Client.UploadImage] write part")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "[Client.UploadImage] close form")
	}

	header := http.Header{}
	header.Set("Content-Type", mw.FormDataContentType())
	header.Set("Authorization", "Bearer "+token)

	var out resources.UploadResult
	if err := c.send(ctx, http.MethodPost, "/upload/image/", &body, header, &out, uploadFailed); err != nil {
		return nil, err
	}
	return &out, nil
}

func filePartHeader(filename string, data []byte) textproto.MIMEHeader {
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, filepath.Base(filename)))
	h.Set("Content-Type", contentType)
	return h
}
