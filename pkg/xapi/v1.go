package xapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/wilhg/xmcp/pkg/errmodel"
)

// maxUpload caps media files read from disk.
const maxUpload = 15 << 20

// Trends returns the trending topics of a place. WOEID 1 is worldwide.
func (c *Client) Trends(ctx context.Context, woeid int) ([]Trend, error) {
	var out []struct {
		Trends []Trend `json:"trends"`
	}
	r := request{
		method: http.MethodGet,
		base:   c.apiBase,
		path:   "/1.1/trends/place.json",
		query:  url.Values{"id": {fmt.Sprint(woeid)}},
		auth:   AuthUser,
	}
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errmodel.NotFound("No trends for location", map[string]any{"woeid": woeid})
	}
	return out[0].Trends, nil
}

func readLocal(path, what string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errmodel.InvalidInput("cannot open "+what, map[string]any{"path": path, "error": err.Error()})
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, maxUpload+1))
	if err != nil {
		return nil, errmodel.InvalidInput("cannot read "+what, map[string]any{"path": path, "error": err.Error()})
	}
	if len(b) > maxUpload {
		return nil, errmodel.InvalidInput(what+" exceeds upload limit", map[string]any{"path": path, "limit_bytes": maxUpload})
	}
	return b, nil
}

// UploadMedia uploads a local file and returns its media id.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	data, err := readLocal(path, "media file")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", errmodel.Internal("build media upload", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", errmodel.Internal("build media upload", err)
	}
	if err := mw.Close(); err != nil {
		return "", errmodel.Internal("build media upload", err)
	}
	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	r := request{
		method: http.MethodPost,
		base:   c.uploadBase,
		path:   "/1.1/media/upload.json",
		auth:   AuthUser,
		body:   &buf,
		ctype:  mw.FormDataContentType(),
	}
	if err := c.do(ctx, r, &out); err != nil {
		return "", err
	}
	if out.MediaIDString == "" {
		return "", errmodel.Upstream(0, "media upload returned no id", map[string]any{"path": path}, nil)
	}
	return out.MediaIDString, nil
}

// UploadAll uploads each path in order.
func (c *Client) UploadAll(ctx context.Context, paths []string) ([]string, error) {
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		id, err := c.UploadMedia(ctx, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) form(ctx context.Context, path string, form url.Values, out any) error {
	r := request{
		method: http.MethodPost,
		base:   c.apiBase,
		path:   path,
		auth:   AuthUser,
		body:   strings.NewReader(form.Encode()),
		ctype:  "application/x-www-form-urlencoded",
	}
	return c.do(ctx, r, out)
}

// UpdateProfile changes the non-empty profile fields.
func (c *Client) UpdateProfile(ctx context.Context, u ProfileUpdate) (*AccountUser, error) {
	form := url.Values{}
	for k, v := range map[string]string{"name": u.Name, "description": u.Description, "location": u.Location, "url": u.URL} {
		if v != "" {
			form.Set(k, v)
		}
	}
	if len(form) == 0 {
		return nil, errmodel.InvalidInput("at least one profile field is required", nil)
	}
	var out AccountUser
	if err := c.form(ctx, "/1.1/account/update_profile.json", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfileImage replaces the avatar with a local image.
func (c *Client) UpdateProfileImage(ctx context.Context, path string) (*AccountUser, error) {
	data, err := readLocal(path, "image")
	if err != nil {
		return nil, err
	}
	var out AccountUser
	form := url.Values{"image": {base64.StdEncoding.EncodeToString(data)}}
	if err := c.form(ctx, "/1.1/account/update_profile_image.json", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfileBanner replaces the profile banner with a local image.
func (c *Client) UpdateProfileBanner(ctx context.Context, path string) error {
	data, err := readLocal(path, "banner")
	if err != nil {
		return err
	}
	form := url.Values{"banner": {base64.StdEncoding.EncodeToString(data)}}
	return c.form(ctx, "/1.1/account/update_profile_banner.json", form, nil)
}
