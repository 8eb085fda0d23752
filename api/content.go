package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	autherr "go.pilab.hu/eduflow/errors"
)

// Content reads go through the authenticated pipeline when a session is
// active, otherwise they fall back to the public read-only token. Responses
// are cached briefly so screen navigation does not hammer the backend.

func (c *Client) contentOpts() requestOptions {
	return requestOptions{authenticated: c.authedClient() != nil}
}

// getCachedJSON serves path from the content cache, fetching and caching on
// a miss. Cached entries are raw response bytes keyed by path.
func (c *Client) getCachedJSON(ctx context.Context, path string, out any) error {
	if item := c.content.Get(path); item != nil {
		return json.Unmarshal(item.Value(), out)
	}

	data, err := c.do(ctx, http.MethodGet, path, nil, c.contentOpts())
	if err != nil {
		return err
	}

	c.content.Set(path, data, c.cacheTTL)

	return json.Unmarshal(data, out)
}

// Courses lists all published courses.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var out listResponse[Course]
	if err := c.getCachedJSON(ctx, "/courses?populate=*", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CourseByDocumentID fetches a single course by its stable document ID.
func (c *Client) CourseByDocumentID(ctx context.Context, documentID string) (*Course, error) {
	path := "/courses?populate=*&filters[documentId][$eq]=" + url.QueryEscape(documentID)

	var out listResponse[Course]
	if err := c.getCachedJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("course %s not found", documentID)
	}

	return &out.Data[0], nil
}

// CourseByID fetches a single course by numeric ID.
func (c *Client) CourseByID(ctx context.Context, id int) (*Course, error) {
	var out singleResponse[Course]
	if err := c.getCachedJSON(ctx, fmt.Sprintf("/courses/%d?populate=*", id), &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Lessons lists the lessons of a course in playback order.
func (c *Client) Lessons(ctx context.Context, courseID int) ([]Lesson, error) {
	path := fmt.Sprintf("/lessons?populate=*&filters[course][id][$eq]=%d&sort[0]=LessonOrder:asc", courseID)

	var out listResponse[Lesson]
	if err := c.getCachedJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Resources lists the downloadable attachments of a lesson.
func (c *Client) Resources(ctx context.Context, lessonID int) ([]Resource, error) {
	path := fmt.Sprintf("/resources?filters[lesson]=%d&populate=*", lessonID)

	var out listResponse[Resource]
	if err := c.getCachedJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Categories lists the course categories used on the browse screens.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out listResponse[Category]
	if err := c.getCachedJSON(ctx, "/categories?populate=*", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Profile fetches the account profile of a user. Requires a session.
func (c *Client) Profile(ctx context.Context, userID int) (*UserProfile, error) {
	var out UserProfile
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/users/%d", userID), nil, &out,
		requestOptions{authenticated: true})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile updates the editable profile fields. Requires a session.
func (c *Client) UpdateProfile(ctx context.Context, userID int, update UpdateProfileRequest) (*UserProfile, error) {
	var out UserProfile
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/users/%d", userID), update, &out,
		requestOptions{authenticated: true})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

const maxUploadSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// UploadProfileImage uploads an avatar through the media endpoint and binds
// it to the user's profile. Only JPEG, PNG and GIF up to 5MB are accepted;
// both checks run locally before any network call. Requires a session.
func (c *Client) UploadProfileImage(ctx context.Context, userID int, filename, contentType string, file io.Reader) (*UserProfile, error) {
	if !allowedImageTypes[contentType] {
		return nil, autherr.NewValidationFailed("invalid file type, please upload a JPEG, PNG or GIF image")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, autherr.NewRequestFailed("failed to read image data")
	}
	if len(data) > maxUploadSize {
		return nil, autherr.NewValidationFailed("file too large, please upload an image smaller than 5MB")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="files"; filename=%q`, filename)},
		"Content-Type":        {contentType},
	})
	if err != nil {
		return nil, autherr.NewRequestFailed(err.Error())
	}
	if _, err := part.Write(data); err != nil {
		return nil, autherr.NewRequestFailed(err.Error())
	}
	if err := mw.Close(); err != nil {
		return nil, autherr.NewRequestFailed(err.Error())
	}

	raw, err := c.send(ctx, http.MethodPost, "/upload", mw.FormDataContentType(), &buf,
		requestOptions{authenticated: true})
	if err != nil {
		return nil, err
	}

	var files []UploadedFile
	if err := json.Unmarshal(raw, &files); err != nil || len(files) == 0 {
		return nil, autherr.NewRequestFailed("malformed upload response")
	}

	var out UserProfile
	err = c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/users/%d", userID),
		map[string]int{"profileImage": files[0].ID}, &out, requestOptions{authenticated: true})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func courseManagerPath(documentID string) string {
	return "/content-manager/collection-types/api::course.course/" + url.PathEscape(documentID)
}

// UpdateCourse applies a partial update to a course through the content
// manager. Updates are attempt-limited per course, like the credential
// flows. Requires a session.
func (c *Client) UpdateCourse(ctx context.Context, documentID string, update UpdateCourseRequest) (*Course, error) {
	if !c.attempts.Allow("update-course:" + documentID) {
		return nil, autherr.NewRateLimited("too many update attempts, please try again later")
	}

	var out Course
	err := c.doJSON(ctx, http.MethodPut, courseManagerPath(documentID), update, &out,
		requestOptions{authenticated: true})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PublishCourse pushes the draft state of a course live. Requires a session.
func (c *Client) PublishCourse(ctx context.Context, documentID string) error {
	return c.doJSON(ctx, http.MethodPost, courseManagerPath(documentID)+"/actions/publish", nil, nil,
		requestOptions{authenticated: true})
}
