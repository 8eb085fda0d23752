package api

import "go.pilab.hu/eduflow/domain"

// --- Auth endpoint payloads ---

// LoginRequest is the body of POST /auth/local.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegisterRequest is the body of POST /auth/local/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// AuthResponse is returned by login, registration and password reset.
type AuthResponse struct {
	JWT          string      `json:"jwt"`
	RefreshToken string      `json:"refreshToken"`
	User         domain.User `json:"user"`
}

// RefreshRequest is the body of POST /auth/refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	JWT          string `json:"jwt"`
	RefreshToken string `json:"refreshToken"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Code                 string `json:"code"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// SendEmailConfirmationRequest is the body of POST /auth/send-email-confirmation.
type SendEmailConfirmationRequest struct {
	Email string `json:"email"`
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	UserID          int    `json:"userId"`
}

// errorResponse is the backend's error envelope.
type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"` // Some endpoints report a bare message instead
}

// --- Content payloads ---

// Course is a course entry from the content API.
type Course struct {
	ID           int     `json:"id"`
	DocumentID   string  `json:"documentId"`
	Title        string  `json:"CourseTitle"`
	Category     string  `json:"CourseCategory"`
	Duration     string  `json:"CourseDuration"`
	Rating       float64 `json:"CourseRating"`
	Instructor   string  `json:"CourseInstructor"`
	VideoURL     string  `json:"CourseVideoUrl"`
	Progress     float64 `json:"CourseProgress,omitempty"`
	Status       string  `json:"CourseStatus,omitempty"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
}

// Lesson is a single lesson within a course.
type Lesson struct {
	ID          int    `json:"id"`
	Title       string `json:"LessonTitle"`
	Description string `json:"LessonDescription"`
	VideoURL    string `json:"LessonVideoUrl"`
	Duration    string `json:"LessonDuration"`
	Order       int    `json:"LessonOrder"`
	IsLocked    bool   `json:"LessonIsLocked"`
}

// Resource is a downloadable attachment bound to a lesson.
type Resource struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Title string `json:"Title"`
}

// Category groups courses on the browse screens.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"Name"`
}

// UserProfile is the editable account profile.
type UserProfile struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
}

// UpdateProfileRequest carries the profile fields a user may change.
type UpdateProfileRequest struct {
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// UploadedFile is a file record returned by the media upload endpoint.
type UploadedFile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UpdateCourseRequest carries a partial course update. Zero-valued fields
// are omitted from the request and left untouched by the backend.
type UpdateCourseRequest struct {
	Title       string   `json:"CourseTitle,omitempty"`
	Description string   `json:"CourseDescription,omitempty"`
	Category    string   `json:"CourseCategory,omitempty"`
	Duration    string   `json:"CourseDuration,omitempty"`
	Rating      *float64 `json:"CourseRating,omitempty"`
	Instructor  string   `json:"CourseInstructor,omitempty"`
	VideoURL    string   `json:"CourseVideoUrl,omitempty"`
	Progress    *float64 `json:"CourseProgress,omitempty"`
	Status      string   `json:"CourseStatus,omitempty"`
	ThumbnailID int      `json:"CourseThumbnail,omitempty"`
}

// listResponse is the content API's collection envelope.
type listResponse[T any] struct {
	Data []T `json:"data"`
	Meta struct {
		Pagination struct {
			Page      int `json:"page"`
			PageSize  int `json:"pageSize"`
			PageCount int `json:"pageCount"`
			Total     int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

// singleResponse is the content API's single-entry envelope.
type singleResponse[T any] struct {
	Data T `json:"data"`
}
