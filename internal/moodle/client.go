// Package moodle is the typed adapter over the Moodle web-service protocol:
// one endpoint, a wsfunction name per operation and flat indexed parameters,
// authenticated by a static token on every call.
package moodle

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// APIError is a Moodle-side failure carried in a 200 response body.
type APIError struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moodle %s: %s", e.ErrorCode, e.Message)
}

// Client calls the Moodle REST endpoint.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New builds a client for the configured endpoint. The upstream serves a
// certificate that cannot be verified, so verification is disabled for this
// client only.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// call posts one wsfunction invocation and decodes the JSON reply. Moodle
// reports its own failures inside a 200 body carrying an exception field.
func (c *Client) call(ctx context.Context, wsfunction string, params url.Values) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("wstoken", c.token)
	params.Set("wsfunction", wsfunction)
	params.Set("moodlewsrestformat", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", wsfunction, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", wsfunction, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("call %s: unexpected status %d", wsfunction, resp.StatusCode)
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Exception != "" {
		return nil, &apiErr
	}
	return body, nil
}

// Profile carries the custom profile fields attached to user creation. The
// keys sent to Moodle are the shortnames configured on the LMS side.
type Profile struct {
	DPI          string
	NIT          string
	Sexo         string
	Edad         int
	Departamento string
	Municipio    string
	Etnia        string
	Telefono     string
	Sector       string
	Institucion  string
	Dependencia  string
	Renglon      string
	Colegio      string
	ColegiadoNo  string
}

// NewUser is a user-creation request. Moodle generates the password itself
// and mails a welcome message.
type NewUser struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Profile   *Profile
}

// CreateUser provisions one user with its custom profile fields. Empty
// profile values are omitted entirely rather than sent blank.
func (c *Client) CreateUser(ctx context.Context, user NewUser) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("users[0][username]", user.Username)
	params.Set("users[0][firstname]", user.FirstName)
	params.Set("users[0][lastname]", user.LastName)
	params.Set("users[0][email]", user.Email)
	params.Set("users[0][createpassword]", "1")

	if p := user.Profile; p != nil {
		i := 0
		add := func(shortname, value string) {
			if value == "" {
				return
			}
			params.Set(fmt.Sprintf("users[0][customfields][%d][type]", i), shortname)
			params.Set(fmt.Sprintf("users[0][customfields][%d][value]", i), value)
			i++
		}
		add("DPI", p.DPI)
		add("NIT", p.NIT)
		add("SEXO", p.Sexo)
		add("edad", strconv.Itoa(p.Edad))
		add("DP", p.Departamento)
		add("MR", p.Municipio)
		add("ET", p.Etnia)
		add("CELULAR", p.Telefono)
		add("SECTOR", p.Sector)
		add("LABORES", p.Institucion)
		add("cgccampos", p.Dependencia)
		add("reglon", p.Renglon)
		add("colegio", p.Colegio)
		add("colegiado", p.ColegiadoNo)
	}

	return c.call(ctx, "core_user_create_users", params)
}

// UserUpdate carries the fields to change on an existing Moodle user. Zero
// values are left untouched.
type UserUpdate struct {
	ID        int
	Username  string
	FirstName string
	LastName  string
	Email     string
}

func (c *Client) UpdateUser(ctx context.Context, update UserUpdate) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("users[0][id]", strconv.Itoa(update.ID))
	if update.Username != "" {
		params.Set("users[0][username]", update.Username)
	}
	if update.FirstName != "" {
		params.Set("users[0][firstname]", update.FirstName)
	}
	if update.LastName != "" {
		params.Set("users[0][lastname]", update.LastName)
	}
	if update.Email != "" {
		params.Set("users[0][email]", update.Email)
	}
	return c.call(ctx, "core_user_update_users", params)
}

func (c *Client) DeleteUser(ctx context.Context, userID int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("userids[0]", strconv.Itoa(userID))
	return c.call(ctx, "core_user_delete_users", params)
}

// EnrolUser enrols a user in a course. A zero roleID means student.
func (c *Client) EnrolUser(ctx context.Context, userID, courseID, roleID int) (json.RawMessage, error) {
	if roleID == 0 {
		roleID = 5 // Moodle's built-in student role
	}
	params := url.Values{}
	params.Set("enrolments[0][userid]", strconv.Itoa(userID))
	params.Set("enrolments[0][courseid]", strconv.Itoa(courseID))
	params.Set("enrolments[0][roleid]", strconv.Itoa(roleID))
	return c.call(ctx, "enrol_manual_enrol_users", params)
}

func (c *Client) UnenrolUser(ctx context.Context, userID, courseID int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("enrolments[0][userid]", strconv.Itoa(userID))
	params.Set("enrolments[0][courseid]", strconv.Itoa(courseID))
	return c.call(ctx, "enrol_manual_unenrol_users", params)
}

func (c *Client) GetCourses(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "core_course_get_courses", nil)
}

func (c *Client) SearchCourses(ctx context.Context, criteriaName, criteriaValue string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("criterianame", criteriaName)
	params.Set("criteriavalue", criteriaValue)
	return c.call(ctx, "core_course_search_courses", params)
}

// NewCourse is a course-creation request.
type NewCourse struct {
	FullName   string
	ShortName  string
	CategoryID int
	Summary    string
}

func (c *Client) CreateCourse(ctx context.Context, course NewCourse) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("courses[0][fullname]", course.FullName)
	params.Set("courses[0][shortname]", course.ShortName)
	params.Set("courses[0][categoryid]", strconv.Itoa(course.CategoryID))
	params.Set("courses[0][summary]", course.Summary)
	return c.call(ctx, "core_course_create_courses", params)
}

// CourseUpdate carries the fields to change on an existing course.
type CourseUpdate struct {
	ID        int
	FullName  string
	ShortName string
	Summary   string
}

func (c *Client) UpdateCourse(ctx context.Context, update CourseUpdate) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("courses[0][id]", strconv.Itoa(update.ID))
	if update.FullName != "" {
		params.Set("courses[0][fullname]", update.FullName)
	}
	if update.ShortName != "" {
		params.Set("courses[0][shortname]", update.ShortName)
	}
	if update.Summary != "" {
		params.Set("courses[0][summary]", update.Summary)
	}
	return c.call(ctx, "core_course_update_courses", params)
}

func (c *Client) DeleteCourse(ctx context.Context, courseID int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("courseids[0]", strconv.Itoa(courseID))
	return c.call(ctx, "core_course_delete_courses", params)
}
