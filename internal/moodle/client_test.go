package moodle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureServer records the form of the last call and replies with body.
func captureServer(t *testing.T, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestCallSendsProtocolEnvelope(t *testing.T) {
	srv, got := captureServer(t, `[]`)
	c := New(srv.URL, "secret-token")

	_, err := c.GetCourses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "secret-token", got.Get("wstoken"))
	assert.Equal(t, "core_course_get_courses", got.Get("wsfunction"))
	assert.Equal(t, "json", got.Get("moodlewsrestformat"))
}

func TestCreateUserCustomFieldsOmitEmpty(t *testing.T) {
	srv, got := captureServer(t, `[{"id": 42, "username": "1234567890123"}]`)
	c := New(srv.URL, "tok")

	_, err := c.CreateUser(context.Background(), NewUser{
		Username:  "1234567890123",
		FirstName: "Ana",
		LastName:  "García",
		Email:     "ana@example.com",
		Profile: &Profile{
			DPI:          "1234567890123",
			Sexo:         "FEMENINO",
			Edad:         25,
			Departamento: "GUATEMALA",
			Municipio:    "MIXCO",
			Etnia:        "LADINOS",
			// NIT, Telefono, Sector etc. deliberately empty
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "1234567890123", got.Get("users[0][username]"))
	assert.Equal(t, "1", got.Get("users[0][createpassword]"))

	// Empty fields are omitted and the index stays sequential, so NIT's slot
	// is taken by the next non-empty field.
	assert.Equal(t, "DPI", got.Get("users[0][customfields][0][type]"))
	assert.Equal(t, "SEXO", got.Get("users[0][customfields][1][type]"))
	assert.Equal(t, "edad", got.Get("users[0][customfields][2][type]"))
	assert.Equal(t, "25", got.Get("users[0][customfields][2][value]"))
	assert.Equal(t, "DP", got.Get("users[0][customfields][3][type]"))
	assert.Equal(t, "MR", got.Get("users[0][customfields][4][type]"))
	assert.Equal(t, "ET", got.Get("users[0][customfields][5][type]"))
	assert.False(t, got.Has("users[0][customfields][6][type]"))
}

func TestEnrolUserDefaultsToStudentRole(t *testing.T) {
	srv, got := captureServer(t, `null`)
	c := New(srv.URL, "tok")

	_, err := c.EnrolUser(context.Background(), 7, 12, 0)
	require.NoError(t, err)

	assert.Equal(t, "7", got.Get("enrolments[0][userid]"))
	assert.Equal(t, "12", got.Get("enrolments[0][courseid]"))
	assert.Equal(t, "5", got.Get("enrolments[0][roleid]"))
}

func TestCallSurfacesMoodleException(t *testing.T) {
	srv, _ := captureServer(t, `{"exception":"invalid_parameter_exception","errorcode":"invalidparameter","message":"Invalid parameter value detected"}`)
	c := New(srv.URL, "tok")

	_, err := c.GetCourses(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalidparameter", apiErr.ErrorCode)
}

func TestCallRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "tok")
	_, err := c.GetCourses(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "504")
}
