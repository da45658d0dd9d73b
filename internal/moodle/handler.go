package moodle

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"registro/internal/platform/middleware"
	"registro/internal/transport/http/shared"
	"registro/pkg/apperr"
)

// Handler exposes the admin passthrough endpoints over the LMS client.
type Handler struct {
	logger *slog.Logger
	client *Client
	admin  func(http.Handler) http.Handler
}

func NewHandler(logger *slog.Logger, client *Client, admin func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, client: client, admin: admin}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/moodle", func(r chi.Router) {
		r.Use(h.admin)

		r.Post("/users", h.handleCreateUser)
		r.Put("/users", h.handleUpdateUser)
		r.Delete("/users", h.handleDeleteUser)

		r.Post("/enrol", h.handleEnrol)
		r.Post("/unenrol", h.handleUnenrol)

		r.Get("/courses", h.handleGetCourses)
		r.Post("/courses/search", h.handleSearchCourses)
		r.Post("/courses", h.handleCreateCourse)
		r.Put("/courses", h.handleUpdateCourse)
		r.Delete("/courses", h.handleDeleteCourse)
	})
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username  string `json:"username"`
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
		Email     string `json:"email"`
		Profile   *struct {
			DPI          string `json:"dpi"`
			NIT          string `json:"nit"`
			Sexo         string `json:"sexo"`
			Edad         int    `json:"edad"`
			Departamento string `json:"departamento"`
			Municipio    string `json:"municipio"`
			Etnia        string `json:"etnia"`
			Telefono     string `json:"telefono"`
			Sector       string `json:"sector"`
			Institucion  string `json:"institucion"`
			Dependencia  string `json:"dependencia"`
			Renglon      string `json:"renglon"`
			Colegio      string `json:"colegio"`
			ColegiadoNo  string `json:"colegiadoNo"`
		} `json:"profile"`
	}
	if err := decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if body.Username == "" || body.FirstName == "" || body.LastName == "" || body.Email == "" {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "username, firstname, lastname and email are required"))
		return
	}

	user := NewUser{
		Username:  body.Username,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
	}
	if p := body.Profile; p != nil {
		user.Profile = &Profile{
			DPI:          p.DPI,
			NIT:          p.NIT,
			Sexo:         p.Sexo,
			Edad:         p.Edad,
			Departamento: p.Departamento,
			Municipio:    p.Municipio,
			Etnia:        p.Etnia,
			Telefono:     p.Telefono,
			Sector:       p.Sector,
			Institucion:  p.Institucion,
			Dependencia:  p.Dependencia,
			Renglon:      p.Renglon,
			Colegio:      p.Colegio,
			ColegiadoNo:  p.ColegiadoNo,
		}
	}
	h.passthrough(w, r, "create moodle user", func() (json.RawMessage, error) {
		return h.client.CreateUser(r.Context(), user)
	})
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID        int    `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
		Email     string `json:"email"`
	}
	if err := decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if body.ID == 0 {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "id is required"))
		return
	}
	h.passthrough(w, r, "update moodle user", func() (json.RawMessage, error) {
		return h.client.UpdateUser(r.Context(), UserUpdate{
			ID:        body.ID,
			Username:  body.Username,
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Email:     body.Email,
		})
	})
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID int `json:"userId"`
	}
	if err := decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if body.UserID == 0 {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "userId is required"))
		return
	}
	h.passthrough(w, r, "delete moodle user", func() (json.RawMessage, error) {
		return h.client.DeleteUser(r.Context(), body.UserID)
	})
}

func (h *Handler) handleEnrol(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   int `json:"userId"`
		CourseID int `json:"courseId"`
		RoleID   int `json:"roleId"`
	}
	if err := decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if body.UserID == 0 || body.CourseID == 0 {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "userId and courseId are required"))
		return
	}
	h.passthrough(w, r, "enrol user", func() (json.RawMessage, error) {
		return h.client.EnrolUser(r.Context(), body.UserID, body.CourseID, body.RoleID)
	})
}

func (h *Handler) handleUnenrol(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   int `json:"userId"`
		CourseID int `json:"courseId"`
	}
	if err := decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if body.UserID == 0 || body.CourseID == 0 {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "userId and courseId are required"))
		return
	}
	h.passthrough(w, r, "unenrol user", func() (json.RawMessage, error) {
		return h.client.UnenrolUser(r.Context(), body.UserID, body.CourseID)
	})
}

func (h *Handler) handleGetCourses(w http.ResponseWriter, r *http.Request) {
	h.passthrough(w, r, "get courses", func() (json.RawMessage, error) {
		return h.client.GetCourses(r.Context())
	})
}

func (h *Handler) handleSearchCourses(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CriteriaName  string `json:"criterianame"`
		CriteriaValue string `json:"criteriavalue"`
	}
	if err := decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if body.CriteriaName == "" {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "criterianame is required"))
		return
	}
	h.passthrough(w, r, "search courses", func() (json.RawMessage, error) {
		return h.client.SearchCourses(r.Context(), body.CriteriaName, body.CriteriaValue)
	})
}

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FullName   string `json:"fullname"`
		ShortName  string `json:"shortname"`
		CategoryID int    `json:"categoryid"`
		Summary    string `json:"summary"`
	}
	if err := decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if body.FullName == "" || body.ShortName == "" {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "fullname and shortname are required"))
		return
	}
	h.passthrough(w, r, "create course", func() (json.RawMessage, error) {
		return h.client.CreateCourse(r.Context(), NewCourse{
			FullName:   body.FullName,
			ShortName:  body.ShortName,
			CategoryID: body.CategoryID,
			Summary:    body.Summary,
		})
	})
}

func (h *Handler) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID        int    `json:"id"`
		FullName  string `json:"fullname"`
		ShortName string `json:"shortname"`
		Summary   string `json:"summary"`
	}
	if err := decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if body.ID == 0 {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "id is required"))
		return
	}
	h.passthrough(w, r, "update course", func() (json.RawMessage, error) {
		return h.client.UpdateCourse(r.Context(), CourseUpdate{
			ID:        body.ID,
			FullName:  body.FullName,
			ShortName: body.ShortName,
			Summary:   body.Summary,
		})
	})
}

func (h *Handler) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CourseID int `json:"courseId"`
	}
	if err := decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if body.CourseID == 0 {
		shared.WriteError(w, apperr.New(apperr.CodeBadRequest, "courseId is required"))
		return
	}
	h.passthrough(w, r, "delete course", func() (json.RawMessage, error) {
		return h.client.DeleteCourse(r.Context(), body.CourseID)
	})
}

// passthrough runs one client call and relays Moodle's raw JSON reply.
func (h *Handler) passthrough(w http.ResponseWriter, r *http.Request, action string, call func() (json.RawMessage, error)) {
	result, err := call()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "moodle call failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"action", action,
			"error", err,
		)
		shared.WriteError(w, apperr.Wrap(apperr.CodeUpstream, "LMS request failed", err))
		return
	}
	shared.OK(w, http.StatusOK, result)
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.CodeBadRequest, "invalid JSON body", err)
	}
	return nil
}
