package signup

import (
	"net/mail"
	"strconv"
	"strings"

	"registro/internal/auth"
	"registro/internal/catalog"
	"registro/pkg/apperr"
)

var requiredFields = []string{
	"dpi", "email", "password",
	"primerNombre", "primerApellido",
	"sexo", "edad", "etnia",
	"nit", "telefono", "pais", "ciudad",
	"departamento_residencia", "municipio_residencia",
	"entidad", "renglon",
}

// Validate binds the multipart form values into an Input and checks every
// field. Absent required fields are reported both as issues and in the
// separate missing list so the client can distinguish "left blank" from
// "filled in wrong".
func Validate(values map[string][]string) (*Input, error) {
	var issues []apperr.Issue
	var missing []string

	first := func(key string) string {
		if vs, ok := values[key]; ok && len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}

	for _, field := range requiredFields {
		if _, ok := values[field]; !ok {
			missing = append(missing, field)
			issues = append(issues, apperr.Issue{Path: field, Code: "invalid_type", Message: "Required"})
		}
	}
	has := func(field string) bool {
		_, ok := values[field]
		return ok
	}

	in := &Input{
		DPI:                    first("dpi"),
		Email:                  strings.ToLower(first("email")),
		Password:               first("password"),
		PrimerNombre:           first("primerNombre"),
		SegundoNombre:          first("segundoNombre"),
		PrimerApellido:         first("primerApellido"),
		SegundoApellido:        first("segundoApellido"),
		NIT:                    first("nit"),
		Telefono:               first("telefono"),
		Pais:                   first("pais"),
		Ciudad:                 first("ciudad"),
		DepartamentoResidencia: first("departamento_residencia"),
		MunicipioResidencia:    first("municipio_residencia"),
		Entidad:                first("entidad"),
		Institucion:            first("institucion"),
		Dependencia:            first("dependencia"),
		Profesion:              first("profesion"),
		Puesto:                 first("puesto"),
		Sector:                 first("sector"),
		Colegio:                first("colegio"),
		NumeroColegiado:        first("numeroColegiado"),
		CorreoInstitucional:    first("correoInstitucional"),
		CorreoPersonal:         first("correoPersonal"),
		Status:                 first("status"),
	}

	if has("dpi") && !isDigits(in.DPI, 13) {
		issues = append(issues, apperr.Issue{Path: "dpi", Code: "invalid_string", Message: "DPI must be exactly 13 digits"})
	}
	if has("email") {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			issues = append(issues, apperr.Issue{Path: "email", Code: "invalid_string", Message: "Invalid email"})
		}
	}
	if has("password") {
		if err := auth.CheckPasswordStrength(in.Password); err != nil {
			issues = append(issues, apperr.Issue{Path: "password", Code: "too_small", Message: err.Error()})
		}
	}
	if has("primerNombre") && in.PrimerNombre == "" {
		issues = append(issues, apperr.Issue{Path: "primerNombre", Code: "too_small", Message: "Required"})
	}
	if has("primerApellido") && in.PrimerApellido == "" {
		issues = append(issues, apperr.Issue{Path: "primerApellido", Code: "too_small", Message: "Required"})
	}
	if has("sexo") {
		sexo, err := catalog.MapSexo(first("sexo"))
		if err != nil {
			issues = append(issues, apperr.Issue{Path: "sexo", Code: "invalid_enum_value", Message: "SEXO_INVALID"})
		}
		in.Sexo = sexo
	}
	if has("edad") {
		edad, err := strconv.Atoi(first("edad"))
		switch {
		case err != nil:
			issues = append(issues, apperr.Issue{Path: "edad", Code: "invalid_type", Message: "Age must be an integer"})
		case edad < 18 || edad > 100:
			issues = append(issues, apperr.Issue{Path: "edad", Code: "out_of_range", Message: "Age must be between 18 and 100"})
		default:
			in.Edad = edad
		}
	}
	if has("etnia") {
		etnia, err := catalog.MapEtnia(first("etnia"))
		if err != nil {
			issues = append(issues, apperr.Issue{Path: "etnia", Code: "invalid_enum_value", Message: "ETNIA_INVALID"})
		}
		in.Etnia = etnia
	}
	if has("renglon") {
		renglon, err := catalog.MapRenglon(first("renglon"))
		if err != nil {
			issues = append(issues, apperr.Issue{Path: "renglon", Code: "invalid_enum_value", Message: "RENGLON_INVALID"})
		}
		in.Renglon = renglon
	}
	if in.Status != "" && in.Status != StatusPendiente && in.Status != StatusAprobada {
		issues = append(issues, apperr.Issue{Path: "status", Code: "invalid_enum_value", Message: "Status must be PENDIENTE or APROBADA"})
	}

	if len(issues) > 0 {
		return nil, apperr.Validation(issues, missing)
	}
	return in, nil
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
