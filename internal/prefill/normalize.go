package prefill

import (
	"encoding/json"
	"fmt"
)

const (
	messageFound    = "Datos encontrados"
	messageNotFound = "DPI no registrado en la base de datos de la CGC"
)

// Person is the prefill payload handed to the signup form. Every field is a
// string; absent data is the empty string, never null.
type Person struct {
	DPI                 string `json:"dpi"`
	PrimerNombre        string `json:"primerNombre"`
	SegundoNombre       string `json:"segundoNombre"`
	PrimerApellido      string `json:"primerApellido"`
	SegundoApellido     string `json:"segundoApellido"`
	Email               string `json:"email"`
	CorreoInstitucional string `json:"correoInstitucional"`
	CorreoPersonal      string `json:"correoPersonal"`
	FechaNacimiento     string `json:"fechaNacimiento"`
	Sexo                string `json:"sexo"`
	Pais                string `json:"pais"`
	Departamento        string `json:"departamento"`
	Municipio           string `json:"municipio"`
	NIT                 string `json:"nit"`
	Telefono            string `json:"telefono"`
	Entidad             string `json:"entidad"`
	Institucion         string `json:"institucion"`
	Dependencia         string `json:"dependencia"`
	Renglon             string `json:"renglon"`
	Profesion           string `json:"profesion"`
	Puesto              string `json:"puesto"`
	Sector              string `json:"sector"`
	Colegio             string `json:"colegio"`
	NumeroColegiado     string `json:"numeroColegiado"`
	Message             string `json:"message"`
}

// emptyPerson is the "not registered" reply, still a 200.
func emptyPerson(dpi string) *Person {
	return &Person{DPI: dpi, Pais: "Guatemala", Message: messageNotFound}
}

// normalize maps a raw registry reply onto a Person. The registry answers in
// one of four envelope shapes: {list:[...]}, {data:[...]}, {data:{...}} or the
// person object itself. Empty lists and shapes that carry no person resolve to
// the "not registered" reply. Anything else is a decode failure.
func normalize(raw []byte, dpi string) (*Person, error) {
	var envelope struct {
		List []map[string]any `json:"list"`
		Data json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode registry reply: %w", err)
	}

	if len(envelope.List) > 0 {
		return mapPerson(envelope.List[0], dpi), nil
	}

	if len(envelope.Data) > 0 {
		var asList []map[string]any
		if err := json.Unmarshal(envelope.Data, &asList); err == nil {
			if len(asList) == 0 {
				return emptyPerson(dpi), nil
			}
			return mapPerson(asList[0], dpi), nil
		}
		var asObject map[string]any
		if err := json.Unmarshal(envelope.Data, &asObject); err != nil {
			return nil, fmt.Errorf("decode registry data field: %w", err)
		}
		return mapPerson(asObject, dpi), nil
	}

	// Bare person object, recognized by its identifying keys.
	var direct map[string]any
	if err := json.Unmarshal(raw, &direct); err != nil {
		return nil, fmt.Errorf("decode registry reply: %w", err)
	}
	if _, hasList := direct["list"]; hasList {
		return emptyPerson(dpi), nil
	}
	if str(direct, "dpi") != "" || str(direct, "primerNombre") != "" || str(direct, "primer_nombre") != "" {
		return mapPerson(direct, dpi), nil
	}
	return emptyPerson(dpi), nil
}

// mapPerson resolves each field across the alias spellings the registry has
// been seen to use, camelCase first, then snake_case, then English.
func mapPerson(u map[string]any, dpi string) *Person {
	pais := first(u, "pais", "country")
	if pais == "GUATEMALA" || pais == "" {
		pais = "Guatemala"
	}

	p := &Person{
		DPI:                 first(u, "dpi"),
		PrimerNombre:        first(u, "primerNombre", "primer_nombre", "firstName"),
		SegundoNombre:       first(u, "segundoNombre", "segundo_nombre", "secondName"),
		PrimerApellido:      first(u, "primerApellido", "primer_apellido", "lastName"),
		SegundoApellido:     first(u, "segundoApellido", "segundo_apellido", "secondLastName"),
		Email:               first(u, "correoPersonal", "email", "correo"),
		CorreoInstitucional: first(u, "correoInstitucional", "correo_institucional"),
		CorreoPersonal:      first(u, "correoPersonal", "correo_personal", "email", "correo"),
		FechaNacimiento:     first(u, "fechaNacimiento", "fecha_nacimiento", "birthDate"),
		Sexo:                first(u, "sexo", "genero", "gender"),
		Pais:                pais,
		Departamento:        first(u, "departamento", "department"),
		Municipio:           first(u, "municipio", "municipality"),
		NIT:                 first(u, "nit"),
		Telefono:            first(u, "telefono", "phone"),
		Entidad:             first(u, "entidad", "entity"),
		Institucion:         first(u, "institucion", "entidad", "entity"),
		Dependencia:         first(u, "dependencia", "dependency"),
		Renglon:             first(u, "renglon", "budget_line"),
		Profesion:           first(u, "profesion", "profession"),
		Puesto:              first(u, "puesto", "position"),
		Sector:              first(u, "sector", "sector_laboral"),
		Colegio:             first(u, "colegio", "college"),
		NumeroColegiado:     first(u, "numeroColegiado", "numero_colegiado", "professional_number"),
		Message:             messageFound,
	}
	if p.DPI == "" {
		p.DPI = dpi
	}
	return p
}

func first(u map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := str(u, key); v != "" {
			return v
		}
	}
	return ""
}

func str(u map[string]any, key string) string {
	if v, ok := u[key].(string); ok {
		return v
	}
	return ""
}
