package prefill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEnvelopeShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"list", `{"list":[{"dpi":"1234567890123","primerNombre":"Ana"}]}`},
		{"data array", `{"data":[{"dpi":"1234567890123","primerNombre":"Ana"}]}`},
		{"data object", `{"data":{"dpi":"1234567890123","primerNombre":"Ana"}}`},
		{"bare object", `{"dpi":"1234567890123","primerNombre":"Ana"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			person, err := normalize([]byte(tc.raw), "1234567890123")
			require.NoError(t, err)
			assert.Equal(t, "Ana", person.PrimerNombre)
			assert.Equal(t, messageFound, person.Message)
		})
	}
}

func TestNormalizeEmptyReplies(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty list", `{"list":[]}`},
		{"empty data array", `{"data":[]}`},
		{"unrecognized object", `{"estado":"ok"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			person, err := normalize([]byte(tc.raw), "1234567890123")
			require.NoError(t, err)
			assert.Equal(t, "1234567890123", person.DPI)
			assert.Equal(t, "Guatemala", person.Pais)
			assert.Empty(t, person.PrimerNombre)
			assert.Equal(t, messageNotFound, person.Message)
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := normalize([]byte(`not json`), "1234567890123")
	require.Error(t, err)

	_, err = normalize([]byte(`{"data":"una cadena"}`), "1234567890123")
	require.Error(t, err)
}

func TestNormalizeFieldAliases(t *testing.T) {
	raw := `{"list":[{
		"primer_nombre":"Ana",
		"segundo_nombre":"María",
		"lastName":"García",
		"secondLastName":"López",
		"correo":"ana@example.com",
		"correo_institucional":"ana@cgc.gob.gt",
		"fecha_nacimiento":"1990-04-01",
		"genero":"F",
		"department":"GUATEMALA",
		"municipality":"MIXCO",
		"phone":"55512345",
		"entity":"MINISTERIO DE SALUD",
		"budget_line":"029",
		"professional_number":"4521"
	}]}`

	person, err := normalize([]byte(raw), "1234567890123")
	require.NoError(t, err)

	assert.Equal(t, "1234567890123", person.DPI, "dpi falls back to the one requested")
	assert.Equal(t, "Ana", person.PrimerNombre)
	assert.Equal(t, "María", person.SegundoNombre)
	assert.Equal(t, "García", person.PrimerApellido)
	assert.Equal(t, "López", person.SegundoApellido)
	assert.Equal(t, "ana@example.com", person.Email)
	assert.Equal(t, "ana@example.com", person.CorreoPersonal)
	assert.Equal(t, "ana@cgc.gob.gt", person.CorreoInstitucional)
	assert.Equal(t, "1990-04-01", person.FechaNacimiento)
	assert.Equal(t, "F", person.Sexo)
	assert.Equal(t, "GUATEMALA", person.Departamento)
	assert.Equal(t, "MIXCO", person.Municipio)
	assert.Equal(t, "55512345", person.Telefono)
	assert.Equal(t, "MINISTERIO DE SALUD", person.Entidad)
	assert.Equal(t, "MINISTERIO DE SALUD", person.Institucion, "institucion falls back to entidad")
	assert.Equal(t, "029", person.Renglon)
	assert.Equal(t, "4521", person.NumeroColegiado)
}

func TestNormalizePais(t *testing.T) {
	person, err := normalize([]byte(`{"list":[{"dpi":"1","pais":"GUATEMALA"}]}`), "1")
	require.NoError(t, err)
	assert.Equal(t, "Guatemala", person.Pais)

	person, err = normalize([]byte(`{"list":[{"dpi":"1"}]}`), "1")
	require.NoError(t, err)
	assert.Equal(t, "Guatemala", person.Pais)

	person, err = normalize([]byte(`{"list":[{"dpi":"1","pais":"México"}]}`), "1")
	require.NoError(t, err)
	assert.Equal(t, "México", person.Pais)
}

func TestNormalizeEmailPrecedence(t *testing.T) {
	raw := `{"list":[{"dpi":"1","correoPersonal":"personal@example.com","email":"otro@example.com"}]}`
	person, err := normalize([]byte(raw), "1")
	require.NoError(t, err)
	assert.Equal(t, "personal@example.com", person.Email)
	assert.Equal(t, "personal@example.com", person.CorreoPersonal)
}
