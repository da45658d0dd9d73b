// Package catalog resolves human-facing enumerated form values (entity,
// institution, sex, ethnicity, payroll line) into normalized backend values.
// Resolution fails closed: an unknown value is a caller error, never a
// default.
package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category names a controlled vocabulary.
type Category string

const (
	CategoryEntidad     Category = "entidad"
	CategoryInstitucion Category = "institucion"
	CategorySexo        Category = "sexo"
	CategoryEtnia       Category = "etnia"
	CategoryRenglon     Category = "renglon"
)

// NotFoundError reports an unresolvable catalog value with the offending
// field and input.
type NotFoundError struct {
	Field Category
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s_NOT_FOUND: %q", strings.ToUpper(string(e.Field)), e.Value)
}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize decomposes Unicode, strips diacritics, collapses whitespace, trims
// and uppercases, so "RENGLÓN 021" and " renglon  021 " compare equal.
func Normalize(s string) string {
	stripped, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		stripped = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(stripped), " "))
}

// Renglon is the payroll-line enum.
type Renglon string

const (
	RenglonPersonalPermanente011 Renglon = "PERSONAL_PERMANENTE_011"
	RenglonGrupo029              Renglon = "GRUPO_029"
	RenglonSubgrupo18y022        Renglon = "SUBGRUPO_18_Y_022"
	RenglonNoAplica              Renglon = "NO_APLICA"
	Renglon021                   Renglon = "RENGLON_021"
)

var renglonAliases = map[string]Renglon{
	"PERSONAL PERMANENTE 011": RenglonPersonalPermanente011,
	"GRUPO 029":               RenglonGrupo029,
	"SUBGRUPO 18 Y 022":       RenglonSubgrupo18y022,
	"189":                     RenglonSubgrupo18y022, // legacy numeric code
	"NO APLICA":               RenglonNoAplica,
	"RENGLON 021":             Renglon021,
}

// renglonDisplay is the inverse mapping used when listing applications.
var renglonDisplay = map[Renglon]string{
	RenglonPersonalPermanente011: "PERSONAL PERMANENTE 011",
	RenglonGrupo029:              "GRUPO 029",
	RenglonSubgrupo18y022:        "SUBGRUPO 18 Y 022",
	RenglonNoAplica:              "NO APLICA",
	Renglon021:                   "RENGLÓN 021",
}

// MapRenglon resolves a payroll-line label or legacy code.
func MapRenglon(value string) (Renglon, error) {
	if r, ok := renglonAliases[value]; ok {
		return r, nil
	}
	if r, ok := renglonAliases[Normalize(value)]; ok {
		return r, nil
	}
	return "", &NotFoundError{Field: CategoryRenglon, Value: value}
}

// RenglonDisplay returns the human label for a stored payroll line, falling
// back to "NO APLICA" for unknown stored values.
func RenglonDisplay(r Renglon) string {
	if label, ok := renglonDisplay[r]; ok {
		return label
	}
	return "NO APLICA"
}

// Sexo is the sex enum.
type Sexo string

const (
	SexoMasculino Sexo = "MASCULINO"
	SexoFemenino  Sexo = "FEMENINO"
)

// MapSexo resolves a sex label.
func MapSexo(value string) (Sexo, error) {
	switch strings.ToUpper(value) {
	case string(SexoMasculino):
		return SexoMasculino, nil
	case string(SexoFemenino):
		return SexoFemenino, nil
	}
	return "", &NotFoundError{Field: CategorySexo, Value: value}
}

// Etnia is the ethnicity enum.
type Etnia string

const (
	EtniaMaya       Etnia = "MAYA"
	EtniaXinca      Etnia = "XINCA"
	EtniaGarifuna   Etnia = "GARIFUNA"
	EtniaLadinos    Etnia = "LADINOS"
	EtniaExtranjero Etnia = "EXTRANJERO"
	EtniaOtra       Etnia = "OTRA"
)

// MapEtnia resolves an ethnicity label, accepting common variants.
func MapEtnia(value string) (Etnia, error) {
	switch Normalize(value) {
	case "MAYA":
		return EtniaMaya, nil
	case "XINCA":
		return EtniaXinca, nil
	case "GARIFUNA":
		return EtniaGarifuna, nil
	case "LADINOS", "LADINO":
		return EtniaLadinos, nil
	case "EXTRANJERO":
		return EtniaExtranjero, nil
	case "OTRA", "OTRO", "OTROS":
		return EtniaOtra, nil
	}
	return "", &NotFoundError{Field: CategoryEtnia, Value: value}
}
