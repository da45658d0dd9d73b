package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "RENGLON 021", Normalize("RENGLÓN 021"))
	assert.Equal(t, "SOCIEDAD CIVIL", Normalize("  sociedad   civil "))
	assert.Equal(t, Normalize("SOCIEDAD CIVIL"), Normalize("  sociedad   civil "))
	assert.Equal(t, "GARIFUNA", Normalize("Garífuna"))
}

func TestMapRenglon(t *testing.T) {
	for input, want := range map[string]Renglon{
		"RENGLON 021":             Renglon021,
		"RENGLÓN 021":             Renglon021,
		"renglón  021":            Renglon021,
		"189":                     RenglonSubgrupo18y022,
		"SUBGRUPO 18 Y 022":       RenglonSubgrupo18y022,
		"PERSONAL PERMANENTE 011": RenglonPersonalPermanente011,
		"GRUPO 029":               RenglonGrupo029,
		"NO APLICA":               RenglonNoAplica,
	} {
		got, err := MapRenglon(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := MapRenglon("RENGLON 999")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, CategoryRenglon, nf.Field)
	assert.Equal(t, "RENGLON 999", nf.Value)
}

func TestMapSexo(t *testing.T) {
	got, err := MapSexo("masculino")
	require.NoError(t, err)
	assert.Equal(t, SexoMasculino, got)

	_, err = MapSexo("X")
	require.Error(t, err)
}

func TestMapEtniaVariants(t *testing.T) {
	for input, want := range map[string]Etnia{
		"MAYA":     EtniaMaya,
		"Ladino":   EtniaLadinos,
		"LADINOS":  EtniaLadinos,
		"otro":     EtniaOtra,
		"OTROS":    EtniaOtra,
		"Garífuna": EtniaGarifuna,
	} {
		got, err := MapEtnia(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := MapEtnia("KLINGON")
	require.Error(t, err)
}

type stubStore struct {
	entidades     []NamedID
	instituciones []NamedID
	err           error
}

func (s stubStore) Entidades(context.Context) ([]NamedID, error)     { return s.entidades, s.err }
func (s stubStore) Instituciones(context.Context) ([]NamedID, error) { return s.instituciones, s.err }

func TestCacheResolve(t *testing.T) {
	cache := NewCache(stubStore{
		entidades:     []NamedID{{ID: "e1", Name: "SOCIEDAD CIVIL"}},
		instituciones: []NamedID{{ID: "i1", Name: "NO APLICA"}},
	})
	require.NoError(t, cache.Refresh(context.Background()))

	id, err := cache.ResolveEntidad("SOCIEDAD CIVIL")
	require.NoError(t, err)
	assert.Equal(t, "e1", id)

	id, err = cache.ResolveInstitucion("NO APLICA")
	require.NoError(t, err)
	assert.Equal(t, "i1", id)

	_, err = cache.ResolveEntidad("DESCONOCIDA")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, CategoryEntidad, nf.Field)
}

func TestCacheResolveNormalizesBothSides(t *testing.T) {
	// DB rows themselves may carry stray casing or spacing.
	cache := NewCache(stubStore{
		entidades:     []NamedID{{ID: "e1", Name: " Sociedad  Civil"}},
		instituciones: []NamedID{{ID: "i1", Name: "HOSPITAL ROOSEVELT"}},
	})
	require.NoError(t, cache.Refresh(context.Background()))

	for _, variant := range []string{"SOCIEDAD CIVIL", "  sociedad   civil ", "Sociedad Civil"} {
		id, err := cache.ResolveEntidad(variant)
		require.NoError(t, err, variant)
		assert.Equal(t, "e1", id, variant)
	}

	id, err := cache.ResolveInstitucion("hospital  roosevelt")
	require.NoError(t, err)
	assert.Equal(t, "i1", id)
}

func TestCacheRefreshFailureKeepsOldMaps(t *testing.T) {
	store := &switchableStore{
		good: stubStore{entidades: []NamedID{{ID: "e1", Name: "SOCIEDAD CIVIL"}}},
	}
	cache := NewCache(store)
	require.NoError(t, cache.Refresh(context.Background()))

	store.fail = true
	require.Error(t, cache.Refresh(context.Background()))

	// Previous data still resolves.
	id, err := cache.ResolveEntidad("SOCIEDAD CIVIL")
	require.NoError(t, err)
	assert.Equal(t, "e1", id)
}

type switchableStore struct {
	good stubStore
	fail bool
}

func (s *switchableStore) Entidades(ctx context.Context) ([]NamedID, error) {
	if s.fail {
		return nil, errors.New("db down")
	}
	return s.good.Entidades(ctx)
}

func (s *switchableStore) Instituciones(ctx context.Context) ([]NamedID, error) {
	if s.fail {
		return nil, errors.New("db down")
	}
	return s.good.Instituciones(ctx)
}
