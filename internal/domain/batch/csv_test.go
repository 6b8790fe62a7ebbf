package batch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
)

func TestParse_CanonicalAndAbbreviatedHeaders(t *testing.T) {
	content := "Orbital Period,pl_rade,transit_depth,ST_TEFF\r\n365.25,1.0,840,5778\r\n10,2.5,,abc\n"

	rows, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, 1, rows[0].ID)
	require.Equal(t, map[classifier.Field]float64{
		classifier.OrbitalPeriod:      365.25,
		classifier.PlanetRadius:       1.0,
		classifier.TransitDepth:       840,
		classifier.StellarTemperature: 5778,
	}, rows[0].Fields)

	require.Equal(t, 2, rows[1].ID)
	require.Equal(t, map[classifier.Field]float64{
		classifier.OrbitalPeriod: 10,
		classifier.PlanetRadius:  2.5,
	}, rows[1].Fields)
}

func TestParse_KeplerSynonymsAndUnknownColumns(t *testing.T) {
	rows, err := Parse("kepid,koi_period,koi_prad,comment\n123,9.48,2.26,hello\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, map[classifier.Field]float64{
		classifier.OrbitalPeriod: 9.48,
		classifier.PlanetRadius:  2.26,
	}, rows[0].Fields)
}

func TestParse_LastDuplicateColumnWins(t *testing.T) {
	rows, err := Parse("orbital_period,pl_orbper,koi_period\n1,2,3\n1,2,\n1,abc,3\n")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, 3.0, rows[0].Fields[classifier.OrbitalPeriod])
	_, ok := rows[1].Fields[classifier.OrbitalPeriod]
	require.False(t, ok, "an empty rightmost cell leaves the field unset")
	require.Equal(t, 3.0, rows[2].Fields[classifier.OrbitalPeriod])
}

func TestParse_EveryFieldReachesPayload(t *testing.T) {
	type column struct {
		field classifier.Field
		cell  string
		want  float64
	}
	var cases []column
	for _, f := range classifier.RequiredFields {
		cases = append(cases, column{field: f, cell: "42.5", want: 42.5})
	}
	for _, f := range classifier.OptionalFields {
		cases = append(cases, column{field: f, cell: "-0.25", want: -0.25})
	}
	for _, f := range classifier.FlagFields {
		cases = append(cases,
			column{field: f, cell: "1", want: 1},
			column{field: f, cell: "0", want: 0},
		)
	}
	require.Len(t, cases, len(classifier.RequiredFields)+len(classifier.OptionalFields)+2*len(classifier.FlagFields))

	for _, tc := range cases {
		for _, header := range []string{string(tc.field), tc.field.Abbreviation()} {
			t.Run(header+"="+tc.cell, func(t *testing.T) {
				anchor := classifier.PlanetRadius
				if tc.field == anchor {
					anchor = classifier.OrbitalPeriod
				}
				content := header + "," + anchor.Abbreviation() + "\n" + tc.cell + ",7\n"

				rows, err := Parse(content)
				require.NoError(t, err)
				require.Len(t, rows, 1)
				require.Equal(t, map[classifier.Field]float64{tc.field: tc.want, anchor: 7}, rows[0].Fields)

				payload := RowPayload(rows[0])
				require.Equal(t, map[string]float64{tc.field.Abbreviation(): tc.want, anchor.Abbreviation(): 7}, payload)
			})
		}
	}
}

func TestParse_BlankInteriorLineYieldsEmptyRow(t *testing.T) {
	rows, err := Parse("orbital_period\n1\n\n3\n")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Empty(t, rows[1].Fields)
	require.Equal(t, 3, rows[2].ID)
}

func TestParse_RejectsNonFiniteCells(t *testing.T) {
	rows, err := Parse("orbital_period,planet_radius\nNaN,Inf\n")
	require.NoError(t, err)
	require.Empty(t, rows[0].Fields)
}

func TestParse_FormatErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"header only":  "orbital_period,planet_radius\n",
		"no known col": "foo,bar\n1,2\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(content)
			var formatErr *FormatError
			require.True(t, errors.As(err, &formatErr))
		})
	}

	_, err := Parse("foo,bar\n1,2\n")
	require.Contains(t, err.Error(), "orbital_period (pl_orbper)")
}

func TestNormalizeHeader(t *testing.T) {
	require.Equal(t, "orbital_period", NormalizeHeader("  Orbital Period "))
	require.Equal(t, "st_teff", NormalizeHeader("ST--TEFF"))
	require.Equal(t, "planet_radius_earth", NormalizeHeader("(Planet Radius) [Earth]"))
	require.Equal(t, "", NormalizeHeader(" -- "))
}

func TestAcceptFile(t *testing.T) {
	require.NoError(t, AcceptFile("planets.CSV", ""))
	require.NoError(t, AcceptFile("upload", "text/csv; charset=utf-8"))
	require.NoError(t, AcceptFile("upload.bin", "application/vnd.ms-excel"))
	require.Error(t, AcceptFile("planets.txt", "text/plain"))
	require.Error(t, AcceptFile("", ""))
}
