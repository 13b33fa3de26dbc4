package pipeline

import (
	"bytes"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gyscontrol/internal"
)

func TestParseHTMLTables(t *testing.T) {
	html := `<p>Adjunto lista</p>
<table><tr><td>sin</td><td>cabecera</td></tr><tr><td>x</td><td>y</td></tr></table>
<table>
<tr><th>Cód.</th><th>Descripción</th><th>Cant.</th><th>Und</th></tr>
<tr><td>EQ001</td><td>Variador   5kW</td><td>10</td><td>und</td></tr>
<tr><td></td><td></td><td></td><td></td></tr>
<tr><td>EQ002</td><td>Motor 10HP</td><td>1,5</td><td>m</td></tr>
</table>`

	raw, err := parseHTMLTables(html)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, "EQ001", raw[0].Code)
	assert.Equal(t, "Variador 5kW", raw[0].Description)
	assert.Equal(t, "10", raw[0].Quantity)
	assert.Equal(t, 2, raw[1].LineNo)

	rows, err := NormalizeRows("mail", raw)
	require.NoError(t, err)
	assert.Equal(t, 1.5, rows[1].Quantity)
}

func TestInferColumnsSharedProbe(t *testing.T) {
	cols := inferColumns([]string{"Código equipo", "Nombre del equipo", "Cantidad"})
	assert.Equal(t, 0, cols.code)
	assert.Equal(t, 1, cols.description)
	assert.Equal(t, 2, cols.quantity)
	assert.Equal(t, -1, cols.brand)
}

func TestLineToRawRow(t *testing.T) {
	raw, ok := lineToRawRow(internal.SourcePDF, "EQ001  Variador 5kW trifásico 4 und")
	require.True(t, ok)
	assert.Equal(t, "EQ001", raw.Code)
	assert.Equal(t, "Variador 5kW trifásico", raw.Description)
	assert.Equal(t, "4 und", raw.Quantity)
	assert.Equal(t, "und", raw.Unit)

	_, ok = lineToRawRow(internal.SourcePDF, "Código Descripción Cantidad")
	assert.False(t, ok)
	_, ok = lineToRawRow(internal.SourcePDF, "Página 2 de 3")
	assert.False(t, ok)
}

func TestParseEmailReadsTablesAndAttachments(t *testing.T) {
	attachment := mkXLSX([][]any{
		{"Código", "Descripción", "Cantidad"},
		{"EQ100", "Bomba centrífuga", 2},
	})
	part, err := enmime.Builder().
		From("Compras", "compras@example.com").
		To("Proyectos", "proyectos@example.com").
		Subject("Lista de equipos").
		HTML([]byte(`<table><tr><th>Código</th><th>Descripción</th><th>Cantidad</th></tr><tr><td>EQ001</td><td>Variador 5kW</td><td>1</td></tr></table>`)).
		AddAttachment(attachment, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "equipos.xlsx").
		Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, part.Encode(&buf))

	raw, err := parseEmail(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, "EQ001", raw[0].Code)
	assert.Equal(t, 1, raw[0].LineNo)
	assert.Equal(t, "EQ100", raw[1].Code)
	assert.Equal(t, 2, raw[1].LineNo)
	assert.Equal(t, internal.SourceEmail, raw[1].Source)
	assert.Equal(t, "equipos.xlsx", raw[1].Origin)
}
