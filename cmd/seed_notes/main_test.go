package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func latin1(t *testing.T, s string) *bytes.Reader {
	t.Helper()
	enc, err := charmap.ISO8859_1.NewEncoder().String(s)
	require.NoError(t, err)
	return bytes.NewReader([]byte(enc))
}

func TestReadNotes_AgrupaPorClaveYDecodificaLatin1(t *testing.T) {
	csv := "access_key;number;series;issue_date;operation;tax_id;name;code;description;unit;qty;unit_value\n" +
		"K1;100;1;2024-03-01;INBOUND;123;Distribuidora Ñandú;PRD-1;Café molido;UN;10,5;2,00\n" +
		"K1;100;1;2024-03-01;inbound;123;Distribuidora Ñandú;PRD-2;Azúcar;KG;3;1\n" +
		"K2;101;1;2024-03-02;outbound;456;Cliente;PRD-1;Café molido;UN;1;2\n"

	notes, err := readNotes(transform.NewReader(latin1(t, csv), charmap.ISO8859_1.NewDecoder()))
	require.NoError(t, err)
	require.Len(t, notes, 2)

	assert.Equal(t, "K1", notes[0].accessKey)
	assert.Equal(t, "inbound", notes[0].operation)
	assert.Equal(t, "Distribuidora Ñandú", notes[0].counterparty)
	require.Len(t, notes[0].lines, 2)
	assert.Equal(t, "Café molido", notes[0].lines[0].description)
	assert.Equal(t, "10.5", notes[0].lines[0].quantity.String())
	assert.Equal(t, "outbound", notes[1].operation)
}

func TestReadNotes_OperacionInvalida(t *testing.T) {
	csv := "h;h;h;h;h;h;h;h;h;h;h;h\nK1;1;1;2024-03-01;transfer;1;x;P;d;UN;1;1\n"
	_, err := readNotes(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operación")
}

func TestWriteSQL_EscapaComillas(t *testing.T) {
	csv := "h;h;h;h;h;h;h;h;h;h;h;h\nK1;1;1;2024-03-01;inbound;1;O'Brien;P;d;UN;2;3\n"
	notes, err := readNotes(strings.NewReader(csv))
	require.NoError(t, err)

	var out bytes.Buffer
	n := writeSQL(&out, notes)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "O''Brien")
	assert.Contains(t, out.String(), "6.00")
}
