package encoding

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func decodeAll(t *testing.T, input []byte) string {
	t.Helper()

	r, err := NewUTF8Reader(strings.NewReader(string(input)))
	require.NoError(t, err)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestUTF8PassedThrough(t *testing.T) {
	got := decodeAll(t, []byte("Data operazione;Descrizione;Importo"))
	assert.Equal(t, "Data operazione;Descrizione;Importo", got)
}

func TestUTF8BOMStripped(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("saldo finale")...)
	assert.Equal(t, "saldo finale", decodeAll(t, input))
}

func TestUTF16LEDecoded(t *testing.T) {
	encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	encoded, err := encoder.String("bonifico in entrata")
	require.NoError(t, err)

	assert.Equal(t, "bonifico in entrata", decodeAll(t, []byte(encoded)))
}

func TestWindows1252Decoded(t *testing.T) {
	encoder := charmap.Windows1252.NewEncoder()
	encoded, err := encoder.String("prélèvement café 12,50 €")
	require.NoError(t, err)

	assert.Equal(t, "prélèvement café 12,50 €", decodeAll(t, []byte(encoded)))
}
