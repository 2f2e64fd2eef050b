package plugin

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviousMap_Inline(t *testing.T) {
	m := `{"version":3,"sources":["a.scss"]}`
	css := []byte("a{color:red}\n/*# sourceMappingURL=data:application/json;charset=utf-8;base64," +
		base64.StdEncoding.EncodeToString([]byte(m)) + " */\n")

	assert.Equal(t, m, string(PreviousMap("build/a.css", css, nil)))
}

func TestPreviousMap_ExternalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "maps"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maps", "a.css.map"), []byte(`{"version":3}`), 0o600))

	css := []byte("a{color:red}\n/*# sourceMappingURL=maps/a.css.map */\n")

	assert.Equal(t, `{"version":3}`, string(PreviousMap(filepath.Join(dir, "a.css"), css, os.ReadFile)))
	assert.Nil(t, PreviousMap(filepath.Join(dir, "a.css"), css, nil))
}

func TestPreviousMap_NoneOrUnreadable(t *testing.T) {
	dir := t.TempDir()

	assert.Nil(t, PreviousMap("a.css", []byte("a{color:red}\n"), os.ReadFile))
	assert.Nil(t, PreviousMap(filepath.Join(dir, "a.css"), []byte("/*# sourceMappingURL=missing.map */"), os.ReadFile))
	assert.Nil(t, PreviousMap("a.css", []byte("/*# sourceMappingURL=https://cdn.example.com/a.map */"), os.ReadFile))
	assert.Nil(t, PreviousMap("a.css", []byte("/*# sourceMappingURL=data:application/json;base64,!!! */"), nil))
}
