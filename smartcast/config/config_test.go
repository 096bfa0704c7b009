package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	f := Defaults()
	require.NoError(t, f.Validate())

	c, err := NewContracts("", f)
	require.NoError(t, err)

	effects, ok := c.Effects("github.com/stretchr/testify/require.NotNil")
	require.True(t, ok)
	assert.Equal(t, []string{"returns() implies object != nil"}, effects)

	effects, ok = c.Effects("(*github.com/stretchr/testify/require.Assertions).NotNil")
	require.True(t, ok)
	assert.Equal(t, []string{"returns() implies object != nil"}, effects)

	_, ok = c.Effects("github.com/stretchr/testify/require.Equal")
	assert.False(t, ok)

	assert.True(t, c.ReflectNil("github.com/stretchr/testify/assert.Nil"))
	assert.True(t, c.ReflectNil("(*github.com/stretchr/testify/require.Assertions).NotNil"))
	assert.False(t, c.ReflectNil("github.com/stretchr/testify/require.NoError"))
	assert.False(t, c.ReflectNil("errors.As"))
}

func TestNewContracts_ReflectNil(t *testing.T) {
	data := []byte(`contracts:
  - func: a/b.Empty
    reflectNil: true
    effects:
      - returns(true) implies v == nil
  - func: a/b.IsNil
    effects:
      - returns(false) implies v != nil
`)
	f, err := Decode(data, FormatYAML)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	c, err := NewContracts("", f)
	require.NoError(t, err)
	assert.True(t, c.ReflectNil("a/b.Empty"))
	assert.False(t, c.ReflectNil("a/b.IsNil"))
	assert.False(t, c.ReflectNil("a/b.Missing"))

	var none *Contracts
	assert.False(t, none.ReflectNil("a/b.Empty"))
}

func TestNormalizeFunc(t *testing.T) {
	const mod = "example.com/app"

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"stdlib func", "errors.As", "errors.As", false},
		{"func", "github.com/a/b.F", "github.com/a/b.F", false},
		{"pointer method", "github.com/a/b.(*T).M", "(*github.com/a/b.T).M", false},
		{"value method parens", "github.com/a/b.(T).M", "(github.com/a/b.T).M", false},
		{"value method", "github.com/a/b.T.M", "(github.com/a/b.T).M", false},
		{"full name form", "(*github.com/a/b.T).M", "(*github.com/a/b.T).M", false},
		{"module relative", "./internal/store.(*DB).Lookup", "(*example.com/app/internal/store.DB).Lookup", false},
		{"module root", ".Run", "example.com/app.Run", false},
		{"module root method", ".Server.Start", "(example.com/app.Server).Start", false},
		{"no function", "github.com/a/b", "", true},
		{"trailing dot", "github.com/a/b.", "", true},
		{"broken method", "github.com/a/b.(*T.M", "", true},
		{"too many dots", "github.com/a/b.T.M.X", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeFunc(tt.in, mod)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEntry)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeFunc("./pkg.F", "")
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		wantErr bool
	}{
		{"empty", File{}, false},
		{"valid", File{Contracts: []Entry{{Func: "a/b.F", Effects: []string{"returns(true) implies x != nil"}}}}, false},
		{"module relative", File{Contracts: []Entry{{Func: "./b.F", Effects: []string{"returns() implies ok"}}}}, false},
		{"missing func", File{Contracts: []Entry{{Effects: []string{"returns() implies ok"}}}}, true},
		{"no effects", File{Contracts: []Entry{{Func: "a/b.F"}}}, true},
		{"bad effect", File{Contracts: []Entry{{Func: "a/b.F", Effects: []string{"x != nil"}}}}, true},
		{"bad name", File{Contracts: []Entry{{Func: "F", Effects: []string{"returns() implies ok"}}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEntry)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewContracts_LaterOverrides(t *testing.T) {
	first := &File{Contracts: []Entry{
		{Func: "a/b.F", Effects: []string{"returns(true) implies x != nil"}},
		{Func: "a/b.G", Effects: []string{"returns() implies ok"}},
	}}
	second := &File{Contracts: []Entry{
		{Func: "a/b.F", Effects: []string{"returns(false) implies x == nil"}},
	}}

	c, err := NewContracts("", first, nil, second)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	effects, _ := c.Effects("a/b.F")
	assert.Equal(t, []string{"returns(false) implies x == nil"}, effects)

	var none *Contracts
	_, ok := none.Effects("a/b.F")
	assert.False(t, ok)
	assert.Equal(t, 0, none.Len())
}

func TestEncodeDecode(t *testing.T) {
	f := &File{Contracts: []Entry{
		{Func: "./store.(*DB).Lookup", Effects: []string{"returns(true) implies out != nil"}},
	}}

	for _, format := range []Format{FormatYAML, FormatMsgpack} {
		var buf bytes.Buffer
		require.NoError(t, f.Encode(&buf, format))

		got, err := Decode(buf.Bytes(), format)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := Decode([]byte("contracts: [unterminated"), FormatYAML)
	assert.Error(t, err)
	_, err = Decode([]byte{0xc1}, FormatMsgpack)
	assert.Error(t, err)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatMsgpack, FormatOf("contracts.msgpack"))
	assert.Equal(t, FormatMsgpack, FormatOf("contracts.MPK"))
	assert.Equal(t, FormatYAML, FormatOf("contracts.yaml"))
	assert.Equal(t, FormatYAML, FormatOf("contracts"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`contracts:
  - func: example.com/app/store.Lookup
    effects:
      - returns(true) implies out != nil
`), 0o644))

	f, err := LoadFile(good)
	require.NoError(t, err)
	require.Len(t, f.Contracts, 1)
	assert.Equal(t, "example.com/app/store.Lookup", f.Contracts[0].Func)

	compiled := filepath.Join(dir, "good.msgpack")
	require.NoError(t, f.Save(compiled))
	g, err := LoadFile(compiled)
	require.NoError(t, err)
	assert.Equal(t, f, g)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("contracts:\n  - func: a/b.F\n    effects: [\"oops\"]\n"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Contains(t, err.Error(), bad)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindModuleAndLoad(t *testing.T) {
	ResetCache()
	t.Cleanup(ResetCache)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/app\n\ngo 1.23\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFile), []byte(`contracts:
  - func: ./internal/store.(*DB).Lookup
    effects:
      - returns(true) implies out != nil
`), 0o644))
	pkgDir := filepath.Join(root, "internal", "store")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))

	m := FindModule(pkgDir)
	assert.Equal(t, root, m.Root)
	assert.Equal(t, "example.com/app", m.Path)

	extra := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(extra, []byte(`contracts:
  - func: .Run
    effects:
      - returns() implies cfg != nil
`), 0o644))

	c, err := Load(pkgDir, extra)
	require.NoError(t, err)

	_, ok := c.Effects("(*example.com/app/internal/store.DB).Lookup")
	assert.True(t, ok, "project file")
	_, ok = c.Effects("example.com/app.Run")
	assert.True(t, ok, "explicit file")
	_, ok = c.Effects("github.com/stretchr/testify/require.NotNil")
	assert.True(t, ok, "defaults")

	again, err := Load(pkgDir, extra)
	require.NoError(t, err)
	assert.Same(t, c, again)
}

func TestFindModule_NotFound(t *testing.T) {
	ResetCache()
	t.Cleanup(ResetCache)

	m := FindModule(string(filepath.Separator))
	assert.Equal(t, Module{}, m)
}
