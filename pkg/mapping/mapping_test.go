package mapping

import (
	"testing"

	"github.com/mproffitt/folden/pkg/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRemove(t *testing.T) {
	m := New()
	_, ok := m.Get("/tmp/a")
	assert.False(t, ok)

	m.Set("/tmp/a", HandlerMapping{HandlerTypeName: "workflow", HandlerConfigPath: "/etc/a.toml"})
	h, ok := m.Get("/tmp/a")
	require.True(t, ok)
	assert.Equal(t, "workflow", h.HandlerTypeName)
	assert.False(t, h.Running())

	m.Remove("/tmp/a")
	assert.Equal(t, 0, m.Len())
}

func TestKeysSorted(t *testing.T) {
	m := New()
	for _, k := range []string{"/c", "/a", "/b"} {
		m.Set(k, HandlerMapping{HandlerTypeName: "workflow"})
	}
	assert.Equal(t, []string{"/a", "/b", "/c"}, m.Keys())
}

func TestRoundTripIgnoresRunningState(t *testing.T) {
	m := New()
	m.Set("/srv/in", HandlerMapping{
		Handle:            handler.NewHandle(2),
		HandlerTypeName:   "move-to-dir",
		HandlerConfigPath: "/etc/folden/in.toml",
	})
	m.Set("/srv/with \"quotes\"", HandlerMapping{
		HandlerTypeName:   "run-cmd",
		HandlerConfigPath: "/etc/folden/cmd.toml",
	})

	data, err := m.Bytes()
	require.NoError(t, err)

	decoded, err := FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, m.Keys(), decoded.Keys())
	for _, k := range m.Keys() {
		want, _ := m.Get(k)
		got, _ := decoded.Get(k)
		assert.Equal(t, want.HandlerTypeName, got.HandlerTypeName)
		assert.Equal(t, want.HandlerConfigPath, got.HandlerConfigPath)
		assert.Nil(t, got.Handle)
	}
}

func TestFromBytesEmpty(t *testing.T) {
	m, err := FromBytes([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestFromBytesCorrupt(t *testing.T) {
	for _, doc := range []string{
		"this is = = not toml",
		"[directory_mapping]\n\"/a\" = 3\n",
		"[directory_mapping.\"/a\"]\nhandler_config_path = \"/x\"\n",
		"unexpected = true\n",
	} {
		_, err := FromBytes([]byte(doc))
		assert.ErrorIs(t, err, ErrMappingCorrupt, doc)
	}
}
