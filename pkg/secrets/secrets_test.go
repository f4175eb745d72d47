package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cephKey = "AQBWGaBfAAAAABAA2yH0HvEWLyXX0Xs9fHa4hw=="

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "AQBW***", MaskValue(cephKey, StylePartial))
	assert.Equal(t, Replacement, MaskValue("short", StylePartial))
	assert.Equal(t, Replacement, MaskValue(cephKey, StyleFull))

	hashed := MaskValue(cephKey, StyleHash)
	assert.True(t, strings.HasPrefix(hashed, "sha256:"))
	assert.Len(t, hashed, len("sha256:")+16)
	assert.Equal(t, hashed, MaskValue(cephKey, StyleHash))
}

func TestDetector_Fields(t *testing.T) {
	d := Default()

	tests := map[string]bool{
		"password":      true,
		"client_secret": true,
		"X-API-Token":   true,
		"api_key":       true,
		"key":           false,
		"pool":          false,
		"keyring":       false,
	}
	for name, want := range tests {
		assert.Equal(t, want, d.IsSecretField(name), name)
	}
}

func TestDetector_Values(t *testing.T) {
	d := Default()

	ok, name := d.IsSecretValue("[client.admin]\n\tkey = " + cephKey)
	assert.True(t, ok)
	assert.Equal(t, "Ceph key", name)

	ok, _ = d.IsSecretValue("osd.3")
	assert.False(t, ok)

	assert.Equal(t, "key = AQBW***", d.MaskString("key = "+cephKey))
	assert.Equal(t, "Authorization: Bear***", d.MaskString("Authorization: Bearer abc.def"))
}

func TestDetector_MaskArgs(t *testing.T) {
	d := Default()
	args := map[string]any{
		"prefix":    "config-key set",
		"key":       "mgr/dashboard/password",
		"val":       cephKey,
		"password":  "correct horse battery",
		"ids":       []any{"osd.1", cephKey},
		"threshold": 5,
	}

	masked := d.MaskArgs(args)
	assert.Equal(t, "config-key set", masked["prefix"])
	assert.Equal(t, "mgr/dashboard/password", masked["key"])
	assert.Equal(t, "AQBW***", masked["val"])
	assert.Equal(t, "corr***", masked["password"])
	assert.Equal(t, []any{"osd.1", "AQBW***"}, masked["ids"])
	assert.Equal(t, 5, masked["threshold"])

	// the input is untouched
	assert.Equal(t, cephKey, args["val"])
}

func TestNewDetector_InvalidPattern(t *testing.T) {
	_, err := NewDetector(StyleFull, nil, []ValuePattern{{Name: "broken", Pattern: "("}})
	assert.Error(t, err)

	d, err := NewDetector(StyleFull, []string{"pin?"}, nil)
	require.NoError(t, err)
	assert.True(t, d.IsSecretField("pin1"))
	assert.False(t, d.IsSecretField("pin12"))
	assert.Equal(t, Replacement, d.Mask("1234"))
}
