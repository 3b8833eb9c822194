package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statewire/walletcore/pkg/wire"
)

type nestedFixture struct {
	Name     string          `json:"name"`
	Amounts  []string        `json:"amounts"`
	Children []nestedFixture `json:"children,omitempty"`
}

func TestNewParamsAndTranslateDeep(t *testing.T) {
	t.Parallel()

	in := nestedFixture{
		Name:    "root",
		Amounts: []string{"1", "2"},
		Children: []nestedFixture{
			{Name: "leaf", Amounts: []string{"3"}},
		},
	}

	params, err := wire.NewParams(in)
	require.NoError(t, err)
	assert.True(t, params.Has("children"))

	var out nestedFixture
	require.NoError(t, params.Translate(&out))
	assert.Equal(t, in, out)
}

func TestNewParamsNil(t *testing.T) {
	t.Parallel()

	params, err := wire.NewParams(nil)
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestDefensiveAccessors(t *testing.T) {
	t.Parallel()

	params, err := wire.NewParams(map[string]any{
		"address":   "0xabc",
		"chainId":   7,
		"codeStr":   "4001",
		"confirmed": true,
		"nothing":   nil,
		"record":    map[string]any{"hash": "0x1"},
		"records":   []map[string]any{{"hash": "0x1"}, {"hash": "0x2"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "0xabc", params.StringOr("address", ""))
	assert.Equal(t, "fallback", params.StringOr("missing", "fallback"))
	assert.Equal(t, "fallback", params.StringOr("chainId", "fallback"), "type mismatch falls back")
	assert.Equal(t, "fallback", params.StringOr("nothing", "fallback"), "null falls back")

	assert.Equal(t, int64(7), params.IntOr("chainId", 0))
	assert.Equal(t, int64(4001), params.IntOr("codeStr", 0), "numeric strings are accepted")
	assert.Equal(t, int64(-999), params.IntOr("missing", -999))

	assert.Equal(t, uint64(7), params.Uint64Or("chainId", 0))
	assert.Equal(t, uint64(0), params.Uint64Or("missing", 0))

	assert.True(t, params.BoolOr("confirmed", false))
	assert.False(t, params.BoolOr("missing", false))

	nested := params.ObjectOr("record")
	require.NotNil(t, nested)
	assert.Equal(t, "0x1", nested.StringOr("hash", ""))
	assert.Nil(t, params.ObjectOr("address"))

	seq := params.SliceOr("records")
	require.Len(t, seq, 2)
	assert.Equal(t, "0x1", seq[0].StringOr("hash", ""))
	assert.Equal(t, "0x2", seq[1].StringOr("hash", ""))
	assert.Nil(t, params.SliceOr("record"))

	assert.True(t, params.Has("nothing"))
	assert.False(t, params.Has("missing"))
}

func TestErrParams(t *testing.T) {
	t.Parallel()

	clean, err := wire.NewParams(map[string]any{"result": "ok"})
	require.NoError(t, err)
	assert.NoError(t, clean.Err())

	failed := wire.NewErrorParams("insufficient funds")
	require.Error(t, failed.Err())
	assert.Contains(t, failed.Err().Error(), "insufficient funds")
}

func TestErrTruthiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload map[string]any
		message string // "" with wantErr means the message is empty
		wantErr bool
	}{
		{"absent", map[string]any{"result": "ok"}, "", false},
		{"null", map[string]any{"error": nil}, "", false},
		{"false flag", map[string]any{"error": false, "result": "ok"}, "", false},
		{"zero flag", map[string]any{"error": 0}, "", false},
		{"empty string", map[string]any{"error": ""}, "", false},
		{"string message", map[string]any{"error": "denied"}, "denied", true},
		{"true flag with sibling message", map[string]any{"error": true, "message": "boom"}, "boom", true},
		{"true flag without message", map[string]any{"error": true}, "", true},
		{"numeric flag", map[string]any{"error": 1, "message": "boom"}, "boom", true},
		{"object with message", map[string]any{"error": map[string]any{"code": 4001, "message": "denied"}}, "denied", true},
		{"object without message", map[string]any{"error": map[string]any{"code": 4001}, "message": "outer"}, "outer", true},
		{"empty object", map[string]any{"error": map[string]any{}}, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			params, err := wire.NewParams(tc.payload)
			require.NoError(t, err)

			got := params.Err()
			if !tc.wantErr {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			assert.Equal(t, tc.message, got.Error())
		})
	}
}
