package sui_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedev-cards/internal/sui"
)

func TestOwner_Unmarshal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want sui.Owner
	}{
		{"address", `{"AddressOwner":"0xa1"}`, sui.Owner{Kind: sui.OwnerAddress, Address: "0xa1"}},
		{"object", `{"ObjectOwner":"0xb2"}`, sui.Owner{Kind: sui.OwnerObject, Address: "0xb2"}},
		{"shared", `{"Shared":{"initial_shared_version":42}}`, sui.Owner{Kind: sui.OwnerShared, InitialSharedVersion: 42}},
		{"immutable", `"Immutable"`, sui.Owner{Kind: sui.OwnerImmutable}},
		{"consensus", `{"ConsensusAddressOwner":{"owner":"0xc3","start_version":7}}`, sui.Owner{Kind: sui.OwnerConsensusAddress, Address: "0xc3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var o sui.Owner
			require.NoError(t, json.Unmarshal([]byte(tc.in), &o))
			assert.Equal(t, tc.want, o)

			out, err := json.Marshal(o)
			require.NoError(t, err)
			var again sui.Owner
			require.NoError(t, json.Unmarshal(out, &again))
			assert.Equal(t, o, again)
		})
	}
}

func TestOwner_UnmarshalRejectsUnknown(t *testing.T) {
	var o sui.Owner
	assert.Error(t, json.Unmarshal([]byte(`"Frozen"`), &o))
	assert.Error(t, json.Unmarshal([]byte(`{"Mystery":"0x1"}`), &o))
	assert.Error(t, json.Unmarshal([]byte(`{"AddressOwner":"0x1","ObjectOwner":"0x2"}`), &o))
}

func TestDynamicFieldName_String(t *testing.T) {
	s, ok := sui.DynamicFieldName{Type: "0x1::string::String", Value: json.RawMessage(`"nova"`)}.String()
	assert.True(t, ok)
	assert.Equal(t, "nova", s)

	_, ok = sui.DynamicFieldName{Type: "u64", Value: json.RawMessage(`12`)}.String()
	assert.False(t, ok)
}

func TestDecodeFields(t *testing.T) {
	content := &sui.ParsedContent{
		DataType: "moveObject",
		Fields:   json.RawMessage(`{"id":{"id":"0xp1"},"name":"Nova","tags":["Action","RPG"],"count":3}`),
	}
	fields, err := sui.DecodeFields(content)
	require.NoError(t, err)

	id, ok := fields.UID("id")
	assert.True(t, ok)
	assert.Equal(t, "0xp1", id)
	assert.Equal(t, "Nova", fields.String("name"))
	assert.Equal(t, "", fields.String("count"))
	assert.Equal(t, "", fields.String("missing"))
	assert.Equal(t, []string{"Action", "RPG"}, fields.Strings("tags"))

	_, ok = fields.UID("name")
	assert.False(t, ok)
}

func TestDecodeFields_NotMoveObject(t *testing.T) {
	_, err := sui.DecodeFields(nil)
	assert.ErrorIs(t, err, sui.ErrNotMoveObject)

	_, err = sui.DecodeFields(&sui.ParsedContent{DataType: "package"})
	assert.ErrorIs(t, err, sui.ErrNotMoveObject)
}
