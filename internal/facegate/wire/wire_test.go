package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

func TestAccessRequestFromStruct(t *testing.T) {
	level := 4
	in := AccessRequest{AccessRequest: types.AccessRequest{
		Vector:         []float32{0.5, -0.25, 1},
		TerminalID:     "door-7",
		MinAccessLevel: &level,
	}}
	s, err := AccessRequestToStruct(in)
	require.NoError(t, err)

	// Through the wire and back.
	raw, err := proto.Marshal(s)
	require.NoError(t, err)
	var decoded structpb.Struct
	require.NoError(t, proto.Unmarshal(raw, &decoded))

	got, err := AccessRequestFromStruct(&decoded)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestAccessRequestFromStruct_NullVectorIsNoFace(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"vector": nil})
	require.NoError(t, err)

	got, err := AccessRequestFromStruct(s)
	require.NoError(t, err)
	assert.Nil(t, got.Vector)
	assert.Nil(t, got.Image)
}

func TestAccessRequestFromStruct_Image(t *testing.T) {
	s, err := AccessRequestToStruct(AccessRequest{Image: []byte{0xff, 0xd8, 0xff}})
	require.NoError(t, err)
	_, hasVector := s.GetFields()["vector"]
	assert.False(t, hasVector)

	got, err := AccessRequestFromStruct(s)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, got.Image)
}

func TestAccessRequestFromStruct_BadFields(t *testing.T) {
	for name, m := range map[string]map[string]any{
		"vector string":    {"vector": "1,2,3"},
		"vector element":   {"vector": []any{1.0, "x"}},
		"terminal number":  {"terminal_id": 3},
		"fractional level": {"min_access_level": 2.5},
		"huge level":       {"min_access_level": 1e19},
		"negative huge":    {"min_access_level": -1e19},
		"bad base64":       {"image": "***"},
	} {
		s, err := structpb.NewStruct(m)
		require.NoError(t, err, name)
		_, err = AccessRequestFromStruct(s)
		assert.ErrorIs(t, err, ErrBadField, name)
	}
}

func TestAccessResponseStruct(t *testing.T) {
	dist := 0.125
	in := types.AccessResponse{
		Result:     "denied",
		Outcome:    types.OutcomeDeniedUnauthorized,
		Reason:     "access level 1 below required 3",
		IdentityID: "0b7c3f0e-4d53-4c61-a4b5-3d1f2d8c9e10",
		DecisionID: "9e1e0d4c-1f33-4a0f-9d1b-0c7a5b9b2a11",
		Distance:   &dist,
		ServerTime: "2026-02-15T12:00:00Z",
	}
	s, err := AccessResponseToStruct(in)
	require.NoError(t, err)
	assert.Equal(t, in, AccessResponseFromStruct(s))
}
