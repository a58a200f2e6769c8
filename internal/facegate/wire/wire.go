// Package wire converts between the facegate request/response types and the
// protobuf Struct messages carried over gRPC and application/x-protobuf HTTP.
package wire

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

var ErrBadField = errors.New("bad field")

// AccessRequest is the decoded form of an access Struct. Image is set when
// the caller sent a base64 "image" field instead of a vector.
type AccessRequest struct {
	types.AccessRequest
	Image []byte
}

// AccessRequestFromStruct reads vector (list of numbers or null),
// terminal_id, min_access_level and image (base64).
func AccessRequestFromStruct(s *structpb.Struct) (AccessRequest, error) {
	var out AccessRequest
	fields := s.GetFields()

	if v, ok := fields["vector"]; ok {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_NullValue:
		case *structpb.Value_ListValue:
			values := kind.ListValue.GetValues()
			vec := make([]float32, len(values))
			for i, x := range values {
				n, ok := x.GetKind().(*structpb.Value_NumberValue)
				if !ok {
					return AccessRequest{}, fmt.Errorf("%w: vector[%d] is not a number", ErrBadField, i)
				}
				vec[i] = float32(n.NumberValue)
			}
			out.Vector = vec
		default:
			return AccessRequest{}, fmt.Errorf("%w: vector must be a list or null", ErrBadField)
		}
	}

	if v, ok := fields["terminal_id"]; ok {
		str, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return AccessRequest{}, fmt.Errorf("%w: terminal_id must be a string", ErrBadField)
		}
		out.TerminalID = str.StringValue
	}

	if v, ok := fields["min_access_level"]; ok {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
			return AccessRequest{}, fmt.Errorf("%w: min_access_level must be an integer", ErrBadField)
		}
		if n.NumberValue < math.MinInt32 || n.NumberValue > math.MaxInt32 {
			return AccessRequest{}, fmt.Errorf("%w: min_access_level out of range", ErrBadField)
		}
		level := int(n.NumberValue)
		out.MinAccessLevel = &level
	}

	if v, ok := fields["image"]; ok {
		str, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return AccessRequest{}, fmt.Errorf("%w: image must be a base64 string", ErrBadField)
		}
		img, err := base64.StdEncoding.DecodeString(str.StringValue)
		if err != nil {
			return AccessRequest{}, fmt.Errorf("%w: image: %w", ErrBadField, err)
		}
		out.Image = img
	}
	return out, nil
}

// AccessRequestToStruct is the client-side inverse of AccessRequestFromStruct.
func AccessRequestToStruct(req AccessRequest) (*structpb.Struct, error) {
	m := map[string]any{}
	if req.Vector != nil {
		vec := make([]any, len(req.Vector))
		for i, x := range req.Vector {
			vec[i] = float64(x)
		}
		m["vector"] = vec
	} else if req.Image == nil {
		m["vector"] = nil
	}
	if req.TerminalID != "" {
		m["terminal_id"] = req.TerminalID
	}
	if req.MinAccessLevel != nil {
		m["min_access_level"] = *req.MinAccessLevel
	}
	if req.Image != nil {
		m["image"] = base64.StdEncoding.EncodeToString(req.Image)
	}
	return structpb.NewStruct(m)
}

func AccessResponseToStruct(r types.AccessResponse) (*structpb.Struct, error) {
	m := map[string]any{
		"result":      r.Result,
		"outcome":     string(r.Outcome),
		"granted":     r.Granted,
		"reason":      r.Reason,
		"decision_id": r.DecisionID,
		"server_time": r.ServerTime,
	}
	if r.IdentityID != "" {
		m["identity_id"] = r.IdentityID
	}
	if r.Distance != nil {
		m["distance"] = *r.Distance
	}
	return structpb.NewStruct(m)
}

// AccessResponseFromStruct decodes a response Struct; unknown fields are
// ignored.
func AccessResponseFromStruct(s *structpb.Struct) types.AccessResponse {
	f := s.GetFields()
	resp := types.AccessResponse{
		Result:     f["result"].GetStringValue(),
		Outcome:    types.Outcome(f["outcome"].GetStringValue()),
		Granted:    f["granted"].GetBoolValue(),
		Reason:     f["reason"].GetStringValue(),
		IdentityID: f["identity_id"].GetStringValue(),
		DecisionID: f["decision_id"].GetStringValue(),
		ServerTime: f["server_time"].GetStringValue(),
	}
	if v, ok := f["distance"]; ok {
		d := v.GetNumberValue()
		resp.Distance = &d
	}
	return resp
}
