package sui

import (
	"encoding/base64"
)

// ArgumentKind distinguishes object references from pure values
type ArgumentKind string

const (
	ArgObject ArgumentKind = "object"
	ArgPure   ArgumentKind = "pure"
)

// Argument is one positional argument of a move call
type Argument struct {
	Kind     ArgumentKind `json:"kind"`
	ObjectID string       `json:"objectId,omitempty"`
	Type     string       `json:"type,omitempty"`
	Value    string       `json:"value,omitempty"`
	BCS      string       `json:"bcs,omitempty"`
}

// Object references an on-chain object by id
func Object(id string) Argument {
	return Argument{Kind: ArgObject, ObjectID: id}
}

// PureString is a move String value together with its BCS bytes
func PureString(s string) Argument {
	return Argument{
		Kind:  ArgPure,
		Type:  "string",
		Value: s,
		BCS:   base64.StdEncoding.EncodeToString(EncodeString(s)),
	}
}

// MoveCall describes a contract call for the wallet to sign and submit
type MoveCall struct {
	Target    string     `json:"target"`
	Arguments []Argument `json:"arguments"`
}

// NewMoveCall builds a call description
func NewMoveCall(target string, args ...Argument) MoveCall {
	return MoveCall{Target: target, Arguments: args}
}
