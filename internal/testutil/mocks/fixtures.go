package mocks

import (
	"encoding/json"

	"github.com/gamedev-cards/internal/sui"
)

// MoveObject builds an object response whose content is a move object with the given fields
func MoveObject(id, typ string, fields map[string]any) sui.ObjectResponse {
	raw, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}
	return sui.ObjectResponse{Data: &sui.ObjectData{
		ObjectID: id,
		Type:     typ,
		Content: &sui.ParsedContent{
			DataType: "moveObject",
			Type:     typ,
			Fields:   raw,
		},
	}}
}

// PackageObject builds an object response whose content is not a move object
func PackageObject(id string) sui.ObjectResponse {
	return sui.ObjectResponse{Data: &sui.ObjectData{
		ObjectID: id,
		Content:  &sui.ParsedContent{DataType: "package"},
	}}
}

// UID renders a move UID field
func UID(id string) map[string]string {
	return map[string]string{"id": id}
}

// RegistryField builds a string-keyed dynamic field entry
func RegistryField(username, fieldID string) sui.DynamicFieldInfo {
	key, _ := json.Marshal(username)
	return sui.DynamicFieldInfo{
		Name:       sui.DynamicFieldName{Type: "0x1::string::String", Value: key},
		Type:       "DynamicField",
		ObjectType: "0x2::object::ID",
		ObjectID:   fieldID,
	}
}

// Cursor returns a pointer to a page cursor
func Cursor(s string) *string {
	return &s
}
