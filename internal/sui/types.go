package sui

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ObjectDataOptions selects which parts of an object the fullnode returns
type ObjectDataOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowOwner   bool `json:"showOwner,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
}

// ObjectFilter restricts an owned-objects query
type ObjectFilter struct {
	StructType string `json:"StructType,omitempty"`
}

// ObjectResponseQuery is the query argument of suix_getOwnedObjects
type ObjectResponseQuery struct {
	Filter  *ObjectFilter      `json:"filter,omitempty"`
	Options *ObjectDataOptions `json:"options,omitempty"`
}

// ObjectResponse wraps a single object lookup
type ObjectResponse struct {
	Data  *ObjectData          `json:"data,omitempty"`
	Error *ObjectResponseError `json:"error,omitempty"`
}

// ObjectResponseError is returned in place of data for deleted or missing objects
type ObjectResponseError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id,omitempty"`
}

// ObjectData is the body of an object as rendered by the fullnode
type ObjectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version,omitempty"`
	Digest   string         `json:"digest,omitempty"`
	Type     string         `json:"type,omitempty"`
	Owner    *Owner         `json:"owner,omitempty"`
	Content  *ParsedContent `json:"content,omitempty"`
}

// ParsedContent is the decoded move value of an object
type ParsedContent struct {
	DataType          string          `json:"dataType"`
	Type              string          `json:"type,omitempty"`
	HasPublicTransfer bool            `json:"hasPublicTransfer,omitempty"`
	Fields            json.RawMessage `json:"fields,omitempty"`
}

// IsMoveObject reports whether the content is a move object carrying fields
func (c *ParsedContent) IsMoveObject() bool {
	return c != nil && c.DataType == "moveObject" && len(c.Fields) > 0
}

// ObjectsPage is one page of an owned-objects query
type ObjectsPage struct {
	Data        []ObjectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

// DynamicFieldName is the key of a dynamic field
type DynamicFieldName struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// String returns the key when it is a string value
func (n DynamicFieldName) String() (string, bool) {
	var s string
	if err := json.Unmarshal(n.Value, &s); err != nil {
		return "", false
	}
	return s, true
}

// DynamicFieldInfo describes one child field under a parent object
type DynamicFieldInfo struct {
	Name       DynamicFieldName `json:"name"`
	BcsName    string           `json:"bcsName,omitempty"`
	Type       string           `json:"type,omitempty"`
	ObjectType string           `json:"objectType,omitempty"`
	ObjectID   string           `json:"objectId"`
	Digest     string           `json:"digest,omitempty"`
}

// DynamicFieldPage is one page of suix_getDynamicFields
type DynamicFieldPage struct {
	Data        []DynamicFieldInfo `json:"data"`
	NextCursor  *string            `json:"nextCursor"`
	HasNextPage bool               `json:"hasNextPage"`
}

// OwnerKind enumerates the ownership variants of an object
type OwnerKind string

const (
	OwnerAddress          OwnerKind = "AddressOwner"
	OwnerObject           OwnerKind = "ObjectOwner"
	OwnerShared           OwnerKind = "Shared"
	OwnerImmutable        OwnerKind = "Immutable"
	OwnerConsensusAddress OwnerKind = "ConsensusAddressOwner"
)

// Owner is the ownership metadata of an object
type Owner struct {
	Kind                 OwnerKind
	Address              string
	InitialSharedVersion uint64
}

// UnmarshalJSON accepts both the bare "Immutable" string and the tagged object forms
func (o *Owner) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != string(OwnerImmutable) {
			return fmt.Errorf("unknown owner kind %q", s)
		}
		*o = Owner{Kind: OwnerImmutable}
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("decoding owner: %w", err)
	}
	if len(tagged) != 1 {
		return errors.New("owner must have exactly one variant")
	}

	for kind, raw := range tagged {
		switch OwnerKind(kind) {
		case OwnerAddress, OwnerObject:
			var addr string
			if err := json.Unmarshal(raw, &addr); err != nil {
				return fmt.Errorf("decoding %s: %w", kind, err)
			}
			*o = Owner{Kind: OwnerKind(kind), Address: addr}
		case OwnerShared:
			var shared struct {
				InitialSharedVersion json.Number `json:"initial_shared_version"`
			}
			if err := json.Unmarshal(raw, &shared); err != nil {
				return fmt.Errorf("decoding Shared: %w", err)
			}
			v, _ := strconv.ParseUint(shared.InitialSharedVersion.String(), 10, 64)
			*o = Owner{Kind: OwnerShared, InitialSharedVersion: v}
		case OwnerConsensusAddress:
			var consensus struct {
				Owner string `json:"owner"`
			}
			if err := json.Unmarshal(raw, &consensus); err != nil {
				return fmt.Errorf("decoding ConsensusAddressOwner: %w", err)
			}
			*o = Owner{Kind: OwnerConsensusAddress, Address: consensus.Owner}
		default:
			return fmt.Errorf("unknown owner kind %q", kind)
		}
	}
	return nil
}

// MarshalJSON renders the owner in the fullnode's tagged form
func (o Owner) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OwnerImmutable:
		return json.Marshal(string(OwnerImmutable))
	case OwnerShared:
		return json.Marshal(map[string]any{
			"Shared": map[string]uint64{"initial_shared_version": o.InitialSharedVersion},
		})
	case OwnerConsensusAddress:
		return json.Marshal(map[string]any{
			"ConsensusAddressOwner": map[string]string{"owner": o.Address},
		})
	default:
		return json.Marshal(map[string]string{string(o.Kind): o.Address})
	}
}

// EventID is the cursor of an event query
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// MoveModuleFilter selects events emitted by a module
type MoveModuleFilter struct {
	Package string `json:"package"`
	Module  string `json:"module"`
}

// EventFilter is the query argument of suix_queryEvents
type EventFilter struct {
	MoveModule *MoveModuleFilter `json:"MoveModule,omitempty"`
}

// Event is one emitted move event
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson,omitempty"`
	TimestampMs       string          `json:"timestampMs,omitempty"`
}

// EventPage is one page of suix_queryEvents
type EventPage struct {
	Data        []Event  `json:"data"`
	NextCursor  *EventID `json:"nextCursor"`
	HasNextPage bool     `json:"hasNextPage"`
}
