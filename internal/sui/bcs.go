package sui

import (
	"fmt"

	"github.com/fardream/go-bcs/bcs"
)

// EncodeString returns the BCS encoding of a move String: the ULEB128 byte
// length followed by the UTF-8 bytes
func EncodeString(s string) []byte {
	data, err := bcs.Marshal(s)
	if err != nil {
		// bcs.Marshal only rejects unsupported kinds
		panic(fmt.Sprintf("encoding move string: %v", err))
	}
	return data
}

// DecodeString reads a BCS move String from the front of src and returns it
// with the number of bytes consumed
func DecodeString(src []byte) (string, int, error) {
	var s string
	n, err := bcs.Unmarshal(src, &s)
	if err != nil {
		return "", 0, fmt.Errorf("decoding move string: %w", err)
	}
	return s, n, nil
}
