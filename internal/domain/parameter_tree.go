package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParameterTree is a read-only JSON document describing the peer's parameter
// tree. The zero value is the empty tree.
type ParameterTree struct {
	root any
}

func ParseParameterTree(data []byte) (ParameterTree, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return ParameterTree{}, fmt.Errorf("decode parameter tree: %w", err)
	}

	return ParameterTree{root: root}, nil
}

func (t ParameterTree) IsEmpty() bool {
	return t.root == nil
}

// Has reports whether an RFC 6901 pointer resolves inside the tree.
func (t ParameterTree) Has(pointer string) bool {
	_, ok := t.Lookup(pointer)
	return ok
}

func (t ParameterTree) Lookup(pointer string) (any, bool) {
	if t.root == nil {
		return nil, false
	}

	tokens, err := splitPointer(pointer)
	if err != nil {
		return nil, false
	}

	node := t.root
	for _, token := range tokens {
		switch current := node.(type) {
		case map[string]any:
			next, ok := current[token]
			if !ok {
				return nil, false
			}
			node = next
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(current) {
				return nil, false
			}
			node = current[index]
		default:
			return nil, false
		}
	}

	return node, true
}

// MarshalJSON renders the tree back to JSON; the empty tree is null.
func (t ParameterTree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.root)
}

func splitPointer(pointer string) ([]string, error) {
	if pointer == "" {
		return nil, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPointer, pointer)
	}

	tokens := strings.Split(pointer[1:], "/")
	for i, token := range tokens {
		token = strings.ReplaceAll(token, "~1", "/")
		tokens[i] = strings.ReplaceAll(token, "~0", "~")
	}
	return tokens, nil
}
