package domain

import "math"

// Message is one OSC message: an address and its typed arguments. Arguments
// are int32, float32, bool or string values.
type Message struct {
	Address string
	Args    []any
}

func NewMessage(address string, args ...any) Message {
	return Message{Address: address, Args: args}
}

// IntArg reads argument i as an integer. Floats are truncated and booleans
// map to 0 and 1.
func (m Message) IntArg(i int) (int, bool) {
	if i < 0 || i >= len(m.Args) {
		return 0, false
	}

	switch v := m.Args[i].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case int:
		return v, true
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (m Message) FloatArg(i int) (float64, bool) {
	if i < 0 || i >= len(m.Args) {
		return 0, false
	}

	switch v := m.Args[i].(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func (m Message) StringArg(i int) (string, bool) {
	if i < 0 || i >= len(m.Args) {
		return "", false
	}

	v, ok := m.Args[i].(string)
	return v, ok
}

func floatToInt(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(v), true
}
