package relay

import (
	"errors"
	"fmt"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/hypebeast/go-osc/osc"
)

var ErrUnsupportedArgument = errors.New("unsupported OSC argument")

// Decode parses one datagram. Bundles are flattened in order.
func Decode(data []byte) (messages []domain.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			messages, err = nil, fmt.Errorf("decode packet: malformed: %v", r)
		}
	}()

	packet, err := osc.ParsePacket(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode packet: %w", err)
	}

	collect(packet, &messages)
	if len(messages) == 0 {
		return nil, errors.New("decode packet: no messages")
	}
	return messages, nil
}

func collect(packet osc.Packet, out *[]domain.Message) {
	switch p := packet.(type) {
	case *osc.Message:
		*out = append(*out, domain.Message{Address: p.Address, Args: append([]any(nil), p.Arguments...)})
	case *osc.Bundle:
		for _, msg := range p.Messages {
			collect(msg, out)
		}
		for _, bundle := range p.Bundles {
			collect(bundle, out)
		}
	}
}

// Encode builds the wire form of msg. Go ints and float64 values are narrowed
// to the 32-bit types the peer expects.
func Encode(msg domain.Message) ([]byte, error) {
	out := osc.NewMessage(msg.Address)
	for i, arg := range msg.Args {
		switch v := arg.(type) {
		case int:
			out.Append(int32(v))
		case int32, float32, bool, string:
			out.Append(v)
		case uint8:
			out.Append(int32(v))
		case float64:
			out.Append(float32(v))
		default:
			return nil, fmt.Errorf("encode %s arg %d (%T): %w", msg.Address, i, arg, ErrUnsupportedArgument)
		}
	}

	data, err := out.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Address, err)
	}
	return data, nil
}
