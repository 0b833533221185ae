package protocol

import "encoding/json"

// Encode serializes a message and injects its type tag.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	tag, err := json.Marshal(m.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = tag

	return json.Marshal(fields)
}
