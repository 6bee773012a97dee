package wireproto

import "encoding/json"

// Encode serializes a Message to its wire payload (the bytes that go after
// the length prefix). The payload format is JSON: the protobuf schema
// compiler mentioned in spec.md §1 is an external collaborator out of
// scope for this repo, and the examples pack carries no protobuf runtime
// for a bespoke tagged union of this shape, so the codec follows the
// length-prefixed-JSON pattern the DJI adapter in this codebase already
// used for its own framed link.
func Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode parses a wire payload into a Message. Decoders that see an
// unparseable payload surface TagUnknown rather than an error — per §4.1,
// "decoders that see an unparseable payload surface UNKNOWN; higher layers
// log and discard" — so only truly fatal I/O errors propagate.
func Decode(payload []byte) *Message {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return &Message{Tag: TagUnknown}
	}

	if !msg.hasExactlyOneVariant() {
		return &Message{Tag: TagUnknown}
	}

	return &msg
}

// hasExactlyOneVariant reports whether exactly one tagged field is
// populated and it matches the declared Tag.
func (m *Message) hasExactlyOneVariant() bool {
	set := 0
	match := false

	check := func(tag Tag, present bool) {
		if present {
			set++
			if tag == m.Tag {
				match = true
			}
		}
	}

	check(TagStatus, m.Status != nil)
	check(TagConfigMission, m.ConfigMission != nil)
	check(TagCommand, m.Command != nil)
	check(TagPlannerMessage, m.PlannerMessage != nil)
	check(TagPlannerResponseList, m.PlannerResponseList != nil)
	check(TagDroneCommand, m.DroneCommand != nil)

	return set == 1 && match
}
