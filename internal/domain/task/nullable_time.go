package task

import (
	"bytes"
	"encoding/json"
	"time"
)

// NullableTime is a three-state JSON time: absent (Set=false, field left
// untouched on update), explicit null (Set=true, Value=nil, field cleared),
// or a value. UnmarshalJSON only runs when the key is present, which is what
// makes absence and null distinguishable.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true

	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}

	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}

	n.Value = &t
	return nil
}

func (n NullableTime) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
