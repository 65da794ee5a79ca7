package codec

import (
	"encoding/json"
	"fmt"
)

// ---------- JSON ----------

type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Encode(e FillEvent) ([]byte, error) {
	return json.Marshal(e)
}

func (JSON) Decode(data []byte) (FillEvent, error) {
	var e FillEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return FillEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return e, nil
}
