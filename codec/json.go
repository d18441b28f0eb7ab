package codec

import "encoding/json"

// JSON uses encoding/json. Its output decodes with GoJSON and the other
// way round.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (JSON) Name() string { return "json" }
