package chat

import "encoding/json"

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// encodeEvent 编码下行帧 {"event": ..., "data": ...}
func encodeEvent(event string, data any) ([]byte, error) {
	return json.Marshal(frame{Event: event, Data: data})
}
