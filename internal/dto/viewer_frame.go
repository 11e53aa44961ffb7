package dto

// ViewerFrame is the websocket message sent to live viewers.
type ViewerFrame struct {
	Camera     string      `json:"camera"`
	Image      string      `json:"image"` // base64 JPEG
	Detections []Detection `json:"detections"`
}
