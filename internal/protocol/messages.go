package protocol

import (
	"encoding/json"

	"redstonemusic.ai/internal/sim/engine"
	"redstonemusic.ai/internal/sim/notes"
)

// GENERATE (client -> server)
type GenerateMsg struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version,omitempty"`
	RequestID       string             `json:"request_id,omitempty"`
	Format          string             `json:"format,omitempty"`
	Notes           []notes.PlacedNote `json:"notes"`
	Optimize        *bool              `json:"optimize,omitempty"`

	// Config overlays the server's projection defaults; same keys as the
	// YAML projection section.
	Config json.RawMessage `json:"config,omitempty"`
}

// PROGRESS (server -> client)
type ProgressMsg struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Stage     string `json:"stage"`
	Percent   int    `json:"percent"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type        string        `json:"type"`
	RequestID   string        `json:"request_id,omitempty"`
	Result      engine.Result `json:"result"`
	DownloadURL string        `json:"download_url,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func NewError(requestID, code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, RequestID: requestID, Code: code, Message: msg}
}
