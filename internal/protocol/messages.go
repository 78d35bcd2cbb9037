package protocol

import "time"

// Client event kinds accepted on the WebSocket. Unknown kinds are ignored.
const (
	TypeUserAudio       = "user_audio"
	TypeEndConversation = "end_conversation"
)

// Server event kinds.
const (
	TypeConnected         = "connected"
	TypeAssistantResponse = "assistant_response"
	TypeError             = "error"
	TypeConversationSaved = "conversation_saved"
)

// ClientEvent is an inbound frame. Audio is base64; raw bytes never cross
// the transport boundary.
type ClientEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"`
}

// Connected confirms session establishment.
type Connected struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// AssistantResponse carries one assistant turn back to the client.
type AssistantResponse struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Audio     string `json:"audio"`
	IsWelcome bool   `json:"is_welcome,omitempty"`
}

// ErrorEvent reports a recoverable processing failure. The session stays open.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ConversationSaved acknowledges an archive export.
type ConversationSaved struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
}

// TranscriptNotice mirrors a final transcript onto the bus.
type TranscriptNotice struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ReplyNotice mirrors an assistant reply onto the bus.
type ReplyNotice struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Welcome   bool      `json:"welcome,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SavedNotice mirrors a completed archive export onto the bus.
type SavedNotice struct {
	SessionID string    `json:"session_id"`
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectTranscriptFinal   = "voice.transcript.final"
	SubjectAssistantReply    = "voice.assistant.reply"
	SubjectConversationSaved = "voice.conversation.saved"
)
