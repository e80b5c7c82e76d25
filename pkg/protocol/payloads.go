package protocol

type StartPayload struct {
	UserID string `json:"userId"`
	Title  string `json:"title,omitempty"`
}

// ChunkPayload carries one audio fragment. AudioData is base64 in JSON.
// ChunkIndex is a pointer so a missing index can be told apart from 0.
type ChunkPayload struct {
	SessionID  string `json:"sessionId"`
	ChunkIndex *int   `json:"chunkIndex"`
	AudioData  []byte `json:"audioData"`
	Speaker    string `json:"speaker,omitempty"`
}

// SessionPayload is the body of pause, resume and end.
type SessionPayload struct {
	SessionID string `json:"sessionId"`
}

type HeartbeatPayload struct {
	SessionID string `json:"sessionId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// AckPayload is the body of every acknowledgment. Only the fields relevant to
// the acknowledged event are set.
type AckPayload struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	ChunkID    string `json:"chunkId,omitempty"`
	ChunkIndex *int   `json:"chunkIndex,omitempty"`
	Status     string `json:"status,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	ServerTime int64  `json:"serverTime,omitempty"`
}

type StatusPayload struct {
	Status    string `json:"status"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

type TranscriptPayload struct {
	SessionID  string `json:"sessionId"`
	ChunkIndex int    `json:"chunkIndex"`
	Text       string `json:"text"`
	Speaker    string `json:"speaker,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

type CompletedPayload struct {
	SessionID         string   `json:"sessionId"`
	SummaryID         string   `json:"summaryId"`
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"keyPoints"`
	ActionItems       []string `json:"actionItems"`
	Topics            []string `json:"topics"`
	DownloadReference string   `json:"downloadReference"`
	Timestamp         int64    `json:"timestamp"`
}

type ErrorPayload struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
