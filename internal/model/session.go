package model

import "time"

// RemoteSessionType enumerates spec.md's RemoteSession.type values.
type RemoteSessionType string

const (
	SessionTerminal     RemoteSessionType = "terminal"
	SessionDesktop      RemoteSessionType = "desktop"
	SessionFileTransfer RemoteSessionType = "file_transfer"
)

// RemoteSessionStatus enumerates spec.md's RemoteSession.status values.
type RemoteSessionStatus string

const (
	RemoteSessionPending      RemoteSessionStatus = "pending"
	RemoteSessionConnecting   RemoteSessionStatus = "connecting"
	RemoteSessionActive       RemoteSessionStatus = "active"
	RemoteSessionDisconnected RemoteSessionStatus = "disconnected"
	RemoteSessionFailed       RemoteSessionStatus = "failed"
)

// ICECandidate is one ICE candidate exchanged during signaling.
type ICECandidate struct {
	Candidate     string
	SDPMid        string
	SDPMLineIndex int
}

// RemoteSession mediates a WebRTC-adjacent signaling exchange between
// an operator (UserID) and a Device, relayed but never decoded by the
// control plane.
type RemoteSession struct {
	ID               string
	DeviceID         string
	UserID           string
	OrgID            string
	Type             RemoteSessionType
	Status           RemoteSessionStatus
	Offer            *string
	Answer           *string
	ICECandidates    []ICECandidate
	StartedAt        time.Time
	EndedAt          *time.Time
	BytesTransferred int64
}

// OwnedByUser reports whether userID may mutate offer/answer/ice/end
// per spec.md §3's ownership invariant.
func (s RemoteSession) OwnedByUser(userID string) bool {
	return s.UserID == userID
}

// FileTransferDirection enumerates upload vs download.
type FileTransferDirection string

const (
	TransferUpload   FileTransferDirection = "upload"
	TransferDownload FileTransferDirection = "download"
)

// FileTransfer tracks one file move, optionally attached to a
// RemoteSession (file_transfer-type sessions), or standalone.
type FileTransfer struct {
	ID              string
	SessionID       *string
	DeviceID        string
	UserID          string
	Direction       FileTransferDirection
	RemotePath      string
	Size            int64
	Status          string
	ProgressPercent int
}
