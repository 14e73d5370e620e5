package types

// Theme is the closed set of room color themes.
type Theme string

const (
	ThemeDark   Theme = "dark"
	ThemePurple Theme = "purple"
	ThemeGreen  Theme = "green"
	ThemeRed    Theme = "red"
	ThemeBlue   Theme = "blue"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeDark, ThemePurple, ThemeGreen, ThemeRed, ThemeBlue:
		return true
	}
	return false
}

// Status is a participant's connection state within a room.
type Status string

const (
	StatusOnline Status = "online"
	StatusInCall Status = "in-call"
	StatusAway   Status = "away"
)

type Room struct {
	Id               string `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	CreatedAt        int64  `json:"createdAt"`
	ParticipantCount int    `json:"participantCount"`
	Theme            Theme  `json:"theme"`
}

type Participant struct {
	Id              string `json:"id"`
	RoomId          string `json:"roomId"`
	Username        string `json:"username"`
	Status          Status `json:"status"`
	IsMuted         bool   `json:"isMuted"`
	IsDeafened      bool   `json:"isDeafened"`
	IsScreenSharing bool   `json:"isScreenSharing"`
	IsPushToTalk    bool   `json:"isPushToTalk"`
	IsVoiceActive   bool   `json:"isVoiceActive"`
	IsModerator     bool   `json:"isModerator,omitempty"`
	IsVideoOn       bool   `json:"isVideoOn,omitempty"`
	JoinedAt        int64  `json:"joinedAt"`
}

// ParticipantUpdate is a partial update to a participant's presence
// flags. Nil fields are left untouched on apply.
type ParticipantUpdate struct {
	Status          *Status `json:"status,omitempty"`
	IsMuted         *bool   `json:"isMuted,omitempty"`
	IsDeafened      *bool   `json:"isDeafened,omitempty"`
	IsScreenSharing *bool   `json:"isScreenSharing,omitempty"`
	IsPushToTalk    *bool   `json:"isPushToTalk,omitempty"`
	IsVoiceActive   *bool   `json:"isVoiceActive,omitempty"`
	IsModerator     *bool   `json:"isModerator,omitempty"`
	IsVideoOn       *bool   `json:"isVideoOn,omitempty"`
}

func (u ParticipantUpdate) Apply(p *Participant) {
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.IsMuted != nil {
		p.IsMuted = *u.IsMuted
	}
	if u.IsDeafened != nil {
		p.IsDeafened = *u.IsDeafened
	}
	if u.IsScreenSharing != nil {
		p.IsScreenSharing = *u.IsScreenSharing
	}
	if u.IsPushToTalk != nil {
		p.IsPushToTalk = *u.IsPushToTalk
	}
	if u.IsVoiceActive != nil {
		p.IsVoiceActive = *u.IsVoiceActive
	}
	if u.IsModerator != nil {
		p.IsModerator = *u.IsModerator
	}
	if u.IsVideoOn != nil {
		p.IsVideoOn = *u.IsVideoOn
	}
}

type MessageType string

const (
	MessageTypeUser   MessageType = "user"
	MessageTypeSystem MessageType = "system"
)

// Attachment is an inline file attachment carried on a chat message.
// DataURL holds the base64 encoded payload.
type Attachment struct {
	Name    string `json:"name" validate:"required,max=255"`
	Type    string `json:"type"`
	Size    int64  `json:"size" validate:"gte=0"`
	DataURL string `json:"dataUrl" validate:"required"`
}

type Message struct {
	Id         string              `json:"id"`
	RoomId     string              `json:"roomId"`
	UserId     string              `json:"userId"`
	Username   string              `json:"username"`
	Content    string              `json:"content"`
	Timestamp  int64               `json:"timestamp"`
	Type       MessageType         `json:"type"`
	Attachment *Attachment         `json:"attachment,omitempty"`
	Reactions  map[string][]string `json:"reactions,omitempty"`
	IsEdited   bool                `json:"isEdited,omitempty"`
	EditedAt   int64               `json:"editedAt,omitempty"`
}
