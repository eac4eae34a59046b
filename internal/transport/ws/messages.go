package ws

import "github.com/parley-chat/session-service/internal/domain"

// Inbound event types.
const (
	TypeJoin           = "join"
	TypeChatMessage    = "chatMessage" // also outbound, echoed to the whole room
	TypeMessageSeen    = "messageSeen"
	TypeTyping         = "typing"
	TypeStopTyping     = "stopTyping"
	TypeAddReaction    = "addReaction"
	TypeRemoveReaction = "removeReaction"
	TypeTogglePin      = "togglePin"
	TypeEditMessage    = "editMessage"
	TypeDeleteMessage  = "deleteMessage"
	TypeSearchMessages = "searchMessages"
	TypeLeaveRoom      = "leaveRoom"
)

// Outbound event types.
const (
	TypeChatHistory       = "chatHistory"
	TypeOnlineUsers       = "onlineUsers"
	TypeActivityLog       = "activityLog"
	TypeUserTyping        = "userTyping"
	TypeUserStoppedTyping = "userStoppedTyping"
	TypeReactionAdded     = "reactionAdded"
	TypeReactionRemoved   = "reactionRemoved"
	TypeMessagePinned     = "messagePinned"
	TypeMessageEdited     = "messageEdited"
	TypeMessageDeleted    = "messageDeleted"
	TypeSearchResults     = "searchResults"
	TypeMessageDelivered  = "messageDelivered"
	TypeSeenUpdated       = "seenUpdated"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type JoinPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

type ChatMessagePayload struct {
	Room     string  `json:"room"`
	Username string  `json:"username"`
	Message  string  `json:"message"`
	ReplyTo  *string `json:"replyTo,omitempty"`
}

type SeenPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

type TypingPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	Username  string `json:"username"`
	Room      string `json:"room"`
}

type PinPayload struct {
	MessageID string `json:"messageId"`
	Room      string `json:"room"`
}

type EditPayload struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
	Username   string `json:"username"`
	Room       string `json:"room"`
}

type DeletePayload struct {
	MessageID string `json:"messageId"`
	Username  string `json:"username"`
	Room      string `json:"room"`
}

type SearchPayload struct {
	Room  string `json:"room"`
	Query string `json:"query"`
}

type UserTypingPayload struct {
	Username string `json:"username"`
}

type ReactionUpdatePayload struct {
	MessageID string           `json:"messageId"`
	Emoji     string           `json:"emoji"`
	Username  string           `json:"username"`
	Reactions domain.Reactions `json:"reactions"`
}

type PinnedPayload struct {
	MessageID string `json:"messageId"`
	Pinned    bool   `json:"pinned"`
}

type EditedPayload struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
	Edited    bool   `json:"edited"`
}

type DeletedPayload struct {
	MessageID string `json:"messageId"`
}

type DeliveredPayload struct {
	MessageID   string   `json:"messageId"`
	DeliveredTo []string `json:"deliveredTo"`
}

// SeenUpdatedPayload patches seenBy for the listed messages instead of
// re-sending the whole room history.
type SeenUpdatedPayload struct {
	MessageIDs []string `json:"messageIds"`
	Username   string   `json:"username"`
}
