package whatsapp

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"

	"github.com/kartavyaai/kartavyabot/internal/contacts"
	"github.com/kartavyaai/kartavyabot/internal/message"
)

// downloadFunc fetches the attachment of a WhatsApp message.
type downloadFunc func(ctx context.Context, msg *waE2E.Message) ([]byte, error)

// ignored reports whether an inbound message must not be answered: our own
// messages, status updates and group chats.
func ignored(info types.MessageInfo) bool {
	return info.IsFromMe || info.IsGroup || info.Chat.Server == types.BroadcastServer
}

// toEvent converts a WhatsApp message into a bot event. Media is downloaded
// lazily through dl.
func toEvent(info types.MessageInfo, msg *waE2E.Message, dl downloadFunc) *message.Event {
	ev := &message.Event{
		ID:        info.ID,
		Sender:    info.Sender.ToNonAD().String(),
		PushName:  info.PushName,
		Body:      textOf(msg),
		Type:      message.MediaTypeChat,
		Timestamp: info.Timestamp,
	}
	if ev.ID == "" {
		ev.ID = message.NewID()
	}

	mediaType, mimeType, ok := mediaOf(msg)
	if !ok {
		return ev
	}
	ev.Type = mediaType
	ev.HasMedia = true
	ev.Download = func(ctx context.Context) (*message.Media, error) {
		data, err := dl(ctx, msg)
		if err != nil {
			return nil, err
		}
		return &message.Media{Data: data, MimeType: mimeType}, nil
	}
	return ev
}

// textOf returns the message text or the caption of a media message.
func textOf(msg *waE2E.Message) string {
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage().GetCaption() != "":
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage().GetCaption() != "":
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage().GetCaption() != "":
		return msg.GetDocumentMessage().GetCaption()
	}
	return ""
}

func mediaOf(msg *waE2E.Message) (message.MediaType, string, bool) {
	switch {
	case msg.GetAudioMessage() != nil:
		a := msg.GetAudioMessage()
		if a.GetPTT() {
			return message.MediaTypePTT, a.GetMimetype(), true
		}
		return message.MediaTypeAudio, a.GetMimetype(), true
	case msg.GetImageMessage() != nil:
		return message.MediaTypeImage, msg.GetImageMessage().GetMimetype(), true
	case msg.GetVideoMessage() != nil:
		return message.MediaTypeVideo, msg.GetVideoMessage().GetMimetype(), true
	case msg.GetDocumentMessage() != nil:
		return message.MediaTypeDocument, msg.GetDocumentMessage().GetMimetype(), true
	case msg.GetStickerMessage() != nil:
		return message.MediaTypeSticker, msg.GetStickerMessage().GetMimetype(), true
	}
	return "", "", false
}

// recipient parses a JID, or builds a user JID from a phone number.
func recipient(to string) (types.JID, bool) {
	if strings.Contains(to, "@") {
		jid, err := types.ParseJID(to)
		if err != nil || jid.User == "" {
			return types.JID{}, false
		}
		if jid.Server == types.LegacyUserServer {
			jid.Server = types.DefaultUserServer
		}
		return jid, true
	}
	phone := contacts.Normalize(to)
	if phone == "" {
		return types.JID{}, false
	}
	return types.NewJID(phone, types.DefaultUserServer), true
}

// truncate cuts text to at most limit runes. limit <= 0 disables it.
func truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	if limit == 1 {
		return string(runes[:1])
	}
	return string(runes[:limit-1]) + "…"
}
