package entity

import (
	"regexp"
	"strings"
)

type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
	ChannelFacebook  Channel = "facebook"
	ChannelUnknown   Channel = "unknown"
)

// E.164: "+", um dígito não-zero e mais 1 a 14 dígitos.
var whatsAppPhonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// IsWhatsAppPhone reports whether phone is in international E.164 shape.
func IsWhatsAppPhone(phone string) bool {
	return whatsAppPhonePattern.MatchString(phone)
}

// DetectChannel classifies a subscriber snapshot into exactly one channel.
// Rules are evaluated in order and the first match wins:
//
//  1. instagram id present        -> instagram
//  2. E.164 phone and no page id  -> whatsapp
//  3. page id present             -> facebook
//  4. any phone and no page id    -> whatsapp
//  5. email present               -> facebook
//  6. otherwise                   -> unknown
//
// Every place that needs a channel (webhooks, sync, outbound, reports) goes
// through this function.
func DetectChannel(s Subscriber) Channel {
	hasPage := strings.TrimSpace(s.PageID) != ""

	if strings.TrimSpace(s.InstagramID) != "" {
		return ChannelInstagram
	}
	if !hasPage && (IsWhatsAppPhone(s.WhatsAppPhone) || IsWhatsAppPhone(s.Phone)) {
		return ChannelWhatsApp
	}
	if hasPage {
		return ChannelFacebook
	}
	if s.AnyPhone() != "" {
		return ChannelWhatsApp
	}
	if strings.TrimSpace(s.Email) != "" {
		return ChannelFacebook
	}
	return ChannelUnknown
}

// PlatformIdentifier returns the identifier a conversation is keyed by for
// the given channel: the phone for whatsapp, the subscriber id otherwise.
func PlatformIdentifier(s Subscriber, ch Channel) string {
	if ch == ChannelWhatsApp {
		if p := s.AnyPhone(); p != "" {
			return p
		}
	}
	return s.ID
}

func ParseChannel(v string) Channel {
	switch Channel(strings.ToLower(strings.TrimSpace(v))) {
	case ChannelWhatsApp:
		return ChannelWhatsApp
	case ChannelInstagram:
		return ChannelInstagram
	case ChannelFacebook:
		return ChannelFacebook
	default:
		return ChannelUnknown
	}
}
