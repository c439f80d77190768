package payload

import "strings"

// Canonical field vocabulary. Everything the flattener emits is keyed by one
// of these (unknown provider keys pass through verbatim).
const (
	KeyTitle            = "title"
	KeyMessage          = "message"
	KeySummaryText      = "summaryText"
	KeyCount            = "count"
	KeySound            = "sound"
	KeyColor            = "color"
	KeyIcon             = "icon"
	KeyImage            = "image"
	KeyImageType        = "imageType"
	KeyStyle            = "style"
	KeyPriority         = "priority"
	KeyVisibility       = "visibility"
	KeyLedColor         = "ledColor"
	KeyVibrationPattern = "vibrationPattern"
	KeyOngoing          = "ongoing"
	KeyActions          = "actions"
	KeyChannelID        = "channelId"
	KeyContentAvailable = "contentAvailable"
	KeyForceStart       = "forceStart"
	KeyNotID            = "notId"
	KeyFrom             = "from"
	KeyForeground       = "foreground"
	KeyColdstart        = "coldstart"
)

// Style tags.
const (
	StyleText    = "text"
	StyleInbox   = "inbox"
	StylePicture = "picture"
)

// Image type tags.
const (
	ImageTypeSquare = "square"
	ImageTypeCircle = "circle"
)

// Provider-specific alternate spellings, mapped by the exact-match table.
const (
	keyBody           = "body"
	keyAlert          = "alert"
	keySubject        = "subject"
	keyMsgcnt         = "msgcnt"
	keyBadge          = "badge"
	keySoundname      = "soundname"
	keyMixpanelBody   = "mp_message"
	keyTwilioBody     = "twi_body"
	keyTwilioTitle    = "twi_title"
	keyTwilioSound    = "twi_sound"
	keyPinpointBody   = "pinpoint.notification.body"
	keyPinpointImage  = "pinpoint.notification.imageUrl"
	keyGCMBody        = "gcm.notification.body"
	keyContentDashed  = "content-available"
	keyForceDashed    = "force-start"
	keyAndroidChannel = "android_channel_id"
	keyImageDashed    = "image-type"
	keyPicture        = "picture"

	// Nested containers recognized by the flattener.
	KeyData         = "data"
	KeyNotification = "notification"
)

// Provider prefixes, stripped together with their trailing dot.
const (
	prefixGCMNotification = "gcm.notification"
	prefixGCMShort        = "gcm.n"
	prefixUrbanAirship    = "com.urbanairship.push"
	prefixPinpoint        = "pinpoint.notification"
)

// Localization descriptor fields.
const (
	keyLocKey  = "loc-key"
	keyLocData = "loc-data"
)

// NormalizeKey maps one raw provider key to its canonical spelling.
//
// messageKey and titleKey are the config-supplied override spellings; either
// may be empty. The second return is true when the key additionally forces
// picture style (AWS Pinpoint image URL); applying that side effect is the
// caller's job.
//
// Precedence: exact-match table, then prefix rules, then pass-through.
func NormalizeKey(key, messageKey, titleKey string) (string, bool) {
	switch {
	case key == keyBody,
		key == keyAlert,
		key == keyMixpanelBody,
		key == keyGCMBody,
		key == keyTwilioBody,
		messageKey != "" && key == messageKey,
		key == keyPinpointBody:
		return KeyMessage, false

	case key == keyTwilioTitle, key == keySubject, titleKey != "" && key == titleKey:
		return KeyTitle, false

	case key == keyMsgcnt, key == keyBadge:
		return KeyCount, false

	case key == keySoundname, key == keyTwilioSound:
		return KeySound, false

	case key == keyPinpointImage:
		return KeyImage, true

	case key == keyPicture:
		return KeyImage, false

	case key == keyContentDashed:
		return KeyContentAvailable, false

	case key == keyForceDashed:
		return KeyForceStart, false

	case key == keyAndroidChannel:
		return KeyChannelID, false

	case key == keyImageDashed:
		return KeyImageType, false
	}

	// Prefix rules. gcm.notification must be tested before gcm.n because the
	// long prefix starts with the short one.
	switch {
	case hasDotPrefix(key, prefixGCMNotification):
		return key[len(prefixGCMNotification)+1:], false
	case hasDotPrefix(key, prefixGCMShort):
		return key[len(prefixGCMShort)+1:], false
	case hasDotPrefix(key, prefixUrbanAirship):
		return strings.ToLower(key[len(prefixUrbanAirship)+1:]), false
	case hasDotPrefix(key, prefixPinpoint):
		return key[len(prefixPinpoint)+1:], false
	}

	return key, false
}

func hasDotPrefix(key, prefix string) bool {
	return len(key) > len(prefix)+1 && key[:len(prefix)] == prefix && key[len(prefix)] == '.'
}
