package payload

import "testing"

func TestNormalizeKeyExactMatches(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "body", key: "body", want: KeyMessage},
		{name: "alert", key: "alert", want: KeyMessage},
		{name: "mixpanel", key: "mp_message", want: KeyMessage},
		{name: "gcm body", key: "gcm.notification.body", want: KeyMessage},
		{name: "twilio body", key: "twi_body", want: KeyMessage},
		{name: "pinpoint body", key: "pinpoint.notification.body", want: KeyMessage},
		{name: "twilio title", key: "twi_title", want: KeyTitle},
		{name: "subject", key: "subject", want: KeyTitle},
		{name: "msgcnt", key: "msgcnt", want: KeyCount},
		{name: "badge", key: "badge", want: KeyCount},
		{name: "soundname", key: "soundname", want: KeySound},
		{name: "twilio sound", key: "twi_sound", want: KeySound},
		{name: "picture", key: "picture", want: KeyImage},
		{name: "dashed content available", key: "content-available", want: KeyContentAvailable},
		{name: "dashed force start", key: "force-start", want: KeyForceStart},
		{name: "android channel", key: "android_channel_id", want: KeyChannelID},
		{name: "dashed image type", key: "image-type", want: KeyImageType},
		{name: "passthrough", key: "customField", want: "customField"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, force := NormalizeKey(tt.key, "", "")
			if got != tt.want {
				t.Fatalf("NormalizeKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if force {
				t.Fatalf("NormalizeKey(%q) forced picture style", tt.key)
			}
		})
	}
}

func TestNormalizeKeyPinpointImageForcesPicture(t *testing.T) {
	t.Parallel()
	got, force := NormalizeKey("pinpoint.notification.imageUrl", "", "")
	if got != KeyImage {
		t.Fatalf("got %q, want %q", got, KeyImage)
	}
	if !force {
		t.Fatal("expected picture style to be forced")
	}
}

func TestNormalizeKeyPrefixes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "gcm long prefix", key: "gcm.notification.sound", want: "sound"},
		{name: "gcm short prefix", key: "gcm.n.icon", want: "icon"},
		{name: "urban airship lowercased", key: "com.urbanairship.push.ALERT", want: "alert"},
		{name: "pinpoint prefix", key: "pinpoint.notification.title", want: "title"},
		{name: "bare prefix passes through", key: "gcm.n", want: "gcm.n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, _ := NormalizeKey(tt.key, "", "")
			if got != tt.want {
				t.Fatalf("NormalizeKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestNormalizeKeyConfiguredOverrides(t *testing.T) {
	t.Parallel()
	if got, _ := NormalizeKey("payload_text", "payload_text", ""); got != KeyMessage {
		t.Fatalf("message override: got %q", got)
	}
	if got, _ := NormalizeKey("payload_subject", "", "payload_subject"); got != KeyTitle {
		t.Fatalf("title override: got %q", got)
	}
}
