package whatsapp

import "testing"

func TestValidatePayload(t *testing.T) {
	cases := []struct {
		name    string
		payload SendMessagePayload
		wantErr bool
	}{
		{"text ok", SendMessagePayload{To: "5511999999999", MessageType: "text", Text: "olá"}, false},
		{"empty type defaults to text", SendMessagePayload{To: "5511999999999", Text: "olá"}, false},
		{"missing to", SendMessagePayload{MessageType: "text", Text: "olá"}, true},
		{"text without body", SendMessagePayload{To: "5511999999999", MessageType: "text"}, true},
		{"image ok", SendMessagePayload{To: "5511999999999", MessageType: "image", MediaURL: "https://x/a.jpg"}, false},
		{"image without url", SendMessagePayload{To: "5511999999999", MessageType: "image"}, true},
		{"document ok", SendMessagePayload{To: "5511999999999", MessageType: "document", MediaURL: "https://x/a.pdf"}, false},
		{"unknown type", SendMessagePayload{To: "5511999999999", MessageType: "sticker", Text: "x"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload(tc.payload)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidatePayload(%+v) error = %v, wantErr %v", tc.payload, err, tc.wantErr)
			}
		})
	}
}

func TestFormatPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"11999999999", "5511999999999"},
		{"5511999999999", "5511999999999"},
		{"(11) 99999-9999", "5511999999999"},
		{"+55 11 99999-9999", "5511999999999"},
	}
	for _, tc := range cases {
		if got := FormatPhone(tc.in); got != tc.want {
			t.Errorf("FormatPhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOnlyDigits(t *testing.T) {
	if got := OnlyDigits("+55 (11) 99999-9999"); got != "5511999999999" {
		t.Errorf("OnlyDigits = %q", got)
	}
	// Cap at 15 digits
	if got := OnlyDigits("12345678901234567890"); len(got) != 15 {
		t.Errorf("OnlyDigits length = %d, want 15", len(got))
	}
}
