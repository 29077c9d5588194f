package values

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneNumber(t *testing.T) {
	tests := []struct {
		name     string
		number   string
		expected string
		wantErr  bool
	}{
		{
			name:     "valid E.164 US number",
			number:   "+15551234567",
			expected: "+15551234567",
		},
		{
			name:     "US number with parentheses",
			number:   "(555) 123-4567",
			expected: "+15551234567",
		},
		{
			name:     "US number with country code",
			number:   "1-555-123-4567",
			expected: "+15551234567",
		},
		{
			name:     "bare national digits",
			number:   "5551234567",
			expected: "+15551234567",
		},
		{
			name:     "sip uri with host",
			number:   "sip:+15551234567@example.sip.signalwire.com",
			expected: "+15551234567",
		},
		{
			name:     "tel uri with parameters",
			number:   "tel:+442071234567;phone-context=example",
			expected: "+442071234567",
		},
		{
			name:    "empty number",
			number:  "",
			wantErr: true,
		},
		{
			name:    "too short",
			number:  "123",
			wantErr: true,
		},
		{
			name:    "invalid characters",
			number:  "abc-def-ghij",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone, err := NewPhoneNumber(tt.number)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, phone.IsEmpty())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, phone.String())
		})
	}
}

func TestPhoneNumber_NationalNumber(t *testing.T) {
	assert.Equal(t, "5551234567", MustNewPhoneNumber("+15551234567").NationalNumber())
	assert.Equal(t, "442071234567", MustNewPhoneNumber("+442071234567").NationalNumber())
}

func TestPhoneNumber_JSON(t *testing.T) {
	phone := MustNewPhoneNumber("(555) 123-4567")

	data, err := json.Marshal(phone)
	require.NoError(t, err)
	assert.Equal(t, `"+15551234567"`, string(data))

	var decoded PhoneNumber
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, phone, decoded)
}

func TestPhoneNumber_Scan(t *testing.T) {
	var p PhoneNumber
	require.NoError(t, p.Scan([]byte("+15551234567")))
	assert.Equal(t, "+15551234567", p.String())

	require.NoError(t, p.Scan(nil))
	assert.True(t, p.IsEmpty())

	assert.Error(t, p.Scan(42))
}

func TestParseCallerAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
		e164    bool
		wantErr bool
	}{
		{name: "us national number is normalized", address: "555-123-4567", want: "+15551234567", e164: true},
		{name: "sip address is normalized", address: "sip:+442071234567@voice.example.com", want: "+442071234567", e164: true},
		{name: "international digits without plus", address: "447700900123", want: "447700900123"},
		{name: "short code", address: "5551234", want: "5551234"},
		{name: "anonymous caller", address: "anonymous", want: "anonymous"},
		{name: "anonymous sip caller", address: "sip:anonymous@anonymous.invalid", want: "anonymous"},
		{name: "empty", address: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone, err := ParseCallerAddress(tt.address)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, phone.String())
			assert.Equal(t, tt.e164, phone.IsE164())
		})
	}
}

func TestPhoneNumber_ScanKeepsRawAddress(t *testing.T) {
	var p PhoneNumber
	require.NoError(t, p.Scan("447700900123"))
	assert.Equal(t, "447700900123", p.String())
	assert.False(t, p.IsE164())
}
