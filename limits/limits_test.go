package limits

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateDatagram(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{name: "empty", size: 0, wantErr: ErrEmpty},
		{name: "single byte", size: 1, wantErr: nil},
		{name: "at limit", size: MaxDatagramSize, wantErr: nil},
		{name: "over limit", size: MaxDatagramSize + 1, wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatagram(make([]byte, tt.size))
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateDatagram() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDatagram() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateURI(t *testing.T) {
	if err := ValidateURI(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("ValidateURI(\"\") = %v, want ErrEmpty", err)
	}
	if err := ValidateURI("https://example.com/a.wav"); err != nil {
		t.Errorf("ValidateURI() unexpected error: %v", err)
	}
	long := "file:///" + strings.Repeat("a", MaxURILength)
	if err := ValidateURI(long); !errors.Is(err, ErrTooLarge) {
		t.Errorf("ValidateURI(long) = %v, want ErrTooLarge", err)
	}
}

func TestValidateAssetDuration(t *testing.T) {
	if err := ValidateAssetDuration(MaxAssetDuration); err != nil {
		t.Errorf("duration at the ceiling must be accepted: %v", err)
	}
	if err := ValidateAssetDuration(MaxAssetDuration + time.Millisecond); !errors.Is(err, ErrDurationExceeded) {
		t.Errorf("ValidateAssetDuration() = %v, want ErrDurationExceeded", err)
	}
}

func TestClampNoteDuration(t *testing.T) {
	if got := ClampNoteDuration(-time.Second); got != 0 {
		t.Errorf("ClampNoteDuration(-1s) = %v, want 0", got)
	}
	if got := ClampNoteDuration(time.Hour); got != MaxNoteDuration {
		t.Errorf("ClampNoteDuration(1h) = %v, want %v", got, MaxNoteDuration)
	}
	if got := ClampNoteDuration(250 * time.Millisecond); got != 250*time.Millisecond {
		t.Errorf("ClampNoteDuration(250ms) = %v", got)
	}
}

func TestChannelBounds(t *testing.T) {
	b := NewChannelBounds(2)

	tests := []struct {
		channel int
		valid   bool
		clamped int
	}{
		{channel: -3, valid: false, clamped: 1},
		{channel: 0, valid: false, clamped: 1},
		{channel: 1, valid: true, clamped: 1},
		{channel: 2, valid: true, clamped: 2},
		{channel: 3, valid: false, clamped: 2},
		{channel: 10, valid: false, clamped: 2},
	}

	for _, tt := range tests {
		err := b.Validate(tt.channel)
		if tt.valid && err != nil {
			t.Errorf("Validate(%d) unexpected error: %v", tt.channel, err)
		}
		if !tt.valid && !errors.Is(err, ErrChannelOutOfRange) {
			t.Errorf("Validate(%d) = %v, want ErrChannelOutOfRange", tt.channel, err)
		}
		if got := b.Clamp(tt.channel); got != tt.clamped {
			t.Errorf("Clamp(%d) = %d, want %d", tt.channel, got, tt.clamped)
		}
	}

	if got := b.Index(2); got != 1 {
		t.Errorf("Index(2) = %d, want 1", got)
	}
}
