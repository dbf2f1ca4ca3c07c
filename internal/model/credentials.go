package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Credentials are the static client credentials issued by AWQAF.
type Credentials struct {
	ClientGUID   string `json:"clientGuid"`
	ClientSecret string `json:"clientSecret"`
}

// TokenState is the cached authorization state persisted between runs.
type TokenState struct {
	AccessToken   string    `json:"clientAccessToken"`
	RefreshToken  string    `json:"clientRefreshToken"`
	RefreshExpiry *UnixTime `json:"refreshTokenExpiryTime"`
}

// UnixTime is a nullable timestamp encoded as Unix seconds. Decoding also
// accepts fractional seconds and RFC 3339 strings, both of which the
// authorization endpoint has been seen to return.
type UnixTime struct {
	time.Time
}

// NewUnixTime wraps t, truncated to whole seconds.
func NewUnixTime(t time.Time) *UnixTime {
	return &UnixTime{Time: time.Unix(t.Unix(), 0).UTC()}
}

func (u UnixTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(u.Unix(), 10)), nil
}

func (u *UnixTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			u.Time = fromSeconds(f)
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parsing expiry time %q: %w", s, err)
		}
		u.Time = t.UTC()
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parsing expiry time %s: %w", data, err)
	}
	u.Time = fromSeconds(f)
	return nil
}

func fromSeconds(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
