package awqaf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/model"
)

type authRequest struct {
	ClientGUID         string `json:"clientGuid"`
	ClientSecret       string `json:"clientSecret"`
	ClientRefreshToken string `json:"clientRefreshToken,omitempty"`
}

type authResponse struct {
	IsSuccess              bool            `json:"isSuccess"`
	ErrorDescription       string          `json:"errorDescription"`
	ClientAccessToken      string          `json:"clientAccessToken"`
	ClientRefreshToken     string          `json:"clientRefreshToken"`
	RefreshTokenExpiryTime *model.UnixTime `json:"refreshTokenExpiryTime"`
}

// Authorize exchanges the client credentials, and the current refresh token
// when there is one, for a new token state. It makes exactly one request.
func (c *Client) Authorize(ctx context.Context, creds model.Credentials, refreshToken string) (model.TokenState, error) {
	const op = "authorizing client"

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("lang", "ar").
		SetBody(authRequest{
			ClientGUID:         creds.ClientGUID,
			ClientSecret:       creds.ClientSecret,
			ClientRefreshToken: refreshToken,
		}).
		Post("/sso/ClientAuthorization")
	if err != nil {
		return model.TokenState{}, apperr.Auth(op, err)
	}
	if resp.IsError() {
		return model.TokenState{}, apperr.Auth(op, apperr.HTTPStatus(op, resp.StatusCode(), resp.String()))
	}

	var ar authResponse
	if err := json.Unmarshal(resp.Body(), &ar); err != nil {
		return model.TokenState{}, apperr.Auth(op, fmt.Errorf("decoding response: %w", err))
	}
	if !ar.IsSuccess {
		desc := ar.ErrorDescription
		if desc == "" {
			desc = "unknown error"
		}
		return model.TokenState{}, apperr.Auth(op, fmt.Errorf("authorization failed: %s", desc))
	}
	if ar.ClientAccessToken == "" {
		return model.TokenState{}, apperr.Auth(op, errors.New("response has no access token"))
	}

	return model.TokenState{
		AccessToken:   ar.ClientAccessToken,
		RefreshToken:  ar.ClientRefreshToken,
		RefreshExpiry: ar.RefreshTokenExpiryTime,
	}, nil
}
