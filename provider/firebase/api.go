package firebase

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// seconds decodes the durations the REST API sends as strings ("3600").
type seconds int64

func (s *seconds) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid seconds %q: %w", b, err)
	}
	*s = seconds(n)
	return nil
}

func (s seconds) Duration() time.Duration {
	return time.Duration(s) * time.Second
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idpRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
}

// authResponse covers signInWithPassword, signUp and signInWithIdp.
type authResponse struct {
	LocalID       string  `json:"localId"`
	Email         string  `json:"email"`
	DisplayName   string  `json:"displayName"`
	FullName      string  `json:"fullName"`
	EmailVerified bool    `json:"emailVerified"`
	ProviderID    string  `json:"providerId"`
	IDToken       string  `json:"idToken"`
	RefreshToken  string  `json:"refreshToken"`
	ExpiresIn     seconds `json:"expiresIn"`
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type lookupResponse struct {
	Users []accountInfo `json:"users"`
}

type accountInfo struct {
	LocalID          string `json:"localId"`
	Email            string `json:"email"`
	DisplayName      string `json:"displayName"`
	EmailVerified    bool   `json:"emailVerified"`
	ProviderUserInfo []struct {
		ProviderID string `json:"providerId"`
	} `json:"providerUserInfo"`
}

const (
	oobVerifyEmail   = "VERIFY_EMAIL"
	oobPasswordReset = "PASSWORD_RESET"
)

type oobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email,omitempty"`
	IDToken     string `json:"idToken,omitempty"`
}

type updateRequest struct {
	IDToken           string `json:"idToken"`
	Email             string `json:"email,omitempty"`
	Password          string `json:"password,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type updateResponse struct {
	LocalID       string  `json:"localId"`
	Email         string  `json:"email"`
	EmailVerified bool    `json:"emailVerified"`
	IDToken       string  `json:"idToken"`
	RefreshToken  string  `json:"refreshToken"`
	ExpiresIn     seconds `json:"expiresIn"`
}

type refreshResponse struct {
	IDToken      string  `json:"id_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    seconds `json:"expires_in"`
	UserID       string  `json:"user_id"`
}
