package firebase_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-restaurant-auth/provider/firebase"
	"github.com/stretchr/testify/require"
)

const (
	testProject = "restaurants-test"
	testKeyID   = "k1"
)

type account struct {
	uid         string
	email       string
	password    string
	displayName string
	verified    bool
	provider    string
}

// identityService fakes the accounts and securetoken endpoints.
type identityService struct {
	t   *testing.T
	key *rsa.PrivateKey

	mu          sync.Mutex
	accounts    map[string]*account // by uid
	expiresIn   int
	calls       map[string]int
	oob         []map[string]any
	lastIDTok   string
	unavailable bool
	issued      int
}

func newIdentityService(t *testing.T) *identityService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &identityService{
		t:         t,
		key:       key,
		accounts:  map[string]*account{},
		expiresIn: 3600,
		calls:     map[string]int{},
	}
}

func (s *identityService) add(a *account) *account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.provider == "" {
		a.provider = "password"
	}
	s.accounts[a.uid] = a
	return a
}

func (s *identityService) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *identityService) password(uid string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[uid].password
}

func (s *identityService) byEmail(email string) *account {
	for _, a := range s.accounts {
		if a.email == email {
			return a
		}
	}
	return nil
}

func (s *identityService) sign(a *account) string {
	now := time.Now()
	claims := firebase.IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.uid,
			Issuer:    "https://securetoken.google.com/" + testProject,
			Audience:  jwt.ClaimStrings{testProject},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expiresIn) * time.Second)),
			ID:        strconv.Itoa(s.issued),
		},
		Email:         a.email,
		EmailVerified: a.verified,
		Name:          a.displayName,
		UserID:        a.uid,
		AuthTime:      now.Unix(),
		Firebase:      firebase.FirebaseClaims{SignInProvider: a.provider},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(s.key)
	require.NoError(s.t, err)
	s.issued++
	return signed
}

func (s *identityService) subject(idToken string) *account {
	claims := &firebase.IDTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil
	}
	return s.accounts[claims.Subject]
}

func (s *identityService) authBody(a *account) map[string]any {
	tok := s.sign(a)
	s.lastIDTok = tok
	return map[string]any{
		"localId":       a.uid,
		"email":         a.email,
		"displayName":   a.displayName,
		"emailVerified": a.verified,
		"idToken":       tok,
		"refreshToken":  "refresh-" + a.uid,
		"expiresIn":     strconv.Itoa(s.expiresIn),
	}
}

func (s *identityService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.URL.Query().Get("key") != "api-key" {
		fail(w, "API_KEY_INVALID")
		return
	}

	if r.URL.Path == "/v1/token" {
		s.calls["token"]++
		s.refresh(w, r)
		return
	}

	method := strings.TrimPrefix(r.URL.Path, "/v1/accounts:")
	s.calls[method]++

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, "INVALID_JSON")
		return
	}
	str := func(k string) string {
		v, _ := body[k].(string)
		return v
	}

	switch method {
	case "signInWithPassword":
		a := s.byEmail(str("email"))
		if a == nil {
			fail(w, "EMAIL_NOT_FOUND")
			return
		}
		if a.password != str("password") {
			fail(w, "INVALID_LOGIN_CREDENTIALS")
			return
		}
		reply(w, s.authBody(a))

	case "signUp":
		if s.byEmail(str("email")) != nil {
			fail(w, "EMAIL_EXISTS")
			return
		}
		if len(str("password")) < 6 {
			fail(w, "WEAK_PASSWORD : Password should be at least 6 characters")
			return
		}
		a := &account{uid: fmt.Sprintf("uid-new-%d", len(s.accounts)), email: str("email"), password: str("password"), provider: "password"}
		s.accounts[a.uid] = a
		reply(w, s.authBody(a))

	case "signInWithIdp":
		post, _ := url.ParseQuery(str("postBody"))
		if post.Get("id_token") != "google-id-token" || post.Get("providerId") != "google.com" {
			fail(w, "INVALID_IDP_RESPONSE")
			return
		}
		a := s.accounts["uid-google"]
		if a == nil {
			a = &account{uid: "uid-google", email: "chef@gmail.com", displayName: "Chef", verified: true, provider: "google.com"}
			s.accounts[a.uid] = a
		}
		resp := s.authBody(a)
		resp["providerId"] = "google.com"
		reply(w, resp)

	case "lookup":
		a := s.subject(str("idToken"))
		if a == nil {
			fail(w, "INVALID_ID_TOKEN")
			return
		}
		reply(w, map[string]any{"users": []map[string]any{{
			"localId":       a.uid,
			"email":         a.email,
			"displayName":   a.displayName,
			"emailVerified": a.verified,
		}}})

	case "sendOobCode":
		if str("requestType") == "PASSWORD_RESET" && s.byEmail(str("email")) == nil {
			fail(w, "EMAIL_NOT_FOUND")
			return
		}
		s.oob = append(s.oob, body)
		reply(w, map[string]any{"email": str("email")})

	case "update":
		a := s.subject(str("idToken"))
		if a == nil {
			fail(w, "INVALID_ID_TOKEN")
			return
		}
		if e := str("email"); e != "" {
			a.email = e
			a.verified = false
		}
		if pw := str("password"); pw != "" {
			if len(pw) < 6 {
				fail(w, "WEAK_PASSWORD : Password should be at least 6 characters")
				return
			}
			a.password = pw
		}
		reply(w, s.authBody(a))

	default:
		http.NotFound(w, r)
	}
}

func (s *identityService) refresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" {
		fail(w, "INVALID_GRANT_TYPE")
		return
	}
	uid := strings.TrimPrefix(r.PostForm.Get("refresh_token"), "refresh-")
	a := s.accounts[uid]
	if a == nil {
		fail(w, "INVALID_REFRESH_TOKEN")
		return
	}
	tok := s.sign(a)
	s.lastIDTok = tok
	reply(w, map[string]any{
		"id_token":      tok,
		"refresh_token": "refresh-" + a.uid,
		"expires_in":    strconv.Itoa(s.expiresIn),
		"user_id":       a.uid,
	})
}

func reply(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": 400, "message": message},
	})
}

func (s *identityService) config(srv *httptest.Server) firebase.Config {
	return firebase.Config{
		APIKey:             "api-key",
		ProjectID:          testProject,
		IdentityToolkitURL: srv.URL + "/v1",
		SecureTokenURL:     srv.URL + "/v1",
		HTTPClient:         srv.Client(),
	}
}

func (s *identityService) verifier(cfg firebase.Config) *firebase.JWKSVerifier {
	return firebase.NewGivenKeyVerifier(cfg, map[string]keyfunc.GivenKey{
		testKeyID: keyfunc.NewGivenCustom(&s.key.PublicKey, keyfunc.GivenKeyOptions{Algorithm: "RS256"}),
	}, nil)
}
