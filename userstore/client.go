// Package userstore is the REST client for the backend user records.
package userstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/internal/rest"
)

const usersPath = "/api/users"

var _ auth.UserStore = (*Client)(nil)

// Client implements auth.UserStore over the backend REST API.
type Client struct {
	rest   *rest.Client
	logger auth.Logger
}

// New creates a user store client for the backend at baseURL.
func New(baseURL string, logger auth.Logger, opts ...rest.Option) (*Client, error) {
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	rc, err := rest.New(baseURL, append([]rest.Option{rest.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{rest: rc, logger: logger}, nil
}

// CreateUser creates the record. The idempotency key is derived from the
// whole payload, so only an exact retry is deduplicated; a create with a
// different role or verification flag for the same subject reaches the
// backend and maps to auth.ErrConflict.
func (c *Client) CreateUser(ctx context.Context, user auth.NewApplicationUser) (*auth.ApplicationUser, error) {
	if user.SubjectID == "" {
		return nil, goerrors.New("subject id is required", goerrors.CategoryBadInput)
	}

	headers := http.Header{}
	if key, err := hashid.NewUUID(idempotencySeed(user)); err == nil {
		headers.Set(rest.HeaderIdempotencyKey, key.String())
	}

	var body userEnvelope
	err := c.rest.JSON(ctx, rest.Request{
		Method:  http.MethodPost,
		Path:    usersPath,
		Body:    user,
		Headers: headers,
	}, &body)
	if err != nil {
		return nil, mapError(err, "create user")
	}

	created := body.record()
	if created == nil {
		// some deployments answer 201 without echoing the record
		created = &auth.ApplicationUser{
			SubjectID:       user.SubjectID,
			Email:           user.Email,
			Name:            user.Name,
			Role:            user.Role,
			IsEmailVerified: user.IsEmailVerified,
		}
	}
	return created, nil
}

// GetUserBySubjectID fetches the record; a missing record is auth.ErrNotFound.
func (c *Client) GetUserBySubjectID(ctx context.Context, subjectID string) (*auth.ApplicationUser, error) {
	if subjectID == "" {
		return nil, goerrors.New("subject id is required", goerrors.CategoryBadInput)
	}

	var body userEnvelope
	err := c.rest.JSON(ctx, rest.Request{
		Method: http.MethodGet,
		Path:   usersPath + "/uid/" + url.PathEscape(subjectID),
	}, &body)
	if err != nil {
		return nil, mapError(err, "get user")
	}

	user := body.record()
	if user == nil {
		return nil, fmt.Errorf("%w: empty user response for %s", auth.ErrNotFound, subjectID)
	}
	return user, nil
}

// SyncEmailVerification updates the verification flag on the record.
func (c *Client) SyncEmailVerification(ctx context.Context, subjectID string, verified bool) error {
	if subjectID == "" {
		return goerrors.New("subject id is required", goerrors.CategoryBadInput)
	}

	err := c.rest.JSON(ctx, rest.Request{
		Method: http.MethodPatch,
		Path:   usersPath + "/uid/" + url.PathEscape(subjectID) + "/verify-email",
		Body:   map[string]bool{"isEmailVerified": verified},
	}, nil)
	if err != nil {
		return mapError(err, "sync email verification")
	}
	return nil
}

// userEnvelope accepts both {"user": {...}} and a bare record.
type userEnvelope struct {
	raw json.RawMessage
}

func (e *userEnvelope) UnmarshalJSON(data []byte) error {
	e.raw = append(e.raw[:0], data...)
	return nil
}

func (e *userEnvelope) record() *auth.ApplicationUser {
	if len(e.raw) == 0 {
		return nil
	}

	var wrapped struct {
		User *auth.ApplicationUser `json:"user"`
	}
	if err := json.Unmarshal(e.raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User
	}

	var bare auth.ApplicationUser
	if err := json.Unmarshal(e.raw, &bare); err == nil && bare.SubjectID != "" {
		return &bare
	}
	return nil
}

func mapError(err error, op string) error {
	switch rest.StatusCode(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s: %w", auth.ErrNotFound, op, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s: %w", auth.ErrConflict, op, err)
	}
	if rest.StatusCode(err) >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s: %w", auth.ErrBackendUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func idempotencySeed(user auth.NewApplicationUser) string {
	return fmt.Sprintf("%s|%s|%s|%s|%t", user.SubjectID, user.Email, user.Name, user.Role, user.IsEmailVerified)
}
