// Package restaurants is the REST client for the restaurant catalog and the
// owner listing workflow built on top of it.
package restaurants

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/internal/rest"
)

const (
	restaurantsPath = "/api/restaurants"
	pictureField    = "picture"
	maxPictureSize  = 10 << 20
)

// Client talks to the restaurant endpoints.
type Client struct {
	rest   *rest.Client
	logger auth.Logger
}

// New creates a client for the backend at baseURL.
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

// PictureURL is the derived address of a listing photo.
func (c *Client) PictureURL(id string) string {
	return c.rest.URL(restaurantsPath+"/"+url.PathEscape(id)+"/picture", nil)
}

// List returns a page of listings.
func (c *Client) List(ctx context.Context, page, limit int) (*Page, error) {
	page, limit = normalizePage(page, limit)

	out := &Page{}
	err := c.rest.JSON(ctx, rest.Request{
		Method: http.MethodGet,
		Path:   restaurantsPath,
		Query:  pageQuery(page, limit),
	}, out)
	if err != nil {
		return nil, mapError(err, "list restaurants")
	}
	return c.decorate(out), nil
}

// Search returns a page of listings whose field matches query.
func (c *Client) Search(ctx context.Context, field, query string, page, limit int) (*Page, error) {
	err := validation.Errors{
		"field": validation.Validate(field, validation.Required, validation.In(toAny(SearchFields)...)),
		"query": validation.Validate(query, validation.Required),
	}.Filter()
	if err != nil {
		return nil, goerrors.FromOzzoValidation(err, "invalid restaurant search")
	}

	page, limit = normalizePage(page, limit)
	q := pageQuery(page, limit)
	q.Set("field", field)
	q.Set("query", query)

	out := &Page{}
	err = c.rest.JSON(ctx, rest.Request{
		Method: http.MethodGet,
		Path:   restaurantsPath + "/search",
		Query:  q,
	}, out)
	if err != nil {
		return nil, mapError(err, "search restaurants")
	}
	return c.decorate(out), nil
}

// GetByOwner returns the owner's listing or auth.ErrNotFound.
func (c *Client) GetByOwner(ctx context.Context, ownerID string) (*Restaurant, error) {
	if ownerID == "" {
		return nil, goerrors.New("owner id is required", goerrors.CategoryBadInput)
	}

	var body restaurantEnvelope
	err := c.rest.JSON(ctx, rest.Request{
		Method: http.MethodGet,
		Path:   restaurantsPath + "/owner/" + url.PathEscape(ownerID),
	}, &body)
	if err != nil {
		return nil, mapError(err, "get restaurant by owner")
	}
	if body.Restaurant == nil {
		return nil, fmt.Errorf("%w: owner %s has no restaurant", auth.ErrNotFound, ownerID)
	}
	return c.withPicture(body.Restaurant), nil
}

// Create adds a listing owned by ownerID.
func (c *Client) Create(ctx context.Context, ownerID string, in Input) (*Restaurant, error) {
	if err := in.Validate(); err != nil {
		return nil, goerrors.FromOzzoValidation(err, "invalid restaurant")
	}

	addr := in.address()
	addr.Coord = append([]float64(nil), DefaultCoord...)
	payload := newRestaurant{
		Name:    in.Name,
		Cuisine: in.Cuisine,
		Borough: in.Borough,
		Address: addr,
		Grades:  []Grade{},
		OwnerID: ownerID,
	}

	var body restaurantEnvelope
	err := c.rest.JSON(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   restaurantsPath,
		Body:   payload,
	}, &body)
	if err != nil {
		return nil, mapError(err, "create restaurant")
	}

	created := body.Restaurant
	if created == nil {
		created = &Restaurant{ID: body.id()}
	}
	if created.Name == "" {
		created.Name, created.Cuisine, created.Borough = payload.Name, payload.Cuisine, payload.Borough
		created.Address, created.Grades, created.OwnerID = payload.Address, payload.Grades, ownerID
	}
	return c.withPicture(created), nil
}

// Update patches the listing. ownerID must match the listing owner.
func (c *Client) Update(ctx context.Context, id, ownerID string, in Input) error {
	if id == "" || ownerID == "" {
		return goerrors.New("restaurant id and owner id are required", goerrors.CategoryBadInput)
	}
	if err := in.Validate(); err != nil {
		return goerrors.FromOzzoValidation(err, "invalid restaurant")
	}

	err := c.rest.JSON(ctx, rest.Request{
		Method: http.MethodPatch,
		Path:   restaurantsPath + "/" + url.PathEscape(id),
		Body: updateRestaurant{
			Name:    in.Name,
			Cuisine: in.Cuisine,
			Borough: in.Borough,
			Address: in.address(),
			OwnerID: ownerID,
		},
	}, nil)
	return mapError(err, "update restaurant")
}

// Delete removes the listing. ownerID must match the listing owner.
func (c *Client) Delete(ctx context.Context, id, ownerID string) error {
	if id == "" || ownerID == "" {
		return goerrors.New("restaurant id and owner id are required", goerrors.CategoryBadInput)
	}

	err := c.rest.JSON(ctx, rest.Request{
		Method: http.MethodDelete,
		Path:   restaurantsPath + "/" + url.PathEscape(id),
		Query:  url.Values{"ownerId": {ownerID}},
	}, nil)
	return mapError(err, "delete restaurant")
}

// UploadPicture sends the photo as the multipart field "picture".
func (c *Client) UploadPicture(ctx context.Context, id, filename string, r io.Reader) error {
	if id == "" {
		return goerrors.New("restaurant id is required", goerrors.CategoryBadInput)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(pictureField, filepath.Base(filename))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build upload")
	}
	n, err := io.Copy(part, io.LimitReader(r, maxPictureSize+1))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read picture")
	}
	if n > maxPictureSize {
		return goerrors.New("picture exceeds 10MB", goerrors.CategoryBadInput)
	}
	if err := mw.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PictureURL(id), &buf)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to build upload request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return mapError(c.rest.Do(req, nil), "upload picture")
}

func (c *Client) decorate(p *Page) *Page {
	for i := range p.Restaurants {
		p.Restaurants[i].Picture = c.PictureURL(p.Restaurants[i].ID)
	}
	if p.Restaurants == nil {
		p.Restaurants = []Restaurant{}
	}
	return p
}

func (c *Client) withPicture(r *Restaurant) *Restaurant {
	if r.ID != "" {
		r.Picture = c.PictureURL(r.ID)
	}
	return r
}

// restaurantEnvelope accepts {"restaurant": {...}}, a bare record or an
// insert acknowledgement.
type restaurantEnvelope struct {
	Restaurant *Restaurant
	InsertedID string
}

func (e *restaurantEnvelope) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Restaurant *Restaurant `json:"restaurant"`
		InsertedID string      `json:"insertedId"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Restaurant != nil {
		e.Restaurant = wrapped.Restaurant
		return nil
	}
	e.InsertedID = wrapped.InsertedID

	var bare Restaurant
	if err := json.Unmarshal(data, &bare); err == nil && bare.ID != "" {
		e.Restaurant = &bare
	}
	return nil
}

func (e restaurantEnvelope) id() string {
	if e.Restaurant != nil {
		return e.Restaurant.ID
	}
	return e.InsertedID
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func pageQuery(page, limit int) url.Values {
	return url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	switch rest.StatusCode(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s: %w", auth.ErrNotFound, op, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s: %w", auth.ErrConflict, op, err)
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s: %w", auth.ErrForbidden, op, err)
	}
	if rest.StatusCode(err) >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s: %w", auth.ErrBackendUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
