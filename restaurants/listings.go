package restaurants

import (
	"context"
	"fmt"
	"io"

	auth "github.com/goliatone/go-restaurant-auth"
)

// SessionSource exposes the current session; *auth.Controller satisfies it.
type SessionSource interface {
	State() auth.State
}

// Picture is an optional photo to upload after saving a listing.
type Picture struct {
	Filename string
	Body     io.Reader
}

// OwnerListings is the restaurant owner workflow: one listing per owner,
// managed only by a signed in restaurantOwner.
type OwnerListings struct {
	client   *Client
	sessions SessionSource
	logger   auth.Logger
}

// NewOwnerListings wires the workflow.
func NewOwnerListings(client *Client, sessions SessionSource, logger auth.Logger) *OwnerListings {
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	return &OwnerListings{client: client, sessions: sessions, logger: logger}
}

// Current returns the owner's listing, or nil when there is none yet.
func (o *OwnerListings) Current(ctx context.Context) (*Restaurant, error) {
	ownerID, err := o.owner()
	if err != nil {
		return nil, err
	}

	r, err := o.client.GetByOwner(ctx, ownerID)
	if auth.IsNotFound(err) {
		return nil, nil
	}
	return r, err
}

// Save creates the owner's listing or updates the existing one. A picture
// upload failure is logged and does not fail the save.
func (o *OwnerListings) Save(ctx context.Context, in Input, picture *Picture) (*Restaurant, error) {
	ownerID, err := o.owner()
	if err != nil {
		return nil, err
	}

	existing, err := o.client.GetByOwner(ctx, ownerID)
	var saved *Restaurant
	switch {
	case auth.IsNotFound(err):
		saved, err = o.client.Create(ctx, ownerID, in)
		if err != nil {
			return nil, err
		}
		o.logger.Info("restaurant created", "id", saved.ID, "owner", ownerID)

	case err != nil:
		return nil, err

	default:
		if err := o.client.Update(ctx, existing.ID, ownerID, in); err != nil {
			return nil, err
		}
		saved = existing
		saved.Name, saved.Cuisine, saved.Borough = in.Name, in.Cuisine, in.Borough
		coord := saved.Address.Coord
		saved.Address = in.address()
		saved.Address.Coord = coord
		o.logger.Info("restaurant updated", "id", saved.ID, "owner", ownerID)
	}

	if picture != nil && picture.Body != nil && saved.ID != "" {
		if err := o.client.UploadPicture(ctx, saved.ID, picture.Filename, picture.Body); err != nil {
			o.logger.Warn("picture upload failed, listing saved without it", "id", saved.ID, "error", err)
		}
	}

	return saved, nil
}

// Remove deletes the owner's listing.
func (o *OwnerListings) Remove(ctx context.Context) error {
	ownerID, err := o.owner()
	if err != nil {
		return err
	}

	existing, err := o.client.GetByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	return o.client.Delete(ctx, existing.ID, ownerID)
}

func (o *OwnerListings) owner() (string, error) {
	state := o.sessions.State()
	if state.Status() != auth.StatusSignedIn {
		return "", auth.ErrNotSignedIn
	}
	user := state.User()
	if !user.Role.CanManageListing() {
		return "", fmt.Errorf("%w: role %s cannot manage listings", auth.ErrForbidden, user.Role)
	}
	return state.Identity().SubjectID, nil
}
