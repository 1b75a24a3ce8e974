// README: User directory over the riders and drivers collections: registration, login and lookups.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/milagros-hr/proyecto-transport/internal/storage"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid user data")
)

const minPasswordLen = 6

type Directory struct {
	mu   sync.Mutex
	db   storage.Collections
	now  func() time.Time
	cost int
	log  *zap.Logger
}

func NewDirectory(db storage.Collections, log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{db: db, now: time.Now, cost: bcrypt.DefaultCost, log: log}
}

type RegisterCommand struct {
	Role     types.Role
	Name     string
	Email    string
	Phone    string
	Password string
	Vehicle  *Vehicle
}

// Register adds a rider or driver. Ids are shared by both collections so a rider and a
// driver never carry the same id.
func (d *Directory) Register(ctx context.Context, cmd RegisterCommand) (*User, error) {
	email := NormalizeEmail(cmd.Email)
	name := strings.TrimSpace(cmd.Name)
	switch {
	case !cmd.Role.Valid():
		return nil, fmt.Errorf("%w: role must be rider or driver", ErrInvalidInput)
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !validEmail(email):
		return nil, fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, cmd.Email)
	case len(cmd.Password) < minPasswordLen:
		return nil, fmt.Errorf("%w: password needs at least %d characters", ErrInvalidInput, minPasswordLen)
	case cmd.Role == types.RoleDriver && (cmd.Vehicle == nil || strings.TrimSpace(cmd.Vehicle.Plate) == ""):
		return nil, fmt.Errorf("%w: drivers must register a vehicle plate", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), d.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	riders, drivers, err := d.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	list := riders
	if cmd.Role == types.RoleDriver {
		list = drivers
	}
	for _, u := range list {
		if u.Email == email {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
	}

	var max types.ID
	for _, u := range append(append([]User{}, riders...), drivers...) {
		if u.ID > max {
			max = u.ID
		}
	}
	u := User{
		ID:           max + 1,
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(cmd.Phone),
		Role:         cmd.Role,
		PasswordHash: string(hash),
		RegisteredAt: d.now().UTC(),
	}
	if cmd.Role == types.RoleDriver {
		v := *cmd.Vehicle
		v.Plate = strings.ToUpper(strings.TrimSpace(v.Plate))
		u.Vehicle = &v
	}
	doc, err := storage.Encode(collectionFor(cmd.Role), append(list, u))
	if err != nil {
		return nil, err
	}
	if err := d.db.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save %s: %w", doc.Name, err)
	}
	d.log.Info("user registered", zap.Stringer("user_id", u.ID), zap.String("role", string(u.Role)))
	out := u.Public()
	return &out, nil
}

// Authenticate checks an email/password pair for the given role.
func (d *Directory) Authenticate(ctx context.Context, email, password string, role types.Role) (*User, error) {
	u, err := d.ByEmail(ctx, email, role)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	out := u.Public()
	return &out, nil
}

func (d *Directory) ByID(ctx context.Context, id types.ID, role types.Role) (*User, error) {
	return d.find(ctx, role, func(u User) bool { return u.ID == id })
}

func (d *Directory) ByEmail(ctx context.Context, email string, role types.Role) (*User, error) {
	email = NormalizeEmail(email)
	return d.find(ctx, role, func(u User) bool { return u.Email == email })
}

// Exists reports whether a user with the role is registered.
func (d *Directory) Exists(ctx context.Context, id types.ID, role types.Role) (bool, error) {
	_, err := d.ByID(ctx, id, role)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (d *Directory) find(ctx context.Context, role types.Role, match func(User) bool) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, role)
	}
	d.mu.Lock()
	list, err := storage.LoadInto[User](ctx, d.db, collectionFor(role))
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, u := range list {
		if match(u) {
			u.Role = role
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (d *Directory) loadAll(ctx context.Context) (riders, drivers []User, err error) {
	if riders, err = storage.LoadInto[User](ctx, d.db, CollectionRiders); err != nil {
		return nil, nil, err
	}
	if drivers, err = storage.LoadInto[User](ctx, d.db, CollectionDrivers); err != nil {
		return nil, nil, err
	}
	return riders, drivers, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
