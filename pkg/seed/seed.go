package seed

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/store"
	"github.com/sellerlink/sellerlink/pkg/userdir"
)

// Manifest is the top-level structure of a seed file.
type Manifest struct {
	Users    []UserSpec    `yaml:"users"`
	Accounts []AccountSpec `yaml:"accounts"`
	Bindings []BindingSpec `yaml:"bindings"`
}

// UserSpec declares a user to create if absent.
type UserSpec struct {
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Password  string `yaml:"password"`
	Superuser bool   `yaml:"superuser"`
}

// AccountSpec declares a marketplace account to register if absent.
type AccountSpec struct {
	ExternalID  string `yaml:"external_id"`
	DisplayName string `yaml:"display_name"`
}

// BindingSpec declares a role binding between a seeded user and account.
type BindingSpec struct {
	User    string `yaml:"user"`    // email
	Account string `yaml:"account"` // external ID
	Role    string `yaml:"role"`
}

// Parse reads a seed manifest from r. Unknown fields are rejected so
// typos in seed files fail loudly.
func Parse(r io.Reader) (*Manifest, error) {
	var manifest Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("failed to parse seed manifest: %w", err)
	}
	return &manifest, nil
}

// Validate checks referential integrity of the manifest before any
// database work happens.
func (m *Manifest) Validate() error {
	users := make(map[string]bool, len(m.Users))
	for _, u := range m.Users {
		if u.Email == "" {
			return errors.New("seed user with empty email")
		}
		email := userdir.NormalizeEmail(u.Email)
		if users[email] {
			return fmt.Errorf("duplicate seed user %s", email)
		}
		users[email] = true
	}

	accounts := make(map[string]bool, len(m.Accounts))
	for _, a := range m.Accounts {
		if a.ExternalID == "" {
			return errors.New("seed account with empty external_id")
		}
		if accounts[a.ExternalID] {
			return fmt.Errorf("duplicate seed account %s", a.ExternalID)
		}
		accounts[a.ExternalID] = true
	}

	seen := make(map[string]bool, len(m.Bindings))
	for _, b := range m.Bindings {
		if !users[userdir.NormalizeEmail(b.User)] {
			return fmt.Errorf("binding references unknown user %s", b.User)
		}
		if !accounts[b.Account] {
			return fmt.Errorf("binding references unknown account %s", b.Account)
		}
		if _, err := model.RoleString(b.Role); err != nil {
			return fmt.Errorf("binding for %s has unknown role %s", b.User, b.Role)
		}
		key := userdir.NormalizeEmail(b.User) + "\x00" + b.Account
		if seen[key] {
			return fmt.Errorf("duplicate binding for %s on %s", b.User, b.Account)
		}
		seen[key] = true
	}

	return nil
}

// Result summarizes what an Apply run changed.
type Result struct {
	UsersCreated    int
	AccountsCreated int
	BindingsCreated int
	Skipped         int
}

// UserDirectory is the slice of userdir.Directory the Applier needs.
type UserDirectory interface {
	CreateUser(email, firstName, lastName, password string) (uint, error)
	CreateSuperuser(email, firstName, lastName, password string) (uint, error)
	FindByEmail(email string) (*model.User, error)
}

// Applier loads seed manifests into the stores.
type Applier struct {
	directory UserDirectory
	accounts  store.AccountsStore
	bindings  store.RoleBindingsStore
}

// NewApplier creates an Applier over the given stores.
func NewApplier(directory UserDirectory, accounts store.AccountsStore, bindings store.RoleBindingsStore) *Applier {
	return &Applier{directory: directory, accounts: accounts, bindings: bindings}
}

// Apply creates every user, account and binding the manifest declares.
// Records that already exist are skipped, so seeding is idempotent.
func (a *Applier) Apply(manifest *Manifest) (*Result, error) {
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}

	for _, u := range manifest.Users {
		var err error
		if u.Superuser {
			_, err = a.directory.CreateSuperuser(u.Email, u.FirstName, u.LastName, u.Password)
		} else {
			_, err = a.directory.CreateUser(u.Email, u.FirstName, u.LastName, u.Password)
		}
		switch {
		case err == nil:
			result.UsersCreated++
		case errors.Is(err, userdir.ErrDuplicateEmail):
			result.Skipped++
		default:
			return nil, fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
	}

	for _, spec := range manifest.Accounts {
		_, err := a.accounts.Register(spec.ExternalID, spec.DisplayName)
		switch {
		case err == nil:
			result.AccountsCreated++
		case errors.Is(err, store.ErrDuplicateAccount):
			result.Skipped++
		default:
			return nil, fmt.Errorf("failed to seed account %s: %w", spec.ExternalID, err)
		}
	}

	for _, b := range manifest.Bindings {
		user, err := a.directory.FindByEmail(b.User)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve seed user %s: %w", b.User, err)
		}
		account, err := a.accounts.Find(b.Account)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve seed account %s: %w", b.Account, err)
		}

		role, err := model.RoleString(b.Role)
		if err != nil {
			return nil, err
		}

		_, err = a.bindings.Grant(user.ID, account.ID, role)
		switch {
		case err == nil:
			result.BindingsCreated++
		case errors.Is(err, store.ErrDuplicateBinding):
			result.Skipped++
		default:
			return nil, fmt.Errorf("failed to seed binding %s/%s: %w", b.User, b.Account, err)
		}
	}

	return result, nil
}
