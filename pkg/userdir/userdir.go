package userdir

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sellerlink/sellerlink/pkg/model"
)

// ErrEmailRequired is returned when creating a user without an email.
var ErrEmailRequired = errors.New("the email field must be set")

// ErrDuplicateEmail is returned when the email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrUserNotFound is returned when no user matches.
var ErrUserNotFound = errors.New("user not found")

// ErrInvalidCredentials is returned on a failed password check. The same
// error covers unknown users so callers cannot probe for registered emails.
var ErrInvalidCredentials = errors.New("invalid email or password")

// PasswordHasher is the credential-authentication boundary. Hashing is
// delegated, never reimplemented by callers.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type bcryptHasher struct {
	cost int
}

func (h bcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h bcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Directory owns user identity records and their authentication state.
// Role bindings reference its users through opaque IDs only.
type Directory struct {
	db     *gorm.DB
	hasher PasswordHasher
}

// NewDirectory creates a Directory with bcrypt password hashing.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db, hasher: bcryptHasher{cost: bcrypt.DefaultCost}}
}

// NewDirectoryWithHasher creates a Directory with a custom hasher.
func NewDirectoryWithHasher(db *gorm.DB, hasher PasswordHasher) *Directory {
	return &Directory{db: db, hasher: hasher}
}

// NormalizeEmail lowercases the domain part of an email address.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// CreateUser creates and saves a user with the given email and password.
func (d *Directory) CreateUser(email, firstName, lastName, password string) (uint, error) {
	return d.create(email, firstName, lastName, password, false, false)
}

// CreateSuperuser creates a user with staff and superuser flags set.
func (d *Directory) CreateSuperuser(email, firstName, lastName, password string) (uint, error) {
	return d.create(email, firstName, lastName, password, true, true)
}

func (d *Directory) create(email, firstName, lastName, password string, staff, superuser bool) (uint, error) {
	if strings.TrimSpace(email) == "" {
		return 0, ErrEmailRequired
	}

	hash, err := d.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{
		Email:        NormalizeEmail(email),
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      staff,
		IsSuperuser:  superuser,
	}

	tx := d.db.Exec(`
		INSERT INTO users (email, first_name, last_name, password_hash, is_active, is_staff, is_superuser, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, now(), now())
		ON CONFLICT (email) DO NOTHING
	`, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.IsActive, user.IsStaff, user.IsSuperuser)
	if tx.Error != nil {
		return 0, tx.Error
	}
	if tx.RowsAffected == 0 {
		return 0, ErrDuplicateEmail
	}

	created, err := d.FindByEmail(user.Email)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// FindByEmail retrieves a user by normalized email.
func (d *Directory) FindByEmail(email string) (*model.User, error) {
	var user model.User
	tx := d.db.Where("email = ?", NormalizeEmail(email)).First(&user)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, tx.Error
	}
	return &user, nil
}

// FindByID retrieves a user by ID.
func (d *Directory) FindByID(userID uint) (*model.User, error) {
	var user model.User
	tx := d.db.Where("id = ?", userID).First(&user)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, tx.Error
	}
	return &user, nil
}

// Authenticate verifies an email/password pair against stored credentials.
func (d *Directory) Authenticate(email, password string) (*model.User, error) {
	user, err := d.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := d.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Delete removes a user and cascades deletion of their role bindings.
func (d *Directory) Delete(userID uint) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM role_bindings WHERE user_id = ?`, userID).Error; err != nil {
			return err
		}

		res := tx.Exec(`DELETE FROM users WHERE id = ?`, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}
