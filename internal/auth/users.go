package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dinepos/kds/internal/enum"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// User is one staff account allowed onto the kitchen board.
type User struct {
	Username     string
	PasswordHash string
	Role         string
}

// Users holds the configured staff accounts, keyed by username.
type Users struct {
	byName map[string]User
}

// ParseUsers builds the account set from the STAFF_USERS config value:
// comma-separated "username:bcrypt-hash:role" triples. Colons inside the
// bcrypt hash are not an issue because the hash is the middle field and
// bcrypt hashes contain no commas.
func ParseUsers(raw string) (*Users, error) {
	u := &Users{byName: make(map[string]User)}
	if strings.TrimSpace(raw) == "" {
		return u, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed staff user entry %q", entry)
		}
		name, hash, role := parts[0], parts[1], parts[2]
		if role != enum.UserRoleKitchen && role != enum.UserRoleManager {
			return nil, fmt.Errorf("unknown role %q for staff user %q", role, name)
		}
		if _, dup := u.byName[name]; dup {
			return nil, fmt.Errorf("duplicate staff user %q", name)
		}
		u.byName[name] = User{Username: name, PasswordHash: hash, Role: role}
	}
	return u, nil
}

// Authenticate checks a username/password pair against the account set.
func (u *Users) Authenticate(username, password string) (User, error) {
	user, ok := u.byName[username]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Len returns the number of configured accounts.
func (u *Users) Len() int {
	return len(u.byName)
}
