// Package users reads the stored user records referenced by macro text
// actions for credential placeholder substitution.
package users

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/ini.v1"
)

// User is a stored credential record. One INI section per user; the section
// name is the username.
type User struct {
	Username  string
	Password  string
	IsDefault bool
}

// Store holds the user records parsed from users.ini. The store is
// read-only at runtime; records are edited in the file and reloaded.
type Store struct {
	path  string
	users map[string]User
}

// LoadStore parses a users.ini file. A missing file yields an empty store,
// not an error, so setups without credential placeholders need no file.
func LoadStore(path string) (*Store, error) {
	s := &Store{
		path:  path,
		users: make(map[string]User),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load users file %s: %w", path, err)
	}

	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		s.users[name] = User{
			Username:  name,
			Password:  section.Key("password").String(),
			IsDefault: section.Key("is_default").MustBool(false),
		}
	}

	return s, nil
}

// Get returns the record for a username
func (s *Store) Get(username string) (User, bool) {
	u, ok := s.users[username]
	return u, ok
}

// Lookup returns the stored password for a username
func (s *Store) Lookup(username string) (string, bool) {
	u, ok := s.users[username]
	if !ok {
		return "", false
	}
	return u.Password, true
}

// Default returns the user marked is_default. With several marked, the
// first by username order wins so the choice is stable across loads.
func (s *Store) Default() (string, string, bool) {
	names := make([]string, 0, len(s.users))
	for name, u := range s.users {
		if u.IsDefault {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", "", false
	}
	sort.Strings(names)
	u := s.users[names[0]]
	return u.Username, u.Password, true
}

// All returns every stored user, sorted by username
func (s *Store) All() []User {
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Count returns the number of stored users
func (s *Store) Count() int {
	return len(s.users)
}
