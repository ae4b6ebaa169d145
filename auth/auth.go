// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package auth implements the identity and role collaborator.  Users
// and roles are declared in a YAML settings block loaded at boot; a
// role is a named set of granted authorization identifiers, and the
// wildcard identifier "*" makes a role a super-administrator.
//
// Authentication is HTTP Basic credential checking only.  No session
// state exists; every request carries its credential and gets a fresh
// AuthorizationContext value, which is passed explicitly down the call
// stack and never stored globally.
package auth

import (
	"fmt"

	yaml "gopkg.in/yaml.v2"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// Identity is the authorization context for one request: the
// authenticated user plus the identifiers their role grants.
type Identity struct {
	// User is the login name.
	User string

	// UserID is the id of the user's record in the users
	// collection, used for ownership scoping.
	UserID uint64

	// Role is the role name, for logging.
	Role string

	// Identifiers is the granted identifier set.
	Identifiers map[string]bool

	// Super marks a role granting every identifier.
	Super bool
}

// Allows reports whether the identity holds an authorization
// identifier.
func (id Identity) Allows(identifier string) bool {
	return id.Super || id.Identifiers[identifier]
}

// UserConfig declares one user in the settings file.
type UserConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Config is the YAML shape of the authentication settings.
type Config struct {
	// Roles maps role names to granted identifier lists.  The
	// identifier "*" grants everything.
	Roles map[string][]string `yaml:"roles"`

	// Users lists the known logins.
	Users []UserConfig `yaml:"users"`
}

// ParseConfig decodes a YAML authentication settings block.
func ParseConfig(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing auth settings: %v", err)
	}
	return config, nil
}

// Provider authenticates credentials and hands out identities.
type Provider struct {
	users map[string]providerEntry
}

type providerEntry struct {
	password string
	identity Identity
}

// NewProvider builds a provider from settings.  Each configured user
// also gets a record in the users collection so that ownership-scoped
// collections can reference them; the record's id becomes the
// identity's UserID.
func NewProvider(config Config, store mgmtapi.Storage) (*Provider, error) {
	p := &Provider{users: make(map[string]providerEntry)}
	for _, user := range config.Users {
		identifiers, ok := config.Roles[user.Role]
		if !ok {
			return nil, fmt.Errorf("user %q has undeclared role %q", user.Name, user.Role)
		}
		identity := Identity{
			User:        user.Name,
			Role:        user.Role,
			Identifiers: make(map[string]bool),
		}
		for _, identifier := range identifiers {
			if identifier == "*" {
				identity.Super = true
				continue
			}
			identity.Identifiers[identifier] = true
		}
		rec, err := store.Create("users", map[string]interface{}{
			"name":   user.Name,
			"userid": user.Name,
		})
		if err != nil {
			return nil, err
		}
		identity.UserID = rec.ID
		p.users[user.Name] = providerEntry{
			password: user.Password,
			identity: identity,
		}
	}
	return p, nil
}

// Authenticate checks a credential pair and returns the matching
// identity.  A wrong user or password fails identically.
func (p *Provider) Authenticate(user, password string) (Identity, bool) {
	entry, ok := p.users[user]
	if !ok || entry.password != password {
		return Identity{}, false
	}
	return entry.identity, true
}
