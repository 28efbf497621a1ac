package iam

import (
	"errors"
	"fmt"
)

var ErrAccessKeyNotFound = errors.New("access key not found")

// Store is an immutable credential lookup table built from a configuration
// snapshot. It is safe for unbounded concurrent readers; a config reload
// produces a new Store rather than mutating an existing one.
type Store struct {
	byAccessKey map[string]*Credential
}

// NewStore builds a Store from the snapshot's credential list. Access keys
// must be unique across the snapshot.
func NewStore(creds []Credential) (*Store, error) {
	byAccessKey := make(map[string]*Credential, len(creds))
	for i := range creds {
		c := &creds[i]
		if c.AccessKey == "" || c.SecretKey == "" {
			return nil, errors.New("credential access_key and secret_key must not be empty")
		}
		if _, exists := byAccessKey[c.AccessKey]; exists {
			return nil, fmt.Errorf("duplicate access key: %s", c.AccessKey)
		}
		byAccessKey[c.AccessKey] = c
	}
	return &Store{byAccessKey: byAccessKey}, nil
}

// Lookup returns the credential for the given access key.
func (s *Store) Lookup(accessKey string) (*Credential, bool) {
	c, ok := s.byAccessKey[accessKey]
	return c, ok
}

// Len returns the number of credentials in the store.
func (s *Store) Len() int {
	return len(s.byAccessKey)
}
