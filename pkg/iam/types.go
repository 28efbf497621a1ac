package iam

// Credential represents an access key and secret key pair for S3 authentication,
// together with the permissions granted to it. Credentials come from the active
// configuration snapshot and are immutable for the snapshot's lifetime.
type Credential struct {
	AccessKey   string       `json:"access_key" mapstructure:"access_key"`
	SecretKey   string       `json:"secret_key,omitempty" mapstructure:"secret_key"`
	Permissions []Permission `json:"permissions,omitempty" mapstructure:"permissions"`
}

// Permission grants an (action, resource) pattern pair. Patterns are matched
// with filesystem-glob-style wildcards: "*" matches any run of characters,
// "?" matches exactly one. A bare "*" matches everything.
type Permission struct {
	Action   string `json:"action" mapstructure:"action"`
	Resource string `json:"resource" mapstructure:"resource"`
}

// Allows reports whether any of the credential's permissions covers the
// requested action and resource. Evaluation is allow-if-any-match with a
// default deny; there is no explicit-deny concept.
func (c *Credential) Allows(action, resource string) bool {
	for _, p := range c.Permissions {
		if matchWildcard(p.Action, action) && matchWildcard(p.Resource, resource) {
			return true
		}
	}
	return false
}
