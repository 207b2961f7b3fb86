// Package session resolves the owner on whose behalf the engine runs.
package session

import (
	"context"
	"strings"

	"github.com/spf13/viper"
)

// OwnerKey is the configuration key holding the current owner's ID.
const OwnerKey = "owner.id"

// Static is a SessionProvider with a fixed owner. The zero value has no owner.
type Static string

// CurrentOwnerID returns the owner, or false when it is empty.
func (s Static) CurrentOwnerID(_ context.Context) (string, bool) {
	id := strings.TrimSpace(string(s))
	return id, id != ""
}

// Config reads the owner from a viper instance on every call, so a value
// set after startup (for example by a login command) is picked up.
type Config struct {
	v *viper.Viper
}

// FromViper returns a Config session backed by v, or by the global viper when v is nil.
func FromViper(v *viper.Viper) *Config {
	if v == nil {
		v = viper.GetViper()
	}
	return &Config{v: v}
}

// CurrentOwnerID returns the configured owner, or false when none is set.
func (c *Config) CurrentOwnerID(ctx context.Context) (string, bool) {
	return Static(c.v.GetString(OwnerKey)).CurrentOwnerID(ctx)
}
