package nutconf

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrIdentityUnknown marks the fatal condition where no UPS name can be
// derived from overrides or the NUT configuration files.
var ErrIdentityUnknown = errors.New("ups identity cannot be determined")

// UPSIdentity is the <name>@<host> target of the communication probe.
type UPSIdentity struct {
	Name string
	Host string
}

func (id UPSIdentity) String() string {
	return id.Name + "@" + id.Host
}

// IdentityOverrides carries the configuration inputs to identity resolution.
type IdentityOverrides struct {
	Name         string // explicit ups.name, wins outright
	Host         string // explicit ups.host
	DummyEnabled bool
	DummyName    string
}

// ResolveIdentity determines which UPS the supervisor probes. Explicit
// overrides win; otherwise a server derives the name from the first ups.conf
// section (host localhost) and a client derives both from the first MONITOR
// line of upsmon.conf. With an empty ups.conf and the dummy fallback enabled,
// a server resolves to the dummy name before the section exists.
func ResolveIdentity(confDir string, client bool, o IdentityOverrides) (UPSIdentity, error) {
	id := UPSIdentity{Name: o.Name, Host: o.Host}
	if id.Name != "" {
		if id.Host == "" {
			id.Host = "localhost"
		}
		return id, nil
	}

	if client {
		mon, err := LoadUpsmonConf(filepath.Join(confDir, UpsmonConfFile))
		if err != nil {
			return UPSIdentity{}, err
		}
		if m := mon.FirstMonitor(); m != nil {
			id.Name = m.Name
			if id.Host == "" {
				id.Host = m.Host
			}
			return id, nil
		}
		return UPSIdentity{}, fmt.Errorf("%w: no MONITOR line in %s", ErrIdentityUnknown, UpsmonConfFile)
	}

	ups, err := LoadUPSConf(filepath.Join(confDir, UPSConfFile))
	if err != nil {
		return UPSIdentity{}, err
	}
	if s := ups.First(); s != nil {
		id.Name = s.Name
		if id.Host == "" {
			id.Host = "localhost"
		}
		return id, nil
	}
	if o.DummyEnabled && o.DummyName != "" {
		id.Name = o.DummyName
		if id.Host == "" {
			id.Host = "localhost"
		}
		return id, nil
	}
	return UPSIdentity{}, fmt.Errorf("%w: no section in %s", ErrIdentityUnknown, UPSConfFile)
}
