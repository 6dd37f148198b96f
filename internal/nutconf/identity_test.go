package nutconf

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveIdentityExplicitOverride(t *testing.T) {
	id, err := ResolveIdentity(t.TempDir(), false, IdentityOverrides{Name: "myups", Host: "10.0.0.2"})
	if err != nil {
		t.Fatalf("ResolveIdentity failed: %v", err)
	}
	if id.String() != "myups@10.0.0.2" {
		t.Errorf("identity = %s, want myups@10.0.0.2", id)
	}
}

func TestResolveIdentityExplicitNameDefaultsHost(t *testing.T) {
	id, err := ResolveIdentity(t.TempDir(), false, IdentityOverrides{Name: "myups"})
	if err != nil {
		t.Fatalf("ResolveIdentity failed: %v", err)
	}
	if id.Host != "localhost" {
		t.Errorf("host = %q, want localhost", id.Host)
	}
}

func TestResolveIdentityServerFromUPSConf(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, UPSConfFile, "[primary-ups]\n\tdriver = usbhid-ups\n\tport = auto\n")

	id, err := ResolveIdentity(dir, false, IdentityOverrides{})
	if err != nil {
		t.Fatalf("ResolveIdentity failed: %v", err)
	}
	if id.String() != "primary-ups@localhost" {
		t.Errorf("identity = %s, want primary-ups@localhost", id)
	}
}

func TestResolveIdentityClientFromUpsmonConf(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, UpsmonConfFile, "MONITOR remote@192.168.1.10 1 monuser secret secondary\n")

	id, err := ResolveIdentity(dir, true, IdentityOverrides{})
	if err != nil {
		t.Fatalf("ResolveIdentity failed: %v", err)
	}
	if id.String() != "remote@192.168.1.10" {
		t.Errorf("identity = %s, want remote@192.168.1.10", id)
	}
}

func TestResolveIdentityDummyFallback(t *testing.T) {
	id, err := ResolveIdentity(t.TempDir(), false, IdentityOverrides{DummyEnabled: true, DummyName: "dummy"})
	if err != nil {
		t.Fatalf("ResolveIdentity failed: %v", err)
	}
	if id.String() != "dummy@localhost" {
		t.Errorf("identity = %s, want dummy@localhost", id)
	}
}

func TestResolveIdentityUnderivable(t *testing.T) {
	for _, client := range []bool{false, true} {
		_, err := ResolveIdentity(t.TempDir(), client, IdentityOverrides{})
		if !errors.Is(err, ErrIdentityUnknown) {
			t.Errorf("client=%v: expected ErrIdentityUnknown, got %v", client, err)
		}
	}
}

func TestValidateRequiredServer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, UPSConfFile, "")
	writeFile(t, dir, UpsmonConfFile, "")

	err := ValidateRequired(dir, false)
	if !errors.Is(err, ErrMissingConfig) {
		t.Fatalf("Expected ErrMissingConfig, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, UpsdConfFile) || !strings.Contains(msg, UpsdUsersFile) {
		t.Errorf("Error should list all missing files: %v", msg)
	}
	if strings.Contains(msg, UPSConfFile+",") {
		t.Errorf("Error should not list present files: %v", msg)
	}
}

func TestValidateRequiredClient(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, UpsmonConfFile, "")

	if err := ValidateRequired(dir, true); err != nil {
		t.Errorf("Client mode only requires upsmon.conf, got %v", err)
	}
}

func TestCheckReportsProblems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, NutConfFile, "MODE=sideways\n")
	writeFile(t, dir, UPSConfFile, "[ups]\n\tdesc = \"no driver or port\"\n")
	writeFile(t, dir, UpsdConfFile, "")
	writeFile(t, dir, UpsdUsersFile, "")
	writeFile(t, dir, UpsmonConfFile, "MONITOR ups@localhost 1 admin secret sidecar\n")

	problems := Check(dir, false)

	wantFragments := []string{
		`unknown MODE value "sideways"`,
		"[ups] has no driver",
		"[ups] has no port",
		`unknown type "sidecar"`,
	}
	for _, frag := range wantFragments {
		found := false
		for _, p := range problems {
			if strings.Contains(p, frag) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected a problem containing %q, got %v", frag, problems)
		}
	}
}

func TestCheckCleanConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, NutConfFile, "MODE=netserver\n")
	writeFile(t, dir, UPSConfFile, "[ups]\n\tdriver = usbhid-ups\n\tport = auto\n")
	writeFile(t, dir, UpsdConfFile, "LISTEN 127.0.0.1 3493\n")
	writeFile(t, dir, UpsdUsersFile, "[admin]\n\tpassword = secret\n")
	writeFile(t, dir, UpsmonConfFile, "MONITOR ups@localhost 1 admin secret primary\n")

	if problems := Check(dir, false); len(problems) != 0 {
		t.Errorf("Expected no problems, got %v", problems)
	}
}
