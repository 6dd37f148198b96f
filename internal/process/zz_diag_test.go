package process

import "testing"

func TestZZDiagParse(t *testing.T) {
	got, err := parseCommand(`sh -c 'trap "" TERM; sleep 60'`)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	for i, a := range got {
		t.Logf("arg[%d] = %q", i, a)
	}
}
