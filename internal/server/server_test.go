package server

import "testing"

func TestListenAddr(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://127.0.0.1:7343", "127.0.0.1:7343", false},
		{"http://localhost:7343", "localhost:7343", false},
		{"127.0.0.1:7343", "127.0.0.1:7343", false},
		{"http://0.0.0.0:7343", "", true},
		{"0.0.0.0:7343", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ListenAddr(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ListenAddr(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ListenAddr(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ListenAddr(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestListenAddrAllowRemote(t *testing.T) {
	t.Setenv("DEADDROP_ALLOW_REMOTE", "true")
	got, err := ListenAddr("http://0.0.0.0:7343")
	if err != nil {
		t.Fatalf("ListenAddr: %v", err)
	}
	if got != "0.0.0.0:7343" {
		t.Errorf("got %q", got)
	}
}
