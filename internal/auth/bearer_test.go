package auth

import "testing"

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Bearer", "", true},
		{"Bearer   ", "", true},
		{"", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("BearerToken(%q) = (%q, %v), ожидалось (%q, %v)", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}
