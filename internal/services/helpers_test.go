package services

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "0", false},
		{"1500", "1500", false},
		{"99.999", "100", false},
		{"0.005", "0.01", false},
		{"-5", "", true},
		{"abc", "", true},
		{"1,000", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseAmount(%q) should fail, got %s", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmount(%q) = %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
