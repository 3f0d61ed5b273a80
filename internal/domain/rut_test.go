package domain

import "testing"

func TestNormalizeRUT(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		raw       string
		want      string
		wantError bool
	}{
		{name: "canonical", raw: "12345678-5", want: "12345678-5"},
		{name: "with dots", raw: "12.345.678-5", want: "12345678-5"},
		{name: "lowercase k", raw: "16666666-k", want: "16666666-K"},
		{name: "uppercase k", raw: "16.666.666-K", want: "16666666-K"},
		{name: "check digit zero", raw: "10000004-0", want: "10000004-0"},
		{name: "surrounding whitespace", raw: "  11111111-1 ", want: "11111111-1"},
		{name: "wrong check digit", raw: "12345678-9", wantError: true},
		{name: "missing dash", raw: "123456785", wantError: true},
		{name: "empty", raw: "", wantError: true},
		{name: "non numeric body", raw: "1234x678-5", wantError: true},
		{name: "body too short", raw: "123456-0", wantError: true},
		{name: "multi char check digit", raw: "12345678-55", wantError: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeRUT(tc.raw)
			if tc.wantError {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
