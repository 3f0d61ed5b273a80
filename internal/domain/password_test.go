package domain

import "testing"

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		password  string
		wantError bool
	}{
		{name: "valid", password: "Andes-Cordillera-9", wantError: false},
		{name: "too short", password: "Ab1!xyz", wantError: true},
		{name: "no upper", password: "cordillera-andes-9", wantError: true},
		{name: "no lower", password: "CORDILLERA-ANDES-9", wantError: true},
		{name: "no digit", password: "Cordillera-Andes!", wantError: true},
		{name: "no symbol", password: "CordilleraAndes99", wantError: true},
		{name: "weak pattern password", password: "MyPassword-2026!", wantError: true},
		{name: "weak pattern qwerty", password: "Qwerty-Chile-88!", wantError: true},
		{name: "weak pattern sequence", password: "Abc123456-Chile!", wantError: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePassword(tc.password)
			if tc.wantError && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantError && err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
		})
	}
}
