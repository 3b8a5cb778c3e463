package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+79991234567", "+79991234567", false},
		{"79991234567", "+79991234567", false},
		{"89991234567", "+79991234567", false},
		{"9991234567", "+79991234567", false},
		{"8 (999) 123-45-67", "+79991234567", false},
		{"+7 999 123 45 67", "+79991234567", false},
		{"84951234567", "", true},  // городской, не мобильный
		{"+19991234567", "", true}, // чужая страна
		{"999123456", "", true},    // короткий
		{"799912345678", "", true}, // длинный
		{"", "", true},
		{"abc", "", true},
	}

	for _, c := range cases {
		got, err := NormalizePhone(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("NormalizePhone(%q): ждали ошибку, получили %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, ждали %q", c.in, got, c.want)
		}
	}
}
